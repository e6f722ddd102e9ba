// Package telemetry accumulates in-process counters for the API
// Registry, Data Registry, Extension Registry, and frame loop, and
// exposes them to Prometheus. A nil *Collector behaves like a fully
// wired but inert one: every increment method is nil-receiver safe, so
// callers never need to branch on whether telemetry is configured.
package telemetry

import (
	"sync"
	"time"
)

// Snapshot is an immutable point-in-time view of the collector's
// counters.
type Snapshot struct {
	APIAdds     int64
	APIReplaces int64
	APIRemoves  int64

	DataObjectsCreated int64
	DataObjectsDeleted int64
	DataCommits        int64
	DataReclaimed      int64

	ExtensionLoads    int64
	ExtensionReloads  int64
	ExtensionUnloads  int64
	ReloadFailures    int64

	FrameRate    float64
	FramesPlayed int64
}

// Collector accumulates counters for one engine run.
type Collector struct {
	mu sync.Mutex

	apiAdds     int64
	apiReplaces int64
	apiRemoves  int64

	dataObjectsCreated int64
	dataObjectsDeleted int64
	dataCommits        int64
	dataReclaimed      int64

	extensionLoads   int64
	extensionReloads int64
	extensionUnloads int64
	reloadFailures   int64
	reloadDurations  []time.Duration

	frameRate    float64
	framesPlayed int64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) IncAPIAdd() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.apiAdds++
	c.mu.Unlock()
}

func (c *Collector) IncAPIReplace() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.apiReplaces++
	c.mu.Unlock()
}

func (c *Collector) IncAPIRemove() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.apiRemoves++
	c.mu.Unlock()
}

func (c *Collector) IncDataObjectCreated() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dataObjectsCreated++
	c.mu.Unlock()
}

func (c *Collector) IncDataObjectDeleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dataObjectsDeleted++
	c.mu.Unlock()
}

func (c *Collector) IncDataCommit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dataCommits++
	c.mu.Unlock()
}

func (c *Collector) AddDataReclaimed(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dataReclaimed += n
	c.mu.Unlock()
}

func (c *Collector) IncExtensionLoad() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.extensionLoads++
	c.mu.Unlock()
}

// ObserveReload records one completed extension reload and its wall-clock
// duration, used to derive the reload duration histogram exposed to
// Prometheus.
func (c *Collector) ObserveReload(d time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.extensionReloads++
	c.reloadDurations = append(c.reloadDurations, d)
	c.mu.Unlock()
}

func (c *Collector) IncExtensionUnload() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.extensionUnloads++
	c.mu.Unlock()
}

func (c *Collector) IncReloadFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.reloadFailures++
	c.mu.Unlock()
}

// SetFrameRate records the frame driver's current frame rate estimate.
func (c *Collector) SetFrameRate(fps float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.frameRate = fps
	c.framesPlayed++
	c.mu.Unlock()
}

// Snapshot returns a consistent point-in-time copy of the counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		APIAdds:     c.apiAdds,
		APIReplaces: c.apiReplaces,
		APIRemoves:  c.apiRemoves,

		DataObjectsCreated: c.dataObjectsCreated,
		DataObjectsDeleted: c.dataObjectsDeleted,
		DataCommits:        c.dataCommits,
		DataReclaimed:      c.dataReclaimed,

		ExtensionLoads:   c.extensionLoads,
		ExtensionReloads: c.extensionReloads,
		ExtensionUnloads: c.extensionUnloads,
		ReloadFailures:   c.reloadFailures,

		FrameRate:    c.frameRate,
		FramesPlayed: c.framesPlayed,
	}
}

// reloadDurationsCopy returns a snapshot of observed reload durations,
// used only by the Prometheus registerer to build histogram buckets.
func (c *Collector) reloadDurationsCopy() []time.Duration {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.reloadDurations))
	copy(out, c.reloadDurations)
	return out
}
