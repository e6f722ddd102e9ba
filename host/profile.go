package host

import (
	"sync"
	"time"
)

// Profiler is the host's frame-timing singleton, published into the Data
// Registry under the well-known name "profile". Extensions record named
// sections (e.g. "render", "physics"); Snapshot returns all of them. The
// forge stats TUI does not read it.
type Profiler struct {
	mu       sync.Mutex
	sections map[string]time.Duration
}

// NewProfiler creates an empty Profiler.
func NewProfiler() *Profiler {
	return &Profiler{sections: make(map[string]time.Duration)}
}

// Record sets the most recent duration observed for a named section.
func (p *Profiler) Record(section string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sections[section] = d
}

// Section returns the most recently recorded duration for name, or zero
// if it was never recorded.
func (p *Profiler) Section(name string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sections[name]
}

// Snapshot returns a copy of every recorded section.
func (p *Profiler) Snapshot() map[string]time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Duration, len(p.sections))
	for k, v := range p.sections {
		out[k] = v
	}
	return out
}
