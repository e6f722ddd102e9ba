package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registerer wraps a Collector as a prometheus.Collector, letting the
// host expose it via /metrics when started with --metrics-addr. Metrics
// HTTP exposition is opt-in tooling, not part of the registries'
// contract: a host with no Registerer configured carries zero networking
// cost.
type Registerer struct {
	collector *Collector

	apiAdds     *prometheus.Desc
	apiReplaces *prometheus.Desc
	apiRemoves  *prometheus.Desc

	dataCreated   *prometheus.Desc
	dataDeleted   *prometheus.Desc
	dataCommits   *prometheus.Desc
	dataReclaimed *prometheus.Desc

	extLoads    *prometheus.Desc
	extReloads  *prometheus.Desc
	extUnloads  *prometheus.Desc
	reloadFails *prometheus.Desc
	reloadHist  *prometheus.Desc

	frameRate *prometheus.Desc
}

// NewRegisterer builds a prometheus.Collector over collector.
func NewRegisterer(collector *Collector) *Registerer {
	return &Registerer{
		collector:     collector,
		apiAdds:       prometheus.NewDesc("forge_api_adds_total", "API registry entries added", nil, nil),
		apiReplaces:   prometheus.NewDesc("forge_api_replaces_total", "API registry entries replaced", nil, nil),
		apiRemoves:    prometheus.NewDesc("forge_api_removes_total", "API registry entries removed", nil, nil),
		dataCreated:   prometheus.NewDesc("forge_data_objects_created_total", "Data objects created", nil, nil),
		dataDeleted:   prometheus.NewDesc("forge_data_objects_deleted_total", "Data objects deleted", nil, nil),
		dataCommits:   prometheus.NewDesc("forge_data_commits_total", "Data registry commits", nil, nil),
		dataReclaimed: prometheus.NewDesc("forge_data_reclaimed_total", "Data snapshots reclaimed", nil, nil),
		extLoads:      prometheus.NewDesc("forge_extension_loads_total", "Extensions loaded", nil, nil),
		extReloads:    prometheus.NewDesc("forge_extension_reloads_total", "Extension reload sweeps completed", nil, nil),
		extUnloads:    prometheus.NewDesc("forge_extension_unloads_total", "Extensions unloaded", nil, nil),
		reloadFails:   prometheus.NewDesc("forge_extension_reload_failures_total", "Extension reload sweeps that failed", nil, nil),
		reloadHist:    prometheus.NewDesc("forge_extension_reload_duration_seconds", "Extension reload sweep durations", nil, nil),
		frameRate:     prometheus.NewDesc("forge_frame_rate", "Current frame rate estimate", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (r *Registerer) Describe(ch chan<- *prometheus.Desc) {
	ch <- r.apiAdds
	ch <- r.apiReplaces
	ch <- r.apiRemoves
	ch <- r.dataCreated
	ch <- r.dataDeleted
	ch <- r.dataCommits
	ch <- r.dataReclaimed
	ch <- r.extLoads
	ch <- r.extReloads
	ch <- r.extUnloads
	ch <- r.reloadFails
	ch <- r.reloadHist
	ch <- r.frameRate
}

// Collect implements prometheus.Collector.
func (r *Registerer) Collect(ch chan<- prometheus.Metric) {
	snap := r.collector.Snapshot()

	ch <- prometheus.MustNewConstMetric(r.apiAdds, prometheus.CounterValue, float64(snap.APIAdds))
	ch <- prometheus.MustNewConstMetric(r.apiReplaces, prometheus.CounterValue, float64(snap.APIReplaces))
	ch <- prometheus.MustNewConstMetric(r.apiRemoves, prometheus.CounterValue, float64(snap.APIRemoves))

	ch <- prometheus.MustNewConstMetric(r.dataCreated, prometheus.CounterValue, float64(snap.DataObjectsCreated))
	ch <- prometheus.MustNewConstMetric(r.dataDeleted, prometheus.CounterValue, float64(snap.DataObjectsDeleted))
	ch <- prometheus.MustNewConstMetric(r.dataCommits, prometheus.CounterValue, float64(snap.DataCommits))
	ch <- prometheus.MustNewConstMetric(r.dataReclaimed, prometheus.CounterValue, float64(snap.DataReclaimed))

	ch <- prometheus.MustNewConstMetric(r.extLoads, prometheus.CounterValue, float64(snap.ExtensionLoads))
	ch <- prometheus.MustNewConstMetric(r.extReloads, prometheus.CounterValue, float64(snap.ExtensionReloads))
	ch <- prometheus.MustNewConstMetric(r.extUnloads, prometheus.CounterValue, float64(snap.ExtensionUnloads))
	ch <- prometheus.MustNewConstMetric(r.reloadFails, prometheus.CounterValue, float64(snap.ReloadFailures))

	ch <- r.reloadHistogram()

	ch <- prometheus.MustNewConstMetric(r.frameRate, prometheus.GaugeValue, snap.FrameRate)
}

// reloadHistogram builds a cumulative histogram metric from the
// collector's raw reload-duration observations, bucketed at the
// millisecond boundaries a hot-reload sweep is expected to land within.
func (r *Registerer) reloadHistogram() prometheus.Metric {
	buckets := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}
	counts := make(map[float64]uint64, len(buckets))
	var sum float64
	var total uint64

	for _, d := range r.collector.reloadDurationsCopy() {
		secs := d.Seconds()
		sum += secs
		total++
		for _, b := range buckets {
			if secs <= b {
				counts[b]++
			}
		}
	}

	return prometheus.MustNewConstHistogram(r.reloadHist, total, sum, counts)
}

var _ prometheus.Collector = (*Registerer)(nil)
