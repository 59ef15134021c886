// Package metrics provides Prometheus metrics for fsguard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/indexing"
)

// Collectors holds every fsguard metric. It satisfies the observer
// interfaces of the indexing, search and editing packages.
type Collectors struct {
	refreshesTotal  *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	changedDirs     prometheus.Histogram
	filesTracked    *prometheus.GaugeVec
	dirsTracked     *prometheus.GaugeVec
	degradedTotal   prometheus.Counter

	searchesTotal  *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec

	editsTotal *prometheus.CounterVec

	toolCallsTotal   *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		refreshesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_tree_refreshes_total",
				Help: "Tree index refreshes by kind (fresh, partial, full, loaded)",
			},
			[]string{"kind"},
		),
		refreshDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsguard_tree_refresh_duration_seconds",
				Help:    "Time to bring a tree index up to date",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		changedDirs: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fsguard_tree_changed_dirs",
				Help:    "Directories found changed by the liveness check",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 100, 1000},
			},
		),
		filesTracked: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fsguard_tree_files",
				Help: "Files tracked per base directory",
			},
			[]string{"base_dir"},
		),
		dirsTracked: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fsguard_tree_dirs",
				Help: "Directories tracked per base directory",
			},
			[]string{"base_dir"},
		),
		degradedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fsguard_tree_degraded_walks_total",
				Help: "Walks that hit a file or directory cap",
			},
		),
		searchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_searches_total",
				Help: "Searches by kind and outcome",
			},
			[]string{"kind", "result"},
		),
		searchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsguard_search_duration_seconds",
				Help:    "Search latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		editsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_edits_total",
				Help: "Line edits by operation and outcome",
			},
			[]string{"op", "result"},
		),
		toolCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_tool_calls_total",
				Help: "MCP tool calls by tool and outcome",
			},
			[]string{"tool", "result"},
		),
		toolCallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsguard_tool_call_duration_seconds",
				Help:    "MCP tool call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
	}
}

// ObserveRefresh implements indexing.Observer
func (c *Collectors) ObserveRefresh(ev indexing.RefreshEvent) {
	kind := string(ev.Kind)
	if ev.Loaded && ev.Kind == indexing.RefreshFresh {
		kind = "loaded"
	}
	c.refreshesTotal.WithLabelValues(kind).Inc()
	c.refreshDuration.WithLabelValues(kind).Observe(ev.Duration.Seconds())
	c.changedDirs.Observe(float64(ev.ChangedDirs))
	c.filesTracked.WithLabelValues(ev.BaseDir).Set(float64(ev.Files))
	c.dirsTracked.WithLabelValues(ev.BaseDir).Set(float64(ev.Dirs))
	if ev.Degraded {
		c.degradedTotal.Inc()
	}
}

// ObserveSearch implements search.Observer
func (c *Collectors) ObserveSearch(kind string, duration time.Duration, err error) {
	c.searchesTotal.WithLabelValues(kind, result(err)).Inc()
	c.searchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveEdit implements editing.Observer
func (c *Collectors) ObserveEdit(op string, err error) {
	c.editsTotal.WithLabelValues(op, result(err)).Inc()
}

// ObserveToolCall records one MCP tool invocation
func (c *Collectors) ObserveToolCall(tool string, duration time.Duration, err error) {
	c.toolCallsTotal.WithLabelValues(tool, result(err)).Inc()
	c.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// result labels an outcome with "ok" or the error kind
func result(err error) string {
	if err == nil {
		return "ok"
	}
	return string(fserrors.TypeOf(err))
}
