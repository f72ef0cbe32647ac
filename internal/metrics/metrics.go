// Package metrics holds the Prometheus instruments of the query pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jengzang/simplegis/internal/models"
)

const namespace = "simplegis"

// Metrics groups the query pipeline instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	rowsScanned   *prometheus.CounterVec
	truncated     *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
}

// New registers the instruments on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries handled, by element type and outcome.",
		}, []string{"type", "status"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time from request to assembled payload.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"type"}),
		rowsScanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_scanned_total",
			Help:      "Rows consumed from source cursors.",
		}, []string{"type"}),
		truncated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncated_total",
			Help:      "Queries stopped by the row cap.",
		}, []string{"type"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Result cache hits.",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Result cache misses.",
		}),
	}
}

// typeLabel keeps label cardinality bounded: every grouped type is "group"
func typeLabel(t models.ElementType) string {
	switch {
	case t.IsMarker(), t == models.ElementHeatmap:
		return string(t)
	}
	return "group"
}

// ObserveQuery records one finished request
func (m *Metrics) ObserveQuery(t models.ElementType, status string, d time.Duration) {
	if m == nil {
		return
	}
	l := typeLabel(t)
	m.queries.WithLabelValues(l, status).Inc()
	m.queryDuration.WithLabelValues(l).Observe(d.Seconds())
}

// AddRows counts rows read for a query
func (m *Metrics) AddRows(t models.ElementType, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsScanned.WithLabelValues(typeLabel(t)).Add(float64(n))
}

// Truncated counts a row-capped query
func (m *Metrics) Truncated(t models.ElementType) {
	if m == nil {
		return
	}
	m.truncated.WithLabelValues(typeLabel(t)).Inc()
}

// CacheHit counts a result cache hit
func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// CacheMiss counts a result cache miss
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}
