// Package metrics registers the process-wide Prometheus gauges and
// counters exposed by the monitor surface (§6's GET /metrics), grounded
// on cuemby-warren/pkg/metrics/metrics.go's package-level
// var-plus-init-registration idiom.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoadFactor = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_load_factor",
		Help: "Composite load factor, scaled so 100 means heavy load.",
	})

	TrafficAllowed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_traffic_allowed",
		Help: "Whether the traffic signal currently allows traffic (1) or not (0).",
	})

	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_active_connections",
		Help: "Number of live websocket connections.",
	})

	ActiveDocuments = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_active_documents",
		Help: "Number of documents with an open coordinator.",
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_active_sessions",
		Help: "Number of live (author, document, caret) sessions.",
	})

	StoreRoughSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_store_rough_size_bytes",
		Help: "Rough estimate of on-disk store size in bytes.",
	})

	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_updates_total",
		Help: "Total document updates applied, by OT flavor and outcome.",
	}, []string{"flavor", "outcome"})

	UpdateConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_update_conflicts_total",
		Help: "Updates that exhausted the coordinator's retry budget.",
	}, []string{"flavor"})

	DeltaAfterWaiters = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_delta_after_waiters",
		Help: "Subscribers currently blocked in deltaAfter.",
	})

	SessionsEndedIdleTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scribe_sessions_ended_idle_total",
		Help: "Sessions ended by the idle sweep rather than an explicit session_end.",
	})
)

func init() {
	prometheus.MustRegister(
		LoadFactor,
		TrafficAllowed,
		ActiveConnections,
		ActiveDocuments,
		ActiveSessions,
		StoreRoughSize,
		UpdatesTotal,
		UpdateConflictsTotal,
		DeltaAfterWaiters,
		SessionsEndedIdleTotal,
	)
}

// Handler exposes the registered metrics in Prometheus text format
// (§6's GET /metrics).
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetTrafficAllowed records the traffic signal's current decision as a
// 0/1 gauge, since Prometheus has no native boolean type.
func SetTrafficAllowed(allow bool) {
	if allow {
		TrafficAllowed.Set(1)
	} else {
		TrafficAllowed.Set(0)
	}
}

// Timer measures an operation's duration for later observation against a
// histogram, mirroring the pack's Timer/ObserveDuration convenience.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
