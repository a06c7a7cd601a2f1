package apiserver

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Recovery wraps next with panic recovery, logging the stack trace via
// zap instead of writing it back to the client (§9: response-wrapping
// middleware with deterministic finalization, generalized from
// internal/delivery/http/middleware.go's RecoveryMiddleware, which logs
// via the stdlib log package and also echoes the stack to the caller —
// this version keeps the trace server-side only).
func Recovery(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered",
					zap.Any("error", err),
					zap.ByteString("stack", debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequestLabel assigns a short random label to each request for log
// correlation (§4.6), generalized from internal/delivery/http's
// per-request logging into a structured zap field instead of a
// full-body dump.
func RequestLabel(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		label := uuid.NewString()[:8]
		start := time.Now()
		reqLog := log.With(zap.String("req", label), zap.String("path", r.URL.Path))
		ctx := withRequestLogger(r.Context(), reqLog)
		next.ServeHTTP(w, r.WithContext(ctx))
		reqLog.Debug("request handled", zap.Duration("duration", time.Since(start)))
	})
}

// RateLimit enforces one accept-side limiter, built on
// golang.org/x/time/rate and shared by every request next serves.
func RateLimit(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Metrics are the Prometheus counters/histograms the apiserver
// exposes, grounded on cuemby-warren/pkg/metrics/metrics.go's
// registration idiom.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the apiserver's counters against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_apiserver_requests_total",
			Help: "Total wire-envelope requests dispatched, by method and outcome.",
		}, []string{"method", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "scribe_apiserver_request_duration_seconds",
			Help: "Wire-envelope request dispatch latency.",
		}, []string{"method"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

func (m *Metrics) Observe(method, outcome string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}
