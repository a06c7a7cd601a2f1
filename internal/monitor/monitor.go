// Package monitor implements the separate monitor HTTP server §6
// describes: /health, /info, /metrics, /load-factor, /traffic-signal,
// /var. Grounded on cuemby-warren/pkg/api/health.go's
// ServeMux-of-small-JSON-handlers shape and its HealthServer.Start
// convenience for running it as its own *http.Server.
package monitor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quillhub/scribe/internal/metrics"
	"github.com/quillhub/scribe/internal/trafficsignal"
)

// Source supplies the live values monitor handlers report. The app
// façade implements it; monitor only depends on this narrow interface
// so it never needs to import the coordinator/session/store packages
// directly (§9's break-cyclic-references-via-minimal-interfaces note).
type Source interface {
	Healthy() bool
	LoadFactor() int
	TrafficSignal() (allow bool, reason trafficsignal.Reason)
	ActiveConnections() int
	ActiveDocuments() int
	ActiveSessions() int
	RootTokenIds() []string
	BuildInfo() BuildInfo
}

// BuildInfo is the static descriptor §6's GET /info reports.
type BuildInfo struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	BootedAt  time.Time `json:"bootedAt"`
	GoVersion string    `json:"goVersion"`
}

// Server is the monitor HTTP handler.
type Server struct {
	source Source
	mux    *http.ServeMux
}

// New builds a monitor Server backed by source.
func New(source Source) *Server {
	s := &Server{source: source, mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/info", s.handleInfo)
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/load-factor", s.handleLoadFactor)
	s.mux.HandleFunc("/traffic-signal", s.handleTrafficSignal)
	s.mux.HandleFunc("/var", s.handleVar)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the underlying mux for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.source.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("unhealthy"))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := s.source.BuildInfo()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"boot": map[string]interface{}{
			"at": info.BootedAt,
		},
		"build": map[string]interface{}{
			"version": info.Version,
			"commit":  info.Commit,
		},
		"runtime": map[string]interface{}{
			"goVersion": info.GoVersion,
			"uptime":    time.Since(info.BootedAt).String(),
		},
	})
}

func (s *Server) handleLoadFactor(w http.ResponseWriter, r *http.Request) {
	lf := s.source.LoadFactor()
	metrics.LoadFactor.Set(float64(lf))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"heavy": 100,
		"value": lf,
	})
}

func (s *Server) handleTrafficSignal(w http.ResponseWriter, r *http.Request) {
	allow, reason := s.source.TrafficSignal()
	metrics.SetTrafficAllowed(allow)
	status := http.StatusOK
	if !allow {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(string(reason)))
}

// redactedTokenId shortens a bearer token's public id to its first 4
// characters plus an ellipsis, for display on /var.
func redactedTokenId(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[:4] + "…"
}

func (s *Server) handleVar(w http.ResponseWriter, r *http.Request) {
	ids := s.source.RootTokenIds()
	redacted := make([]string, len(ids))
	for i, id := range ids {
		redacted[i] = redactedTokenId(id)
	}
	allow, reason := s.source.TrafficSignal()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections":   s.source.ActiveConnections(),
		"documents":     s.source.ActiveDocuments(),
		"sessions":      s.source.ActiveSessions(),
		"loadFactor":    s.source.LoadFactor(),
		"trafficAllow":  allow,
		"trafficReason": reason,
		"rootTokenIds":  redacted,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
