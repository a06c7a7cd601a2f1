package monitor

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quillhub/scribe/internal/trafficsignal"
)

type fakeSource struct {
	healthy bool
	lf      int
	allow   bool
}

func (f fakeSource) Healthy() bool    { return f.healthy }
func (f fakeSource) LoadFactor() int  { return f.lf }
func (f fakeSource) TrafficSignal() (bool, trafficsignal.Reason) {
	return f.allow, trafficsignal.ReasonAllowedOn
}
func (f fakeSource) ActiveConnections() int { return 3 }
func (f fakeSource) ActiveDocuments() int   { return 2 }
func (f fakeSource) ActiveSessions() int    { return 5 }
func (f fakeSource) RootTokenIds() []string { return []string{"abcdef0123456789"} }
func (f fakeSource) BuildInfo() BuildInfo {
	return BuildInfo{Version: "test", BootedAt: time.Now()}
}

func TestHealthReflectsSource(t *testing.T) {
	s := New(fakeSource{healthy: true})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	s = New(fakeSource{healthy: false})
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestLoadFactorBody(t *testing.T) {
	s := New(fakeSource{lf: 42})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/load-factor", nil))
	want := `{"heavy":100,"value":42}`
	if got := rec.Body.String(); got[:len(want)] != want {
		t.Fatalf("got %q, want prefix %q", got, want)
	}
}

func TestVarRedactsRootTokenIds(t *testing.T) {
	s := New(fakeSource{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/var", nil))
	if got := rec.Body.String(); got == "" || containsFullToken(got) {
		t.Fatalf("expected redacted ids, got %q", got)
	}
}

func containsFullToken(body string) bool {
	return len(body) > 0 && indexOf(body, "abcdef0123456789") >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
