package apiserver

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// APIPrefix is the mount point for the RPC endpoint (§6): both the plain
// POST handler and the websocket upgrade live under it, and any upgrade
// request whose path falls outside it is rejected with 404 rather than
// silently handled.
const APIPrefix = "/api"

// RouterConfig bundles what NewRouter needs to build the API mux.
type RouterConfig struct {
	Dispatch    *Dispatcher
	Log         *zap.Logger
	Metrics     *Metrics
	RateLimiter *rate.Limiter
	StaticDirs  map[string]http.Dir // url prefix -> filesystem dir, peripheral (§6)

	// OnConnect, if set, is handed every freshly upgraded websocket
	// connection so the app layer can register it for server-initiated
	// pushes (§4.6) before traffic starts flowing.
	OnConnect func(*WsConnection)

	// Authenticate, if set, resolves the bearer token on r into a
	// targetId already attached in the Dispatcher's Context (§4.5: "a
	// PostConnection or WsConnection obtains its root/author target by
	// presenting a token"). Called once per incoming connection; the
	// resulting targetId is handed back to the caller via the
	// X-Target-Id response header (Post) or an initial "attached" Push
	// (Ws), rather than a change to the wire envelope itself.
	Authenticate func(r *http.Request) (targetId string, err error)
}

// NewRouter builds the application server's http.Handler: the RPC
// endpoint (POST + websocket upgrade) under APIPrefix, wrapped in
// Recovery/RequestLabel/RateLimit, plus any configured static asset
// trees. Grounded on internal/delivery/http's route-registration shape,
// generalized from a fixed set of REST routes to the single wire-envelope
// endpoint this system exposes.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	mux := http.NewServeMux()

	rpc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, APIPrefix) {
			http.NotFound(w, r)
			return
		}

		start := time.Now()

		var targetId string
		if cfg.Authenticate != nil {
			id, err := cfg.Authenticate(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			targetId = id
		}

		if websocketUpgradeRequested(r) {
			conn, err := Upgrade(w, r, cfg.Dispatch, requestLogger(r.Context()))
			if err != nil {
				log.Warn("websocket upgrade failed", zap.Error(err))
				return
			}
			if targetId != "" {
				if err := conn.Push(Push{TargetId: targetId, Event: "attached"}); err != nil {
					log.Warn("failed to push attached targetId", zap.Error(err))
				}
			}
			if cfg.OnConnect != nil {
				cfg.OnConnect(conn)
			}
			if cfg.Metrics != nil {
				cfg.Metrics.Observe("ws_upgrade", "ok", time.Since(start))
			}
			return
		}

		if targetId != "" {
			w.Header().Set("X-Target-Id", targetId)
		}
		post := NewPostConnection(cfg.Dispatch, log)
		post.ServeHTTP(w, r)
		if cfg.Metrics != nil {
			cfg.Metrics.Observe("post", "handled", time.Since(start))
		}
	})

	var handler http.Handler = rpc
	if cfg.RateLimiter != nil {
		handler = RateLimit(cfg.RateLimiter, handler)
	}
	handler = RequestLabel(log, handler)
	handler = Recovery(log, handler)

	mux.Handle(APIPrefix, handler)
	mux.Handle(APIPrefix+"/", handler)

	for prefix, dir := range cfg.StaticDirs {
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(dir)))
	}

	return mux
}

func websocketUpgradeRequested(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
