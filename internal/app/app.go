// Package app wires every layer into one running process: the store
// backends, the token authority, the session registry, the apiserver
// dispatch table, and the monitor server, following
// crdtserver/main.go's Server-struct-owns-everything-and-exposes-
// Start/Close shape. It is the only package that knows every other
// package exists.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quillhub/scribe/internal/apiserver"
	"github.com/quillhub/scribe/internal/auth"
	"github.com/quillhub/scribe/internal/config"
	"github.com/quillhub/scribe/internal/coordinator"
	"github.com/quillhub/scribe/internal/loadfactor"
	"github.com/quillhub/scribe/internal/logging"
	"github.com/quillhub/scribe/internal/metrics"
	"github.com/quillhub/scribe/internal/monitor"
	"github.com/quillhub/scribe/internal/session"
	"github.com/quillhub/scribe/internal/store"
	"github.com/quillhub/scribe/internal/trafficsignal"
	"github.com/quillhub/scribe/ot/body"
	"github.com/quillhub/scribe/ot/caret"
	"github.com/quillhub/scribe/ot/common"
)

// Version and Commit are overridden at link time (-ldflags) by the
// release build; BootedAt is captured once, at App construction.
var (
	Version = "dev"
	Commit  = "unknown"
)

// App owns every long-lived component of one scribe daemon.
type App struct {
	cfg config.Config
	log *zap.Logger

	bodyStore  store.FileStore[body.Delta]
	caretStore store.FileStore[caret.Delta]
	authority  auth.TokenAuthority
	registry   *session.Registry
	apiCtx     *auth.Context

	shutdown *ShutdownManager
	signal   *trafficsignal.Signal
	signalMu sync.Mutex

	coordMu sync.Mutex
	coords  map[common.DocumentId]session.CoordinatorPair

	wsMu    sync.Mutex
	wsConns map[*apiserver.WsConnection]struct{}

	apiRouter     http.Handler
	monitorServer *monitor.Server

	bootedAt time.Time

	rawAddRootToken func(ctx context.Context, secret string) error

	rootIdsMu sync.Mutex
	rootIds   []string
}

// New builds every component described by cfg but starts nothing
// background yet; call RunBackground to begin serving and polling.
func New(cfg config.Config) (*App, error) {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("app: building logger: %w", err)
	}

	bodyStore, caretStore, err := buildStores(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("app: building stores: %w", err)
	}

	authority, addRootToken, err := buildAuthority(cfg)
	if err != nil {
		return nil, fmt.Errorf("app: building token authority: %w", err)
	}

	a := &App{
		cfg:             cfg,
		log:             log,
		bodyStore:       store.NewFileCache[body.Delta](bodyStore),
		caretStore:      store.NewFileCache[caret.Delta](caretStore),
		authority:       authority,
		registry:        session.NewRegistry(log),
		apiCtx:          auth.NewContext(),
		shutdown:        NewShutdownManager(),
		signal:          trafficsignal.New(),
		coords:          make(map[common.DocumentId]session.CoordinatorPair),
		wsConns:         make(map[*apiserver.WsConnection]struct{}),
		bootedAt:        time.Now(),
		rawAddRootToken: addRootToken,
	}
	for _, secret := range cfg.Auth.RootSecrets {
		a.trackRootTokenId(secret)
	}

	a.apiRouter = a.buildRouter()
	a.monitorServer = monitor.New(a)
	return a, nil
}

// trackRootTokenId records the loggable id prefix of a root secret so
// RootTokenIds (and monitor's /var, which redacts it further) can
// report which root credentials are live without ever exposing the
// secret itself.
func (a *App) trackRootTokenId(secret string) {
	tok, ok := auth.ParseBearerToken(auth.KindRoot, secret)
	if !ok {
		return
	}
	a.rootIdsMu.Lock()
	a.rootIds = append(a.rootIds, tok.Id)
	a.rootIdsMu.Unlock()
}

// addRootToken registers a new root secret with the authority and
// tracks its id for RootTokenIds.
func (a *App) addRootToken(ctx context.Context, secret string) error {
	if err := a.rawAddRootToken(ctx, secret); err != nil {
		return err
	}
	a.trackRootTokenId(secret)
	return nil
}

func buildStores(cfg config.StorageConfig) (store.FileStore[body.Delta], store.FileStore[caret.Delta], error) {
	switch cfg.Backend {
	case "badger":
		bodyDir := cfg.Dir + "/body"
		caretDir := cfg.Dir + "/caret"
		bodyStore, err := store.NewBadgerStore[body.Delta](bodyDir, body.New(), store.JSONCodec[body.Delta]{}, store.NewLocalNotifier())
		if err != nil {
			return nil, nil, err
		}
		caretStore, err := store.NewBadgerStore[caret.Delta](caretDir, caret.New(), store.JSONCodec[caret.Delta]{}, store.NewLocalNotifier())
		if err != nil {
			return nil, nil, err
		}
		return bodyStore, caretStore, nil
	default:
		bodyStore := store.NewMemStore[body.Delta](body.New(), store.JSONCodec[body.Delta]{}, store.NewLocalNotifier())
		caretStore := store.NewMemStore[caret.Delta](caret.New(), store.JSONCodec[caret.Delta]{}, store.NewLocalNotifier())
		return bodyStore, caretStore, nil
	}
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr}), nil
}

func buildAuthority(cfg config.Config) (auth.TokenAuthority, func(context.Context, string) error, error) {
	switch cfg.Auth.Backend {
	case "redis":
		client, err := newRedisClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		a := auth.NewRedisAuthority(client, cfg.Redis.KeyPrefix, cfg.Auth.DevMode)
		for _, secret := range cfg.Auth.RootSecrets {
			if err := a.AddRootToken(context.Background(), secret); err != nil {
				return nil, nil, err
			}
		}
		return a, a.AddRootToken, nil
	default:
		a := auth.NewMemAuthority(cfg.Auth.RootSecrets, cfg.Auth.DevMode)
		add := func(_ context.Context, secret string) error {
			a.AddRootToken(context.Background(), secret)
			return nil
		}
		return a, add, nil
	}
}

// fileIdFor namespaces one documentId's two OT flavors into distinct
// store keys, since body and caret share a documentId but live in
// separate FileStore instances.
func fileIdFor(flavor string, documentId common.DocumentId) common.FileId {
	return common.FileId(flavor + ":" + string(documentId))
}

// coordinatorsFor lazily builds (and caches) the CoordinatorPair
// serving documentId, resolving both OT flavors' FileHandle via the
// cached stores.
func (a *App) coordinatorsFor(documentId common.DocumentId) (session.CoordinatorPair, error) {
	a.coordMu.Lock()
	defer a.coordMu.Unlock()

	if pair, ok := a.coords[documentId]; ok {
		return pair, nil
	}

	bodyHandle, err := a.bodyStore.GetFile(context.Background(), fileIdFor("body", documentId))
	if err != nil {
		return session.CoordinatorPair{}, err
	}
	caretHandle, err := a.caretStore.GetFile(context.Background(), fileIdFor("caret", documentId))
	if err != nil {
		return session.CoordinatorPair{}, err
	}

	coordCfg := coordinator.Config{MaxAttempts: a.cfg.Coordinator.MaxAttempts}
	pair := session.CoordinatorPair{
		Body: coordinator.New[body.Delta](bodyHandle, coordCfg, a.log.Named("coordinator.body")),
		Caret: coordinator.New[caret.Delta](caretHandle, coordCfg, a.log.Named("coordinator.caret")).
			WithStrictCompose(func(current, delta caret.Delta) error {
				_, err := caret.ComposeStrict(current, delta)
				return err
			}),
	}
	a.coords[documentId] = pair
	return pair, nil
}

func newCaretId() common.CaretId {
	raw := make([]byte, 8)
	_, _ = rand.Read(raw)
	return common.CaretId(hex.EncodeToString(raw))
}

// buildRouter wires the shared Dispatcher (one Context, one set of
// MethodTables, for the life of the process) into the apiserver
// router, including the bearer-token authentication bootstrap (§4.5).
func (a *App) buildRouter() http.Handler {
	tables := map[string]apiserver.MethodTable{
		apiserver.ClassSession:      apiserver.SessionMethods(),
		apiserver.ClassAuthorAccess: apiserver.AuthorAccessMethods(a.apiCtx, a.coordinatorsFor, newCaretId),
		apiserver.ClassRootAccess:   apiserver.RootAccessMethodTable(a.rootMethodNames()),
	}
	dispatch := apiserver.NewDispatcher(a.apiCtx, tables, apiserver.ClassOf, a.log.Named("apiserver"))
	promMetrics := apiserver.NewMetrics(prometheus.DefaultRegisterer)

	var limiter *rate.Limiter
	if a.cfg.Server.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(a.cfg.Server.RateLimitRPS), a.cfg.Server.RateLimitBurst)
	}

	staticDirs := map[string]http.Dir{}
	if a.cfg.Server.StaticDir != "" {
		staticDirs["/"] = http.Dir(a.cfg.Server.StaticDir)
	}

	return apiserver.NewRouter(apiserver.RouterConfig{
		Dispatch:     dispatch,
		Log:          a.log.Named("router"),
		Metrics:      promMetrics,
		RateLimiter:  limiter,
		StaticDirs:   staticDirs,
		OnConnect:    a.registerWsConn,
		Authenticate: a.authenticate,
	})
}

// authenticate resolves the Authorization header's bearer token
// against the token authority, attaching the resulting capability to
// the shared Context and handing the caller its targetId (§4.5).
func (a *App) authenticate(r *http.Request) (string, error) {
	presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if presented == "" {
		return "", common.BadUse("missing bearer token")
	}

	if grant, ok, err := a.authority.VerifyRoot(r.Context(), presented); err != nil {
		return "", err
	} else if ok {
		return a.apiCtx.Attach(a.newRootAccess(grant)), nil
	}

	authorId := common.AuthorId(r.Header.Get("X-Author-Id"))
	if authorId == "" {
		return "", common.BadUse("author token presented without X-Author-Id")
	}
	ok, err := a.authority.VerifyAuthor(r.Context(), authorId, presented)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", common.BadUse("invalid bearer token")
	}
	return a.apiCtx.Attach(session.NewAuthorAccess(authorId, a.registry)), nil
}

func (a *App) registerWsConn(conn *apiserver.WsConnection) {
	a.wsMu.Lock()
	a.wsConns[conn] = struct{}{}
	a.wsMu.Unlock()
	conn.SetOnClose(func() { a.unregisterWsConn(conn) })
	metrics.ActiveConnections.Set(float64(a.connectionCount()))
}

func (a *App) unregisterWsConn(conn *apiserver.WsConnection) {
	a.wsMu.Lock()
	delete(a.wsConns, conn)
	a.wsMu.Unlock()
	metrics.ActiveConnections.Set(float64(a.connectionCount()))
}

func (a *App) connectionCount() int {
	a.wsMu.Lock()
	defer a.wsMu.Unlock()
	return len(a.wsConns)
}

// Router exposes the application HTTP handler for the process entry
// point to mount behind an *http.Server.
func (a *App) Router() http.Handler { return a.apiRouter }

// MonitorHandler exposes the monitor HTTP handler (§6), served on its
// own listen address so it can stay up independent of the API server's
// rate limiting and auth.
func (a *App) MonitorHandler() http.Handler { return a.monitorServer.Handler() }

// Shutdown returns the process-wide shutdown coordinator (§5).
func (a *App) Shutdown() *ShutdownManager { return a.shutdown }

// Log exposes the process-wide logger for the cmd entry point's
// startup/shutdown messages.
func (a *App) Log() *zap.Logger { return a.log }

// RunBackground starts the idle-session sweep, load-factor recompute,
// and root-token refresh loops, stopping them when ctx is cancelled.
// Grounded on crdtserver/main.go's background-goroutines-tied-to-one-
// cancel-context shutdown shape.
func (a *App) RunBackground(ctx context.Context) {
	go a.registry.RunIdleSweep(ctx, a.cfg.Session.SweepInterval, a.cfg.Session.IdleTimeout)
	go a.runLoadFactorLoop(ctx)
	go a.runRootTokenRefreshLoop(ctx)
}

func (a *App) runLoadFactorLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recomputeTrafficSignal()
		}
	}
}

func (a *App) recomputeTrafficSignal() {
	lf := a.LoadFactor()
	metrics.LoadFactor.Set(float64(lf))

	a.signalMu.Lock()
	allow, _ := a.signal.ShouldAllowTrafficAt(time.Now().UnixMilli(), trafficsignal.Inputs{
		Health:       true,
		LoadFactor:   lf,
		ShuttingDown: a.isShuttingDown(),
	})
	a.signalMu.Unlock()
	metrics.SetTrafficAllowed(allow)
}

func (a *App) runRootTokenRefreshLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := a.authority.WhenRootTokensChange(ctx, 30*time.Second); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log.Warn("root token refresh wait failed", zap.Error(err))
		}
	}
}

func (a *App) isShuttingDown() bool {
	select {
	case <-a.shutdown.WhenShuttingDown():
		return true
	default:
		return false
	}
}

// monitor.Source implementation.

func (a *App) Healthy() bool { return !a.isShuttingDown() }

func (a *App) LoadFactor() int {
	return loadfactor.Compute(loadfactor.Sample{
		ActiveConnections: a.connectionCount(),
		ActiveDocuments:   a.documentCount(),
		ActiveSessions:    a.sessionCount(),
		StoreRoughSize:    0,
	}, loadfactor.DefaultThresholds)
}

func (a *App) TrafficSignal() (bool, trafficsignal.Reason) {
	a.signalMu.Lock()
	defer a.signalMu.Unlock()
	return a.signal.ShouldAllowTrafficAt(time.Now().UnixMilli(), trafficsignal.Inputs{
		Health:       !a.isShuttingDown(),
		LoadFactor:   a.LoadFactor(),
		ShuttingDown: a.isShuttingDown(),
	})
}

func (a *App) ActiveConnections() int { return a.connectionCount() }

func (a *App) documentCount() int {
	a.coordMu.Lock()
	defer a.coordMu.Unlock()
	return len(a.coords)
}

func (a *App) ActiveDocuments() int { return a.documentCount() }

func (a *App) sessionCount() int {
	count := 0
	a.registry.Range(func(session.Key) bool {
		count++
		return true
	})
	return count
}

func (a *App) ActiveSessions() int { return a.sessionCount() }

func (a *App) RootTokenIds() []string {
	a.rootIdsMu.Lock()
	defer a.rootIdsMu.Unlock()
	ids := make([]string, len(a.rootIds))
	copy(ids, a.rootIds)
	return ids
}

func (a *App) BuildInfo() monitor.BuildInfo {
	return monitor.BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BootedAt:  a.bootedAt,
		GoVersion: runtime.Version(),
	}
}
