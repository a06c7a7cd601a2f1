package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/quillhub/scribe/internal/app"
	"github.com/quillhub/scribe/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scribed server",
	Long: `Start the API server (the Post/Ws wire-envelope endpoint) and the
monitor server (health/info/metrics/var) and run until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	a, err := app.New(*cfg)
	if err != nil {
		return err
	}
	log := a.Log()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.RunBackground(ctx)

	apiServer := &http.Server{Addr: cfg.Server.ListenAddr, Handler: a.Router()}
	monitorServer := &http.Server{Addr: cfg.Monitor.ListenAddr, Handler: a.MonitorHandler()}

	errCh := make(chan error, 2)
	go func() { errCh <- serveOrNil(apiServer) }()
	go func() { errCh <- serveOrNil(monitorServer) }()
	log.Info("scribed listening",
		zap.String("api", cfg.Server.ListenAddr),
		zap.String("monitor", cfg.Monitor.ListenAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("server exited with error", zap.Error(err))
			return err
		}
	}

	// §5's shutdown sequence: stop accepting new work, then drain
	// existing connections before the process exits.
	a.Shutdown().Initiate()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	app.DrainUntilEmpty(shutdownCtx, 250*time.Millisecond, a.ActiveConnections)

	shutdownErr := multierr.Append(apiServer.Shutdown(shutdownCtx), monitorServer.Shutdown(shutdownCtx))
	if shutdownErr != nil {
		log.Warn("server shutdown", zap.Error(shutdownErr))
	}
	a.Shutdown().Wait()
	log.Info("scribed stopped")
	return nil
}

func serveOrNil(s *http.Server) error {
	err := s.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
