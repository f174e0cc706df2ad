package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	web "memberdesk/internal/adapters/http"
	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/adapters/identity"
	"memberdesk/internal/adapters/storage"
	accountStore "memberdesk/internal/adapters/storage/account"
	docStore "memberdesk/internal/adapters/storage/document"
	profileStore "memberdesk/internal/adapters/storage/profile"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/config"
	"memberdesk/pkg/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_event", "event", "fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)
	slog.Info("server_event", "event", "starting", "version", version, "env", cfg.Env, "addr", cfg.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("server_event", "event", "database_ready", "path", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Query instrumentation: every store goes through the timed DB.
	timedDB := storage.NewTimedDB(db, storage.NewQueryMetrics(reg), cfg.SlowQuery)

	accounts := accountStore.NewSQLiteStore(timedDB)
	docs := docStore.NewSQLiteStore(timedDB)
	profiles := profileStore.NewStore(docs)

	seedDeps := orchestrators.CreateAccountDeps{AccountStore: accounts, ProfileStore: profiles}
	if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		return err
	}

	csrfKey, err := web.LoadCSRFKey(cfg.CSRFKey, cfg.IsProduction())
	if err != nil {
		return err
	}

	srv := web.NewServer(web.Deps{
		Identity: identity.NewService(accounts, identity.Config{
			Secret:      []byte(cfg.TokenSecret),
			SessionTTL:  cfg.SessionTTL,
			RememberTTL: cfg.RememberTTL,
		}),
		Profiles: profiles,
		Docs:     docs,
		Gatherer: reg,
		Metrics:  middleware.NewRequestMetrics(reg),
		CSRFKey:  csrfKey,
		Secure:   cfg.IsProduction(),
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_event", "event", "listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
