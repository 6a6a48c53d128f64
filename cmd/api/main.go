package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrJamesThe3rd/playledger/internal/config"
	"github.com/MrJamesThe3rd/playledger/internal/database"
	"github.com/MrJamesThe3rd/playledger/internal/export"
	ledgerHttp "github.com/MrJamesThe3rd/playledger/internal/http"
	"github.com/MrJamesThe3rd/playledger/internal/http/auth"
	exportHandler "github.com/MrJamesThe3rd/playledger/internal/http/export"
	importHandler "github.com/MrJamesThe3rd/playledger/internal/http/importfile"
	purchaseHandler "github.com/MrJamesThe3rd/playledger/internal/http/purchase"
	sessionHandler "github.com/MrJamesThe3rd/playledger/internal/http/session"
	"github.com/MrJamesThe3rd/playledger/internal/identity"
	"github.com/MrJamesThe3rd/playledger/internal/importer"
	"github.com/MrJamesThe3rd/playledger/internal/kv"
	"github.com/MrJamesThe3rd/playledger/internal/kv/sqlite"
	"github.com/MrJamesThe3rd/playledger/internal/ledger/remote"
	"github.com/MrJamesThe3rd/playledger/internal/ledger/remote/memstore"
	remoteStore "github.com/MrJamesThe3rd/playledger/internal/ledger/remote/store"
	"github.com/MrJamesThe3rd/playledger/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	issuer, err := identity.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}

	localKV, closeKV, err := openLocal(cfg)
	if err != nil {
		return err
	}
	defer closeKV()

	remoteKV, closeRemote, err := openRemote(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRemote()

	var (
		importService = importer.NewService()
		exportService = export.NewService()
		registry      = session.NewRegistry(
			session.DefaultFactory{KV: localKV, Remote: remoteKV, Logger: slog.Default()},
			session.Options{
				SeedDemo: cfg.Demo.Seed,
				Importer: importService,
				Exporter: exportService,
			},
		)
	)
	defer registry.Close()

	go registry.RunEvictor(ctx, cfg.Session.IdleTimeout, cfg.Session.EvictInterval)

	var (
		sessionH  = sessionHandler.NewHandler(issuer, registry)
		purchaseH = purchaseHandler.NewHandler()
		importH   = importHandler.NewHandler(importService)
		exportH   = exportHandler.NewHandler(exportService)
	)

	router := ledgerHttp.New(cfg.Server.AllowedOrigins, auth.New(issuer, registry, cfg.Session.SignInTimeout), sessionH, purchaseH, importH, exportH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr, "remote", cfg.Remote.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}

func openLocal(cfg *config.Config) (kv.Store, func(), error) {
	if cfg.Local.Path == "" {
		return kv.NewMemory(), func() {}, nil
	}

	store, err := sqlite.New(cfg.Local.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening local store: %w", err)
	}

	return store, func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close local store", "error", err)
		}
	}, nil
}

func openRemote(ctx context.Context, cfg *config.Config) (remote.RemoteStore, func(), error) {
	if cfg.Remote.Backend == config.BackendMemory {
		slog.Warn("using in-memory remote store, synced ledgers are lost on restart")
		return memstore.New(), func() {}, nil
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	return remoteStore.New(db), db.Close, nil
}
