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

	"github.com/farmercorner/motor-dashboard/internal/api"
	"github.com/farmercorner/motor-dashboard/internal/config"
	"github.com/farmercorner/motor-dashboard/internal/logging"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/farmercorner/motor-dashboard/internal/service"
	"github.com/farmercorner/motor-dashboard/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	repos, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.Shutdown(closeCtx); err != nil {
			log.Warn("failed to close storage", "error", err)
		}
	}()

	metrics := observability.NewMetrics()

	// Initialize WebSocket hub
	hub := websocket.NewHub(metrics, log.With("component", "hub"))
	go hub.Run()
	defer hub.Stop()

	// Initialize services
	services, err := service.NewServices(service.Deps{
		Repos:     repos,
		Config:    cfg,
		Metrics:   metrics,
		Publisher: hub,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go services.Sessions.RunJanitor(janitorCtx, cfg.SessionCleanupInterval)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           api.NewRouter(services, hub, metrics, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "storage", cfg.StorageDriver, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
