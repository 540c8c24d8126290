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

	"github.com/urfave/cli/v2"
	"github.com/use-agent/snapscrape/api"
	"github.com/use-agent/snapscrape/webhook"
)

func serveAction(c *cli.Context) error {
	// ── 1. Load configuration and logging ───────────────────────────
	cfg := setup(c, os.Stdout)
	slog.Info("snapscrape starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxConcurrent", cfg.MaxConcurrent,
		"engines", cfg.Screenshot.Engines,
		"provider", cfg.VLM.Provider,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth enabled but no API keys configured; API is open")
	}

	// ── 2. Initialise the pipeline ──────────────────────────────────
	sc, err := buildScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialise scraper: %w", err)
	}

	// ── 3. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(sc, webhook.NewNotifier(cfg.Webhook.Secret), cfg)

	// ── 4. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 5. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("snapscrape stopped")
	return nil
}
