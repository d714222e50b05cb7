// Command recursive-llm-gateway is the entry point for the recursive
// reasoning gateway. It loads configuration, wires up the LLM provider and
// orchestration components, starts the OpenAI-compatible HTTP server, and
// handles graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jgavinray/recursive-llm-gateway/internal/config"
	"github.com/jgavinray/recursive-llm-gateway/internal/gateway"
	"github.com/jgavinray/recursive-llm-gateway/internal/httpserver"
	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
	"github.com/jgavinray/recursive-llm-gateway/internal/logging"
	"github.com/jgavinray/recursive-llm-gateway/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional: local development convenience only, never required.
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config/gateway.yaml", "path to gateway.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config %q: %w", *cfgPath, err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("config", *cfgPath),
		slog.String("backend_url", cfg.Backend.URL),
		slog.String("planner_model", cfg.Models.Planner.Name),
		slog.String("verifier_model", cfg.Models.Verifier.Name),
		slog.Int("escalation_ladder_size", len(cfg.Escalation.Ladder)),
	)

	var errLogger *logging.ErrorLogger
	if cfg.Logging.ErrorLogDir != "" && cfg.Logging.ErrorLogFilename != "" {
		errLogger = logging.NewErrorLogger(cfg.Logging.ErrorLogDir, cfg.Logging.ErrorLogFilename)
	}

	tracerProvider, err := telemetry.Setup(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		return fmt.Errorf("initialising telemetry: %w", err)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Backend.CallTimeoutSeconds) * time.Second}
	provider := llm.NewBackendProvider(cfg.Backend.URL, httpClient)
	embedder := llm.NewBackendEmbedder(cfg.Backend.URL, httpClient)

	gw := gateway.New(cfg, provider, embedder, tracerProvider, errLogger)

	srv := httpserver.New(cfg, gw, logger)

	// Start listening in the background.
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			serverErr <- err
		}
	}()

	// Block until an OS signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("signal received, shutting down", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with background context (run() context is finished).
	if err := srv.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err := tracerProvider.Shutdown(context.Background()); err != nil {
		logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}

	logger.Info("shutdown complete")
	return nil
}
