// Command tracesink is a local stand-in for the Langfuse public traces API.
// Point LANGFUSE_HOST at it to watch what the hook sends.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/tracehook/internal/config"
	"github.com/MikeSquared-Agency/tracehook/internal/hermes"
	"github.com/MikeSquared-Agency/tracehook/internal/sink"
	"github.com/MikeSquared-Agency/tracehook/internal/store"
)

type traceStore interface {
	sink.Store
	Close()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadSink(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	slog.Info("tracesink starting", "port", cfg.Port)

	// Storage
	var st traceStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("database connected")
	} else {
		st = store.NewMemory()
		slog.Warn("DATABASE_URL not set, keeping traces in memory")
	}
	defer st.Close()

	opts := sink.Options{
		Port:      cfg.Port,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
	}

	// NATS (optional)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		opts.Notifier = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL, "subject", hermes.SubjectTraceReceived)
	}

	if opts.PublicKey == "" && opts.SecretKey == "" {
		slog.Warn("LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY unset, accepting unauthenticated traces")
	}

	srv := sink.NewServer(opts, st, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	slog.Info("tracesink stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
