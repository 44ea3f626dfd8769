package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewilliams-labs/moodmix/backend/internal/app"
	"github.com/ewilliams-labs/moodmix/backend/internal/config"
	"github.com/ewilliams-labs/moodmix/backend/internal/shared"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := shared.NewLogger(os.Stderr)

	// 1. Configuration: config.toml, then .env, then the environment.
	configPath := os.Getenv("MOODMIX_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}
	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	if !shared.SetLogLevel(logger, cfg.LogLevel) {
		logger.Warn("unknown log level, using info", "level", cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Adapters and core services.
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()

	// 3. Start the Server
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           application.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	logger.Info("🎶 MoodMix API is running", "addr", srv.Addr)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}
}
