package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/gridarena/internal/api"
	"github.com/mcoot/gridarena/internal/config"
	"github.com/mcoot/gridarena/internal/factory"
	"github.com/mcoot/gridarena/internal/logging"
	"github.com/mcoot/gridarena/internal/services/auth"
	redisstorage "github.com/mcoot/gridarena/internal/storage/redis"
)

const (
	sessionJanitorInterval = 5 * time.Minute
	sessionDrainTimeout    = 5 * time.Second
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		slog.Error("failed to set up logging", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		_ = logCloser.Close()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	rules := cfg.Rules()
	authCfg := auth.DefaultConfig()
	authCfg.SessionDuration = cfg.SessionDuration

	// Build factory config from environment
	factoryCfg := factory.Config{
		AuthConfig:  authCfg,
		Rules:       &rules,
		Logger:      logger,
		StorageType: cfg.StorageType,
		PostgresDSN: cfg.DatabaseURL,
	}
	if cfg.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return err
	}

	go app.AuthService.RunJanitor(ctx, sessionJanitorInterval)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = cfg.Addr
	server := api.NewServer(app.Handler(), serverConfig, logger)
	server.RegisterOnShutdown(app.Coordinator.Shutdown)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.Int("arena_width", rules.Arena.Width),
		slog.Int("arena_height", rules.Arena.Height))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
		drainSessions(app, logger)
		return nil
	}
}

// drainSessions waits for closed realtime sessions to finish their leave
// cleanup before storage is released
func drainSessions(app *factory.App, logger *slog.Logger) {
	deadline := time.Now().Add(sessionDrainTimeout)
	for !app.Coordinator.Idle() {
		if time.Now().After(deadline) {
			logger.Warn("sessions still open at shutdown", slog.Int("count", app.Coordinator.Connected()))
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
