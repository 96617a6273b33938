package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ovifx6/Ovizone/internal/config"
	"github.com/ovifx6/Ovizone/internal/supervisor"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("Starting Ovizone agent supervisor")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if err := cfg.ValidateForSupervisor(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	sup, err := supervisor.New(cfg.Supervisor, logger)
	if err != nil {
		logger.Fatal("Failed to initialize supervisor", zap.Error(err))
	}

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Supervisor.Host, cfg.Supervisor.Port),
		Handler:      sup.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Control server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start control server", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Shutting down supervisor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Supervisor.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Control server forced to shutdown", zap.Error(err))
	}

	if err := sup.Stop(); err != nil && err != supervisor.ErrNotRunning {
		logger.Error("Failed to stop agent", zap.Error(err))
	}
	logger.Info("Supervisor shutdown completed")
}

// initLogger initializes the structured logger based on environment.
func initLogger() (*zap.Logger, error) {
	var config zap.Config
	switch os.Getenv("GO_ENV") {
	case "production":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
