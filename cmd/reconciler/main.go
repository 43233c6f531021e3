package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usdt-settlement-go/internal/common"
	"usdt-settlement-go/internal/config"
	"usdt-settlement-go/internal/deposit"
	"usdt-settlement-go/internal/reconciler"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting deposit reconciler")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	deposits := deposit.NewService(services.DbService, services.Oracle, services.Registry, cfg.Reconciler.AddressTTL)
	engine := reconciler.NewEngine(services.DbService, services.Oracle, deposits, cfg.Reconciler)

	if err := engine.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start reconciliation engine", zap.Error(err))
	}

	zap.L().Info("Reconciler running", zap.Duration("poll_interval", cfg.Reconciler.PollInterval))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping reconciler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		engine.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Reconciler stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
