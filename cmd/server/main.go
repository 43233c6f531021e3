package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"usdt-settlement-go/internal/api"
	"usdt-settlement-go/internal/common"
	"usdt-settlement-go/internal/config"
	"usdt-settlement-go/internal/deposit"
	"usdt-settlement-go/internal/reconciler"
	"usdt-settlement-go/internal/withdraw"

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

	zap.L().Info("Starting settlement API server")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	deposits := deposit.NewService(services.DbService, services.Oracle, services.Registry, cfg.Reconciler.AddressTTL)
	withdrawals := withdraw.NewService(services.DbService, services.Oracle, services.Registry)
	handler := api.NewHandler(deposits, withdrawals, services.DbService, services.Registry)

	engine := reconciler.NewEngine(services.DbService, services.Oracle, deposits, cfg.Reconciler)
	if err := engine.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start reconciliation engine", zap.Error(err))
	}

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: api.NewRouter(handler),
	}

	go func() {
		zap.L().Info("Listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
	} else {
		zap.L().Info("Server stopped gracefully")
	}

	// Stop the engine after the HTTP surface so no new deposits arrive
	// while an in-flight tick finishes.
	engineDone := make(chan struct{})
	go func() {
		engine.Stop()
		close(engineDone)
	}()

	select {
	case <-engineDone:
		zap.L().Info("Reconciliation engine stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Engine shutdown timed out")
	}
}
