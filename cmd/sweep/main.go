package main

import (
	"context"
	"fmt"
	"time"

	"usdt-settlement-go/internal/common"
	"usdt-settlement-go/internal/config"

	"go.uber.org/zap"
)

// One-shot expiry sweep, suitable for cron.
func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	pending, err := dbService.GetPendingAddresses(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list pending addresses", zap.Error(err))
	}

	expired, err := dbService.ExpireAddresses(ctx, time.Now())
	if err != nil {
		zap.L().Fatal("Failed to expire addresses", zap.Error(err))
	}

	common.PrintHeader("EXPIRY SWEEP", common.DefaultWidth)
	fmt.Printf("Pending before sweep: %d\n", len(pending))
	fmt.Printf("Expired this sweep:   %d\n", expired)
	common.PrintSeparator("=", common.DefaultWidth)

	zap.L().Info("Sweep completed",
		zap.Int("pending_before", len(pending)),
		zap.Int64("expired", expired))
}
