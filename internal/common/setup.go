package common

import (
	"context"
	"log"
	"strings"

	"usdt-settlement-go/internal/database"
	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/networks"
	"usdt-settlement-go/internal/oracle"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via other means (shell
	// export, docker, etc.), so a missing .env file is fine.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Oracle    oracle.Oracle
	Registry  *networks.Registry
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	registry, err := networks.LoadRegistry(cfg.Networks.File)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	zap.L().Info("Connecting to chain gateway", zap.String("url", cfg.Oracle.GatewayURL))
	chainOracle := oracle.NewClient(cfg.Oracle.GatewayURL, cfg.Oracle.RequestTimeout)

	return &Services{
		DbService: dbService,
		Oracle:    chainOracle,
		Registry:  registry,
	}, nil
}

// InitializeDatabaseOnly initializes just the ledger store without the
// chain gateway. Useful for read-only operations like querying balances.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
