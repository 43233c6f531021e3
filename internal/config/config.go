package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"usdt-settlement-go/internal/models"
)

func Load() (*models.Config, error) {
	pollInterval, err := getEnvDuration("RECONCILER_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	errorBackoff, err := getEnvDuration("RECONCILER_ERROR_BACKOFF", 5*time.Second)
	if err != nil {
		return nil, err
	}

	oracleTimeout, err := getEnvDuration("RECONCILER_ORACLE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	addressTTL, err := getEnvDuration("DEPOSIT_ADDRESS_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	oracleRequestTimeout, err := getEnvDuration("ORACLE_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Reconciler: models.ReconcilerConfig{
			PollInterval:  pollInterval,
			ErrorBackoff:  errorBackoff,
			OracleTimeout: oracleTimeout,
			AddressTTL:    addressTTL,
		},
		Oracle: models.OracleConfig{
			GatewayURL:     getEnvString("CHAIN_GATEWAY_URL", "http://localhost:8545"),
			RequestTimeout: oracleRequestTimeout,
		},
		Server: models.ServerConfig{
			ListenAddr:      getEnvString("SERVER_LISTEN_ADDR", ":8080"),
			ShutdownTimeout: shutdownTimeout,
		},
		Networks: models.NetworksConfig{
			File: getEnvString("NETWORKS_FILE", ""),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
