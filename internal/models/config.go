package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Reconciler ReconcilerConfig
	Oracle     OracleConfig
	Server     ServerConfig
	Networks   NetworksConfig
}

// DatabaseConfig holds ledger store connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ReconcilerConfig holds deposit reconciliation engine settings
type ReconcilerConfig struct {
	PollInterval  time.Duration
	ErrorBackoff  time.Duration
	OracleTimeout time.Duration
	AddressTTL    time.Duration
}

// OracleConfig holds chain gateway client settings
type OracleConfig struct {
	GatewayURL     string
	RequestTimeout time.Duration
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// NetworksConfig points at the optional per-network parameter file
type NetworksConfig struct {
	File string
}
