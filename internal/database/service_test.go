package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"usdt-settlement-go/internal/models"
)

func setupTestDb(t *testing.T) *Service {
	t.Helper()

	cfg := models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	}

	service, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)

	return service
}

func createTestUser(t *testing.T, service *Service, name, email string) *models.User {
	t.Helper()

	user, err := service.CreateUser(context.Background(), "", name, email)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func TestNewService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"empty path", models.DatabaseConfig{MaxOpenConns: 1, PingTimeout: time.Second}},
		{"zero max open conns", models.DatabaseConfig{Path: "test.db", PingTimeout: time.Second}},
		{"negative max idle conns", models.DatabaseConfig{Path: "test.db", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second}},
		{"zero ping timeout", models.DatabaseConfig{Path: "test.db", MaxOpenConns: 1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewService(context.Background(), test.cfg); err == nil {
				t.Error("expected configuration error, got nil")
			}
		})
	}
}
