package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/networks"
	"usdt-settlement-go/internal/store"
)

func createTestAddress(t *testing.T, service *Service, userId string, expiresAt time.Time) *models.DepositAddress {
	t.Helper()

	addr, err := service.CreateDepositAddress(context.Background(), store.CreateAddressParams{
		UserId:    userId,
		Network:   networks.TRC20,
		Amount:    decimal.NewFromInt(100),
		Address:   "T" + time.Now().Format("150405.000000000"),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		t.Fatalf("Failed to create test address: %v", err)
	}
	return addr
}

func TestCreateDepositAddress(t *testing.T) {
	service := setupTestDb(t)
	user := createTestUser(t, service, "Alice", "alice@example.com")

	addr, err := service.CreateDepositAddress(context.Background(), store.CreateAddressParams{
		UserId:    user.Id,
		Network:   networks.TRC20,
		Amount:    decimal.NewFromFloat(250.5),
		Address:   "Taddr1",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateDepositAddress failed: %v", err)
	}

	if addr.Status != models.AddressStatusPending {
		t.Errorf("expected status pending, got %s", addr.Status)
	}
	if !addr.Amount.Equal(decimal.NewFromFloat(250.5)) {
		t.Errorf("expected amount 250.5, got %s", addr.Amount)
	}
	if addr.CompletedAt != nil {
		t.Error("expected nil completed_at for new address")
	}
}

func TestCreateDepositAddress_Collision(t *testing.T) {
	service := setupTestDb(t)
	user := createTestUser(t, service, "Alice", "alice@example.com")

	params := store.CreateAddressParams{
		UserId:    user.Id,
		Network:   networks.BEP20,
		Amount:    decimal.NewFromInt(50),
		Address:   "0xsame",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	if _, err := service.CreateDepositAddress(context.Background(), params); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := service.CreateDepositAddress(context.Background(), params); !errors.Is(err, store.ErrAddressExists) {
		t.Errorf("expected ErrAddressExists, got %v", err)
	}
}

func TestGetDepositAddress_NotFound(t *testing.T) {
	service := setupTestDb(t)

	if _, err := service.GetDepositAddress(context.Background(), "missing"); !errors.Is(err, store.ErrAddressNotFound) {
		t.Errorf("expected ErrAddressNotFound, got %v", err)
	}
}

func TestGetPendingAddresses(t *testing.T) {
	service := setupTestDb(t)
	user := createTestUser(t, service, "Alice", "alice@example.com")

	createTestAddress(t, service, user.Id, time.Now().Add(time.Hour))
	cancelled := createTestAddress(t, service, user.Id, time.Now().Add(time.Hour))
	if _, err := service.CancelDepositAddress(context.Background(), cancelled.Id); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	pending, err := service.GetPendingAddresses(context.Background())
	if err != nil {
		t.Fatalf("GetPendingAddresses failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending address, got %d", len(pending))
	}
}

func TestExpireAddresses(t *testing.T) {
	service := setupTestDb(t)
	user := createTestUser(t, service, "Alice", "alice@example.com")

	expired := createTestAddress(t, service, user.Id, time.Now().Add(-time.Minute))
	live := createTestAddress(t, service, user.Id, time.Now().Add(time.Hour))

	count, err := service.ExpireAddresses(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ExpireAddresses failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 address expired, got %d", count)
	}

	got, err := service.GetDepositAddress(context.Background(), expired.Id)
	if err != nil {
		t.Fatalf("failed to reload address: %v", err)
	}
	if got.Status != models.AddressStatusExpired {
		t.Errorf("expected status expired, got %s", got.Status)
	}

	got, err = service.GetDepositAddress(context.Background(), live.Id)
	if err != nil {
		t.Fatalf("failed to reload address: %v", err)
	}
	if got.Status != models.AddressStatusPending {
		t.Errorf("expected live address untouched, got %s", got.Status)
	}
}

func TestExpireAddresses_Idempotent(t *testing.T) {
	service := setupTestDb(t)
	user := createTestUser(t, service, "Alice", "alice@example.com")
	createTestAddress(t, service, user.Id, time.Now().Add(-time.Minute))

	if _, err := service.ExpireAddresses(context.Background(), time.Now()); err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	count, err := service.ExpireAddresses(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected second sweep to expire nothing, got %d", count)
	}
}

func TestCancelDepositAddress(t *testing.T) {
	service := setupTestDb(t)
	user := createTestUser(t, service, "Alice", "alice@example.com")
	addr := createTestAddress(t, service, user.Id, time.Now().Add(time.Hour))

	cancelled, err := service.CancelDepositAddress(context.Background(), addr.Id)
	if err != nil {
		t.Fatalf("CancelDepositAddress failed: %v", err)
	}
	if cancelled.Status != models.AddressStatusCancelled {
		t.Errorf("expected status cancelled, got %s", cancelled.Status)
	}

	// A terminal address cannot be cancelled again.
	if _, err := service.CancelDepositAddress(context.Background(), addr.Id); !errors.Is(err, store.ErrAddressNotPending) {
		t.Errorf("expected ErrAddressNotPending, got %v", err)
	}
}
