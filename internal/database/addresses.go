package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// CreateDepositAddress records a new pending deposit address. A collision
// with an existing address value returns store.ErrAddressExists so the
// caller can generate a fresh address and retry.
func (s *Service) CreateDepositAddress(ctx context.Context, params store.CreateAddressParams) (*models.DepositAddress, error) {
	addressId := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, queryInsertDepositAddress,
		addressId, params.UserId, string(params.Network), params.Amount.String(),
		params.Address, now, params.ExpiresAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrAddressExists, params.Address)
		}
		return nil, fmt.Errorf("failed to create deposit address: %w", err)
	}

	zap.L().Info("Deposit address created",
		zap.String("address_id", addressId),
		zap.String("user_id", params.UserId),
		zap.String("network", string(params.Network)),
		zap.String("amount", params.Amount.String()),
		zap.Time("expires_at", params.ExpiresAt))

	return s.GetDepositAddress(ctx, addressId)
}

func (s *Service) GetDepositAddress(ctx context.Context, addressId string) (*models.DepositAddress, error) {
	addr, err := scanDepositAddress(s.db.QueryRowContext(ctx, queryGetDepositAddress, addressId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrAddressNotFound, addressId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit address %s: %w", addressId, err)
	}
	return addr, nil
}

// GetPendingAddresses returns every address still awaiting settlement,
// oldest first, for the reconciliation sweep.
func (s *Service) GetPendingAddresses(ctx context.Context) ([]models.DepositAddress, error) {
	rows, err := s.db.QueryContext(ctx, queryGetPendingAddresses)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending addresses: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var addresses []models.DepositAddress
	for rows.Next() {
		addr, err := scanDepositAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit address: %w", err)
		}
		addresses = append(addresses, *addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating address rows: %w", err)
	}

	return addresses, nil
}

// ExpireAddresses transitions every pending address whose deadline has
// passed to expired and returns how many were swept. The status guard in
// the UPDATE makes the sweep safe to run concurrently with settlement.
func (s *Service) ExpireAddresses(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryExpireAddresses, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire addresses: %w", err)
	}

	expired, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	if expired > 0 {
		zap.L().Info("Expired deposit addresses", zap.Int64("count", expired))
	}
	return expired, nil
}

// CancelDepositAddress transitions a pending address to cancelled. A
// terminal address is left untouched and ErrAddressNotPending is returned.
func (s *Service) CancelDepositAddress(ctx context.Context, addressId string) (*models.DepositAddress, error) {
	result, err := s.db.ExecContext(ctx, queryCancelDepositAddress, addressId)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel deposit address %s: %w", addressId, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		addr, err := s.GetDepositAddress(ctx, addressId)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s is %s", store.ErrAddressNotPending, addressId, addr.Status)
	}

	zap.L().Info("Deposit address cancelled", zap.String("address_id", addressId))
	return s.GetDepositAddress(ctx, addressId)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDepositAddress(row rowScanner) (*models.DepositAddress, error) {
	var addr models.DepositAddress
	var amountStr string
	var completedAt sql.NullTime

	err := row.Scan(&addr.Id, &addr.UserId, &addr.Network, &amountStr, &addr.Address,
		&addr.Status, &addr.CreatedAt, &addr.ExpiresAt, &completedAt)
	if err != nil {
		return nil, err
	}

	addr.Amount, err = parseDecimal(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
	}
	if completedAt.Valid {
		addr.CompletedAt = &completedAt.Time
	}
	return &addr, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
