package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetUserBalance(ctx context.Context, userId string) (*models.Balance, error) {
	balance, err := scanBalance(s.db.QueryRowContext(ctx, queryGetBalance, userId))
	if errors.Is(err, sql.ErrNoRows) {
		// A user without a balance row has never transacted.
		return &models.Balance{UserId: userId, Balance: decimal.Zero, Version: 0}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for user %s: %w", userId, err)
	}
	return balance, nil
}

func (s *Service) GetAllUserBalances(ctx context.Context) ([]models.Balance, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllBalances)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.Balance
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, *balance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	return balances, nil
}

// ReconcileUserBalance recomputes a user's balance from the transaction
// ledger and overwrites the hot balance row if they diverge. The sum is
// taken in Go over the stored amount strings; SQL SUM would coerce the
// TEXT amounts to floating point and lose precision past 15 digits.
func (s *Service) ReconcileUserBalance(ctx context.Context, userId string) error {
	calculated, err := s.sumLedger(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to calculate balance for user %s: %w", userId, err)
	}

	current, err := s.GetUserBalance(ctx, userId)
	if err != nil {
		return err
	}

	if current.Balance.Equal(calculated) {
		zap.L().Debug("Balance already consistent",
			zap.String("user_id", userId),
			zap.String("balance", calculated.String()))
		return nil
	}

	zap.L().Warn("Balance mismatch detected, correcting",
		zap.String("user_id", userId),
		zap.String("stored", current.Balance.String()),
		zap.String("calculated", calculated.String()))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, _, err := applyBalanceChange(ctx, tx, userId, calculated.Sub(current.Balance), current.LastTransactionId); err != nil {
		return fmt.Errorf("failed to correct balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// sumLedger totals a user's ledger entries with exact decimal
// arithmetic. Completed deposits add, pending and completed withdrawals
// subtract; failed withdrawals were already credited back on the balance
// row and carry no ledger weight.
func (s *Service) sumLedger(ctx context.Context, userId string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryLedgerEntries, userId)
	if err != nil {
		return decimal.Zero, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	total := decimal.Zero
	for rows.Next() {
		var kind, status, amountStr string
		if err := rows.Scan(&kind, &status, &amountStr); err != nil {
			return decimal.Zero, err
		}
		amount, err := parseDecimal(amountStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
		}
		switch {
		case kind == models.TransactionKindDeposit && status == models.TransactionStatusCompleted:
			total = total.Add(amount)
		case kind == models.TransactionKindWithdrawal &&
			(status == models.TransactionStatusPending || status == models.TransactionStatusCompleted):
			total = total.Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// applyBalanceChange adjusts a user's balance by delta inside an open
// database transaction, creating the balance row on first use. The
// version compare-and-set turns lost updates into
// ErrConcurrentModification so the caller can retry.
func applyBalanceChange(ctx context.Context, tx *sql.Tx, userId string, delta decimal.Decimal, transactionId string) (decimal.Decimal, decimal.Decimal, error) {
	var currentStr string
	var version int64

	err := tx.QueryRowContext(ctx, queryGetBalanceForUpdate, userId).Scan(&currentStr, &version)
	var current decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		current = decimal.Zero
		version = 1
		if _, err := tx.ExecContext(ctx, queryInsertBalance, userId, "0"); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to create balance row: %w", err)
		}
	} else if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		current, err = parseDecimal(currentStr)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to parse current balance %q: %w", currentStr, err)
		}
	}

	newBalance := current.Add(delta)

	result, err := tx.ExecContext(ctx, queryUpdateBalance, newBalance.String(), transactionId, userId, version)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	return current, newBalance, nil
}

func scanBalance(row rowScanner) (*models.Balance, error) {
	var balance models.Balance
	var balanceStr string

	err := row.Scan(&balance.UserId, &balanceStr, &balance.LastTransactionId, &balance.Version, &balance.UpdatedAt)
	if err != nil {
		return nil, err
	}

	balance.Balance, err = parseDecimal(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
	}
	return &balance, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
