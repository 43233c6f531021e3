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
	"go.uber.org/zap"
)

// settleRetries bounds the retry loop around version conflicts. Each
// attempt runs in its own database transaction.
const settleRetries = 3

// SettleDeposit credits a pending deposit exactly once. The address
// transition, the ledger entry and the balance credit happen in a single
// database transaction, so either all of them land or none do. The amount
// credited is the expected deposit amount, converted 1:1 to USD; the
// observed chain balance is recorded in the ledger notes when it differs.
func (s *Service) SettleDeposit(ctx context.Context, params store.SettleDepositParams) (*models.SettlementResult, error) {
	var result *models.SettlementResult
	var err error

	for attempt := 0; attempt < settleRetries; attempt++ {
		result, err = s.settleDepositOnce(ctx, params)
		if err == nil || !errors.Is(err, store.ErrConcurrentModification) {
			return result, err
		}
		zap.L().Warn("Settlement hit concurrent modification, retrying",
			zap.String("address_id", params.AddressId),
			zap.Int("attempt", attempt+1))
	}
	return nil, err
}

func (s *Service) settleDepositOnce(ctx context.Context, params store.SettleDepositParams) (*models.SettlementResult, error) {
	// Cheap pre-check outside the transaction. The unique index on
	// deposit_address_id still enforces exactly-once if this races.
	var existingTxId string
	err := s.db.QueryRowContext(ctx, queryCheckAddressSettled, params.AddressId).Scan(&existingTxId)
	if err == nil {
		return nil, fmt.Errorf("%w: address %s credited by transaction %s", store.ErrAlreadySettled, params.AddressId, existingTxId)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check for existing settlement: %w", err)
	}

	addr, err := s.GetDepositAddress(ctx, params.AddressId)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The expires_at guard means an address past its deadline can never
	// complete, even if the sweep has not caught it yet.
	now := time.Now().UTC()
	updateResult, err := tx.ExecContext(ctx, queryCompleteDepositAddress, now, params.AddressId, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete deposit address: %w", err)
	}
	rowsAffected, err := updateResult.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if addr.Status == models.AddressStatusCompleted {
			return nil, fmt.Errorf("%w: %s", store.ErrAlreadySettled, params.AddressId)
		}
		return nil, fmt.Errorf("%w: %s is %s or past its deadline", store.ErrAddressNotPending, params.AddressId, addr.Status)
	}

	transactionId := uuid.New().String()
	balanceBefore, balanceAfter, err := applyBalanceChange(ctx, tx, addr.UserId, addr.Amount, transactionId)
	if err != nil {
		return nil, err
	}

	notes := ""
	if !params.ObservedBalance.Equal(addr.Amount) {
		notes = fmt.Sprintf("observed balance %s, credited expected %s", params.ObservedBalance.String(), addr.Amount.String())
	}

	transaction := &models.Transaction{
		Id:               transactionId,
		UserId:           addr.UserId,
		Kind:             models.TransactionKindDeposit,
		Amount:           addr.Amount,
		Currency:         "USD",
		Network:          addr.Network,
		Status:           models.TransactionStatusCompleted,
		TxHash:           params.TxHash,
		DepositAddressId: addr.Id,
		Notes:            notes,
		BalanceBefore:    balanceBefore,
		BalanceAfter:     balanceAfter,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.UserId, transaction.Kind, transaction.Amount.String(),
		transaction.Currency, transaction.Network, transaction.Status, transaction.TxHash,
		transaction.DepositAddressId, transaction.DestinationAddress, transaction.Notes,
		transaction.BalanceBefore.String(), transaction.BalanceAfter.String(),
		transaction.CreatedAt, transaction.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrAlreadySettled, params.AddressId)
		}
		return nil, fmt.Errorf("failed to insert deposit transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Deposit settled",
		zap.String("address_id", addr.Id),
		zap.String("user_id", addr.UserId),
		zap.String("network", addr.Network),
		zap.String("amount", addr.Amount.String()),
		zap.String("new_balance", balanceAfter.String()))

	return &models.SettlementResult{
		Settled:     true,
		UserId:      addr.UserId,
		Amount:      addr.Amount,
		NewBalance:  balanceAfter,
		Transaction: transaction,
	}, nil
}

// DebitWithdrawal opens a pending withdrawal: the user's balance is
// debited immediately and a pending ledger entry is written, both in one
// database transaction. A later broadcast failure rolls the debit back
// through FailWithdrawal.
func (s *Service) DebitWithdrawal(ctx context.Context, params store.DebitWithdrawalParams) (*models.Transaction, error) {
	var transaction *models.Transaction
	var err error

	for attempt := 0; attempt < settleRetries; attempt++ {
		transaction, err = s.debitWithdrawalOnce(ctx, params)
		if err == nil || !errors.Is(err, store.ErrConcurrentModification) {
			return transaction, err
		}
		zap.L().Warn("Withdrawal debit hit concurrent modification, retrying",
			zap.String("user_id", params.UserId),
			zap.Int("attempt", attempt+1))
	}
	return nil, err
}

func (s *Service) debitWithdrawalOnce(ctx context.Context, params store.DebitWithdrawalParams) (*models.Transaction, error) {
	balance, err := s.GetUserBalance(ctx, params.UserId)
	if err != nil {
		return nil, err
	}
	if balance.Balance.LessThan(params.Amount) {
		return nil, fmt.Errorf("%w: balance %s, requested %s", store.ErrInsufficientBalance, balance.Balance.String(), params.Amount.String())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transactionId := uuid.New().String()
	balanceBefore, balanceAfter, err := applyBalanceChange(ctx, tx, params.UserId, params.Amount.Neg(), transactionId)
	if err != nil {
		return nil, err
	}
	if balanceAfter.IsNegative() {
		return nil, fmt.Errorf("%w: balance %s, requested %s", store.ErrInsufficientBalance, balanceBefore.String(), params.Amount.String())
	}

	now := time.Now().UTC()
	transaction := &models.Transaction{
		Id:                 transactionId,
		UserId:             params.UserId,
		Kind:               models.TransactionKindWithdrawal,
		Amount:             params.Amount,
		Currency:           "USD",
		Network:            string(params.Network),
		Status:             models.TransactionStatusPending,
		DestinationAddress: params.DestinationAddress,
		Notes:              fmt.Sprintf("network fee %s, net payout %s", params.Fee.String(), params.Amount.Sub(params.Fee).String()),
		BalanceBefore:      balanceBefore,
		BalanceAfter:       balanceAfter,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.UserId, transaction.Kind, transaction.Amount.String(),
		transaction.Currency, transaction.Network, transaction.Status, transaction.TxHash,
		nil, transaction.DestinationAddress, transaction.Notes,
		transaction.BalanceBefore.String(), transaction.BalanceAfter.String(),
		transaction.CreatedAt, transaction.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateTransaction, transaction.Id)
		}
		return nil, fmt.Errorf("failed to insert withdrawal transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Withdrawal debited",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", params.UserId),
		zap.String("network", string(params.Network)),
		zap.String("amount", params.Amount.String()),
		zap.String("new_balance", balanceAfter.String()))

	return transaction, nil
}

// CompleteWithdrawal marks a pending withdrawal as broadcast, recording
// the chain transaction hash.
func (s *Service) CompleteWithdrawal(ctx context.Context, transactionId, txHash string) error {
	transaction, err := s.GetTransaction(ctx, transactionId)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, queryUpdateTransactionStatus,
		models.TransactionStatusCompleted, txHash, transaction.Notes, transactionId)
	if err != nil {
		return fmt.Errorf("failed to complete withdrawal %s: %w", transactionId, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("withdrawal %s is not pending (status %s)", transactionId, transaction.Status)
	}

	zap.L().Info("Withdrawal completed",
		zap.String("transaction_id", transactionId),
		zap.String("tx_hash", txHash))
	return nil
}

// FailWithdrawal marks a pending withdrawal as failed and credits the
// debited amount back in the same database transaction.
func (s *Service) FailWithdrawal(ctx context.Context, transactionId, reason string) error {
	var err error
	for attempt := 0; attempt < settleRetries; attempt++ {
		err = s.failWithdrawalOnce(ctx, transactionId, reason)
		if err == nil || !errors.Is(err, store.ErrConcurrentModification) {
			return err
		}
		zap.L().Warn("Withdrawal rollback hit concurrent modification, retrying",
			zap.String("transaction_id", transactionId),
			zap.Int("attempt", attempt+1))
	}
	return err
}

func (s *Service) failWithdrawalOnce(ctx context.Context, transactionId, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transaction, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransactionForUpdate, transactionId))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: no pending withdrawal %s", store.ErrTransactionNotFound, transactionId)
	}
	if err != nil {
		return fmt.Errorf("failed to load withdrawal %s: %w", transactionId, err)
	}

	notes := transaction.Notes
	if reason != "" {
		notes = fmt.Sprintf("%s; failed: %s", transaction.Notes, reason)
	}
	result, err := tx.ExecContext(ctx, queryUpdateTransactionStatus,
		models.TransactionStatusFailed, transaction.TxHash, notes, transactionId)
	if err != nil {
		return fmt.Errorf("failed to mark withdrawal failed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("withdrawal %s is no longer pending", transactionId)
	}

	// Compensating credit restores the debited amount.
	if _, _, err := applyBalanceChange(ctx, tx, transaction.UserId, transaction.Amount, transactionId); err != nil {
		return fmt.Errorf("failed to restore balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Warn("Withdrawal failed, balance restored",
		zap.String("transaction_id", transactionId),
		zap.String("user_id", transaction.UserId),
		zap.String("amount", transaction.Amount.String()),
		zap.String("reason", reason))
	return nil
}

func (s *Service) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransaction, transactionId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, transactionId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", transactionId, err)
	}
	return transaction, nil
}

// GetTransactionHistory returns paginated ledger entries for a user,
// newest first.
func (s *Service) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var transaction models.Transaction
	var amountStr, balanceBeforeStr, balanceAfterStr string

	err := row.Scan(&transaction.Id, &transaction.UserId, &transaction.Kind, &amountStr,
		&transaction.Currency, &transaction.Network, &transaction.Status, &transaction.TxHash,
		&transaction.DepositAddressId, &transaction.DestinationAddress, &transaction.Notes,
		&balanceBeforeStr, &balanceAfterStr, &transaction.CreatedAt, &transaction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	transaction.Amount, err = parseDecimal(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
	}
	transaction.BalanceBefore, err = parseDecimal(balanceBeforeStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance_before %q: %w", balanceBeforeStr, err)
	}
	transaction.BalanceAfter, err = parseDecimal(balanceAfterStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance_after %q: %w", balanceAfterStr, err)
	}
	return &transaction, nil
}
