package withdraw

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/networks"
	"usdt-settlement-go/internal/oracle"
	"usdt-settlement-go/internal/store"
)

var ErrInsufficientPlatformBalance = errors.New("platform hot wallet cannot cover withdrawal")

// Service gates withdrawals on settled ledger balance and the platform
// hot wallet, then pushes them through the chain gateway. A withdrawal
// is debited up front and credited back if the broadcast fails.
type Service struct {
	store    store.LedgerStore
	oracle   oracle.Oracle
	registry *networks.Registry
}

func NewService(ledger store.LedgerStore, chainOracle oracle.Oracle, registry *networks.Registry) *Service {
	return &Service{
		store:    ledger,
		oracle:   chainOracle,
		registry: registry,
	}
}

// RequestWithdrawal validates a withdrawal and debits the user,
// leaving a pending ledger entry for ProcessWithdrawal to broadcast.
// Only settled balance is spendable; pending deposits never count.
func (s *Service) RequestWithdrawal(ctx context.Context, userId, network, destinationAddress string, amount decimal.Decimal) (*models.Transaction, error) {
	parsed, err := networks.Parse(network)
	if err != nil {
		return nil, err
	}
	if err := s.registry.ValidateWithdrawal(parsed, amount); err != nil {
		return nil, err
	}
	if destinationAddress == "" {
		return nil, fmt.Errorf("destination address is required")
	}
	params, err := s.registry.Params(parsed)
	if err != nil {
		return nil, err
	}
	if amount.LessThanOrEqual(params.WithdrawalFee) {
		return nil, fmt.Errorf("%w: amount %s does not cover the %s network fee", networks.ErrBelowMinimum, amount, params.WithdrawalFee)
	}

	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		return nil, err
	}

	platformBalance, err := s.oracle.GetPlatformBalance(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to check platform balance on %s: %w", network, err)
	}
	if platformBalance.LessThan(amount) {
		return nil, fmt.Errorf("%w: available %s, requested %s", ErrInsufficientPlatformBalance, platformBalance, amount)
	}

	transaction, err := s.store.DebitWithdrawal(ctx, store.DebitWithdrawalParams{
		UserId:             userId,
		Network:            parsed,
		Amount:             amount,
		Fee:                params.WithdrawalFee,
		DestinationAddress: destinationAddress,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Withdrawal requested",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", userId),
		zap.String("network", network),
		zap.String("amount", amount.String()),
		zap.String("destination", destinationAddress))
	return transaction, nil
}

// ProcessWithdrawal broadcasts a pending withdrawal. The user receives
// the requested amount minus the network fee; a broadcast failure marks
// the withdrawal failed and restores the debited balance.
func (s *Service) ProcessWithdrawal(ctx context.Context, transactionId string) (*models.Transaction, error) {
	transaction, err := s.store.GetTransaction(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	if transaction.Kind != models.TransactionKindWithdrawal || transaction.Status != models.TransactionStatusPending {
		return nil, fmt.Errorf("transaction %s is not a pending withdrawal", transactionId)
	}

	network, err := networks.Parse(transaction.Network)
	if err != nil {
		return nil, err
	}
	params, err := s.registry.Params(network)
	if err != nil {
		return nil, err
	}

	netAmount := transaction.Amount.Sub(params.WithdrawalFee)
	txHash, err := s.oracle.Send(ctx, network, transaction.DestinationAddress, netAmount)
	if err != nil {
		zap.L().Error("Withdrawal broadcast failed, rolling back",
			zap.String("transaction_id", transactionId),
			zap.Error(err))
		if failErr := s.store.FailWithdrawal(ctx, transactionId, err.Error()); failErr != nil {
			return nil, fmt.Errorf("broadcast failed (%v) and rollback failed: %w", err, failErr)
		}
		return nil, fmt.Errorf("failed to broadcast withdrawal %s: %w", transactionId, err)
	}

	if err := s.store.CompleteWithdrawal(ctx, transactionId, txHash); err != nil {
		return nil, err
	}

	zap.L().Info("Withdrawal broadcast",
		zap.String("transaction_id", transactionId),
		zap.String("tx_hash", txHash),
		zap.String("net_amount", netAmount.String()))
	return s.store.GetTransaction(ctx, transactionId)
}
