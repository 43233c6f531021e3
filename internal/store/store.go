package store

import (
	"context"
	"errors"
	"time"

	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/networks"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrAddressNotFound        = errors.New("deposit address not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrAddressExists          = errors.New("address already assigned")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrAlreadySettled         = errors.New("deposit address already settled")
	ErrAddressNotPending      = errors.New("deposit address is not pending")
	ErrInsufficientBalance    = errors.New("insufficient balance")
)

// CreateAddressParams contains the parameters for recording a new
// single-use deposit address.
type CreateAddressParams struct {
	UserId    string
	Network   networks.Network
	Amount    decimal.Decimal
	Address   string
	ExpiresAt time.Time
}

// SettleDepositParams identifies a pending deposit to credit. Amount is
// the expected deposit amount; ObservedBalance is what the chain
// reported, recorded for audit when it differs.
type SettleDepositParams struct {
	AddressId       string
	ObservedBalance decimal.Decimal
	TxHash          string
}

// DebitWithdrawalParams contains the parameters for opening a pending
// withdrawal and debiting the user in one step.
type DebitWithdrawalParams struct {
	UserId             string
	Network            networks.Network
	Amount             decimal.Decimal
	Fee                decimal.Decimal
	DestinationAddress string
}

// LedgerStore defines the contract that every backend must satisfy.
type LedgerStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)

	// --- Deposit addresses ---
	CreateDepositAddress(ctx context.Context, params CreateAddressParams) (*models.DepositAddress, error)
	GetDepositAddress(ctx context.Context, addressId string) (*models.DepositAddress, error)
	GetPendingAddresses(ctx context.Context) ([]models.DepositAddress, error)
	ExpireAddresses(ctx context.Context, now time.Time) (int64, error)
	CancelDepositAddress(ctx context.Context, addressId string) (*models.DepositAddress, error)

	// --- Settlement ---
	SettleDeposit(ctx context.Context, params SettleDepositParams) (*models.SettlementResult, error)

	// --- Withdrawals ---
	DebitWithdrawal(ctx context.Context, params DebitWithdrawalParams) (*models.Transaction, error)
	CompleteWithdrawal(ctx context.Context, transactionId, txHash string) error
	FailWithdrawal(ctx context.Context, transactionId, reason string) error

	// --- Balances ---
	GetUserBalance(ctx context.Context, userId string) (*models.Balance, error)
	GetAllUserBalances(ctx context.Context) ([]models.Balance, error)
	ReconcileUserBalance(ctx context.Context, userId string) error

	// --- Transactions ---
	GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error)

	// --- Lifecycle ---
	Close()
}
