package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deposit address lifecycle states. Exactly one terminal transition leaves
// Pending; a terminal address is immutable.
const (
	AddressStatusPending   = "pending"
	AddressStatusCompleted = "completed"
	AddressStatusExpired   = "expired"
	AddressStatusCancelled = "cancelled"
)

// Ledger transaction kinds and states.
const (
	TransactionKindDeposit    = "deposit"
	TransactionKindWithdrawal = "withdrawal"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// User represents a platform account holder
type User struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DepositAddress is a time-boxed, single-use custodial address issued for one
// expected deposit. The address value is globally unique across networks.
type DepositAddress struct {
	Id          string          `db:"id"`
	UserId      string          `db:"user_id"`
	Network     string          `db:"network"`
	Amount      decimal.Decimal `db:"amount"`
	Address     string          `db:"address"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	ExpiresAt   time.Time       `db:"expires_at"`
	CompletedAt *time.Time      `db:"completed_at"`
}

// Balance is the single USD ledger balance of a user (hot data). Version is
// the compare-and-set token guarding every mutation.
type Balance struct {
	UserId            string          `db:"user_id"`
	Balance           decimal.Decimal `db:"balance"`
	LastTransactionId string          `db:"last_transaction_id"`
	Version           int64           `db:"version"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// Transaction is an immutable ledger entry (cold data). A completed deposit
// always references the completed DepositAddress that caused it.
type Transaction struct {
	Id                 string          `db:"id"`
	UserId             string          `db:"user_id"`
	Kind               string          `db:"kind"`
	Amount             decimal.Decimal `db:"amount"`
	Currency           string          `db:"currency"`
	Network            string          `db:"network"`
	Status             string          `db:"status"`
	TxHash             string          `db:"tx_hash"`
	DepositAddressId   string          `db:"deposit_address_id"`
	DestinationAddress string          `db:"destination_address"`
	Notes              string          `db:"notes"`
	BalanceBefore      decimal.Decimal `db:"balance_before"`
	BalanceAfter       decimal.Decimal `db:"balance_after"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}
