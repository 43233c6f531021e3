package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositAddressResponse is the API view of an issued deposit address
type DepositAddressResponse struct {
	Id          string          `json:"id"`
	UserId      string          `json:"user_id"`
	Network     string          `json:"network"`
	Amount      decimal.Decimal `json:"amount"`
	Address     string          `json:"address"`
	Status      string          `json:"status"`
	ExpiresAt   time.Time       `json:"expires_at"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TransactionResponse is the API view of a ledger transaction
type TransactionResponse struct {
	Id                 string          `json:"id"`
	UserId             string          `json:"user_id"`
	Kind               string          `json:"kind"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Network            string          `json:"network"`
	Status             string          `json:"status"`
	TxHash             string          `json:"tx_hash,omitempty"`
	DepositAddressId   string          `json:"deposit_address_id,omitempty"`
	DestinationAddress string          `json:"destination_address,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// SettlementResult reports the outcome of a deposit settlement attempt
type SettlementResult struct {
	Settled     bool            `json:"settled"`
	UserId      string          `json:"user_id,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	NewBalance  decimal.Decimal `json:"new_balance,omitempty"`
	Transaction *Transaction    `json:"-"`
}
