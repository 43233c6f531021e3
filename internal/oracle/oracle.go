package oracle

import (
	"context"

	"github.com/shopspring/decimal"

	"usdt-settlement-go/internal/networks"
)

// Oracle reads on-chain state and broadcasts transfers through the
// chain gateway. All amounts are denominated in the network's token.
type Oracle interface {
	// GetBalance returns the token balance observed at an address.
	GetBalance(ctx context.Context, address string, network networks.Network) (decimal.Decimal, error)

	// GetPlatformBalance returns the balance of the platform hot wallet.
	GetPlatformBalance(ctx context.Context, network networks.Network) (decimal.Decimal, error)

	// Send broadcasts a transfer from the platform hot wallet and
	// returns the transaction hash.
	Send(ctx context.Context, network networks.Network, toAddress string, amount decimal.Decimal) (string, error)

	// Verify looks up a transaction by hash and reports whether it
	// transferred the expected amount to the given address, along with
	// the amount actually observed.
	Verify(ctx context.Context, txHash string, expectedAmount decimal.Decimal, toAddress string, network networks.Network) (bool, decimal.Decimal, error)
}
