package withdraw

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usdt-settlement-go/internal/database"
	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/networks"
	"usdt-settlement-go/internal/store"
)

// gatewayStub fakes the chain gateway for withdrawal tests.
type gatewayStub struct {
	platformBalance decimal.Decimal
	sendHash        string
	sendErr         error
	sentAmount      decimal.Decimal
	sentAddress     string
}

func (g *gatewayStub) GetBalance(_ context.Context, _ string, _ networks.Network) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (g *gatewayStub) GetPlatformBalance(_ context.Context, _ networks.Network) (decimal.Decimal, error) {
	return g.platformBalance, nil
}

func (g *gatewayStub) Send(_ context.Context, _ networks.Network, toAddress string, amount decimal.Decimal) (string, error) {
	g.sentAddress = toAddress
	g.sentAmount = amount
	return g.sendHash, g.sendErr
}

func (g *gatewayStub) Verify(_ context.Context, _ string, _ decimal.Decimal, _ string, _ networks.Network) (bool, decimal.Decimal, error) {
	return false, decimal.Zero, errors.New("not implemented")
}

func newTestService(t *testing.T, gateway *gatewayStub) (*Service, store.LedgerStore, *models.User) {
	t.Helper()

	ledger, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(ledger.Close)

	user, err := ledger.CreateUser(context.Background(), "", "Alice", "alice@example.com")
	require.NoError(t, err)

	return NewService(ledger, gateway, networks.DefaultRegistry()), ledger, user
}

func fundUser(t *testing.T, ledger store.LedgerStore, userId string, amount decimal.Decimal) {
	t.Helper()

	addr, err := ledger.CreateDepositAddress(context.Background(), store.CreateAddressParams{
		UserId:    userId,
		Network:   networks.TRC20,
		Amount:    amount,
		Address:   "Tfund" + time.Now().Format("150405.000000000"),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = ledger.SettleDeposit(context.Background(), store.SettleDepositParams{
		AddressId: addr.Id, ObservedBalance: amount,
	})
	require.NoError(t, err)
}

func TestRequestWithdrawal(t *testing.T) {
	gateway := &gatewayStub{platformBalance: decimal.NewFromInt(10000)}
	service, ledger, user := newTestService(t, gateway)
	fundUser(t, ledger, user.Id, decimal.NewFromInt(500))

	transaction, err := service.RequestWithdrawal(context.Background(), user.Id, "TRC20", "Tdest", decimal.NewFromInt(200))
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusPending, transaction.Status)
	assert.Equal(t, "Tdest", transaction.DestinationAddress)

	balance, err := ledger.GetUserBalance(context.Background(), user.Id)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(300)))
}

func TestRequestWithdrawal_Validation(t *testing.T) {
	gateway := &gatewayStub{platformBalance: decimal.NewFromInt(10000)}
	service, ledger, user := newTestService(t, gateway)
	fundUser(t, ledger, user.Id, decimal.NewFromInt(500))

	_, err := service.RequestWithdrawal(context.Background(), user.Id, "DOGE", "Tdest", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, networks.ErrInvalidNetwork)

	_, err = service.RequestWithdrawal(context.Background(), user.Id, "TRC20", "Tdest", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, networks.ErrBelowMinimum)

	_, err = service.RequestWithdrawal(context.Background(), user.Id, "TRC20", "", decimal.NewFromInt(100))
	assert.Error(t, err)

	_, err = service.RequestWithdrawal(context.Background(), "nobody", "TRC20", "Tdest", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestRequestWithdrawal_InsufficientUserBalance(t *testing.T) {
	gateway := &gatewayStub{platformBalance: decimal.NewFromInt(10000)}
	service, ledger, user := newTestService(t, gateway)
	fundUser(t, ledger, user.Id, decimal.NewFromInt(50))

	_, err := service.RequestWithdrawal(context.Background(), user.Id, "TRC20", "Tdest", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, store.ErrInsufficientBalance)
}

func TestRequestWithdrawal_InsufficientPlatformBalance(t *testing.T) {
	gateway := &gatewayStub{platformBalance: decimal.NewFromInt(10)}
	service, ledger, user := newTestService(t, gateway)
	fundUser(t, ledger, user.Id, decimal.NewFromInt(500))

	_, err := service.RequestWithdrawal(context.Background(), user.Id, "TRC20", "Tdest", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInsufficientPlatformBalance)

	// Nothing was debited.
	balance, err := ledger.GetUserBalance(context.Background(), user.Id)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(500)))
}

func TestProcessWithdrawal_BroadcastsNetOfFee(t *testing.T) {
	gateway := &gatewayStub{platformBalance: decimal.NewFromInt(10000), sendHash: "0xsent"}
	service, ledger, user := newTestService(t, gateway)
	fundUser(t, ledger, user.Id, decimal.NewFromInt(500))

	requested, err := service.RequestWithdrawal(context.Background(), user.Id, "TRC20", "Tdest", decimal.NewFromInt(100))
	require.NoError(t, err)

	completed, err := service.ProcessWithdrawal(context.Background(), requested.Id)
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusCompleted, completed.Status)
	assert.Equal(t, "0xsent", completed.TxHash)
	// TRC20 carries a 1 USDT network fee.
	assert.True(t, gateway.sentAmount.Equal(decimal.NewFromInt(99)), "sent %s", gateway.sentAmount)
	assert.Equal(t, "Tdest", gateway.sentAddress)
}

func TestProcessWithdrawal_FailureRestoresBalance(t *testing.T) {
	gateway := &gatewayStub{platformBalance: decimal.NewFromInt(10000), sendErr: errors.New("node rejected")}
	service, ledger, user := newTestService(t, gateway)
	fundUser(t, ledger, user.Id, decimal.NewFromInt(500))

	requested, err := service.RequestWithdrawal(context.Background(), user.Id, "BEP20", "0xdest", decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = service.ProcessWithdrawal(context.Background(), requested.Id)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "node rejected"))

	transaction, err := ledger.GetTransaction(context.Background(), requested.Id)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, transaction.Status)

	balance, err := ledger.GetUserBalance(context.Background(), user.Id)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(500)))
}

func TestProcessWithdrawal_NotPending(t *testing.T) {
	gateway := &gatewayStub{platformBalance: decimal.NewFromInt(10000), sendHash: "0xsent"}
	service, ledger, user := newTestService(t, gateway)
	fundUser(t, ledger, user.Id, decimal.NewFromInt(500))

	requested, err := service.RequestWithdrawal(context.Background(), user.Id, "TRC20", "Tdest", decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = service.ProcessWithdrawal(context.Background(), requested.Id)
	require.NoError(t, err)

	// A completed withdrawal cannot be processed again.
	_, err = service.ProcessWithdrawal(context.Background(), requested.Id)
	assert.Error(t, err)
}
