package deposit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"usdt-settlement-go/internal/address"
	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/networks"
	"usdt-settlement-go/internal/oracle"
	"usdt-settlement-go/internal/store"
)

var (
	ErrAddressSpaceExhausted = errors.New("could not allocate a unique deposit address")
	ErrVerificationFailed    = errors.New("deposit verification failed")
)

// generateRetries bounds how many fresh addresses are tried when the
// generated value collides with an existing one.
const generateRetries = 3

// Service owns the deposit address lifecycle: issuing time-boxed
// single-use addresses, sweeping expired ones and settling verified
// deposits.
type Service struct {
	store     store.LedgerStore
	oracle    oracle.Oracle
	registry  *networks.Registry
	generator *address.Generator
	ttl       time.Duration
}

func NewService(ledger store.LedgerStore, chainOracle oracle.Oracle, registry *networks.Registry, ttl time.Duration) *Service {
	return &Service{
		store:     ledger,
		oracle:    chainOracle,
		registry:  registry,
		generator: address.NewGenerator(),
		ttl:       ttl,
	}
}

// CreateDepositAddress issues a fresh pending address for one expected
// deposit. The address expires if the deposit does not arrive within
// the configured window.
func (s *Service) CreateDepositAddress(ctx context.Context, userId, network string, amount decimal.Decimal) (*models.DepositAddress, error) {
	parsed, err := networks.Parse(network)
	if err != nil {
		return nil, err
	}
	if err := s.registry.ValidateDeposit(parsed, amount); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.ttl)
	for attempt := 0; attempt < generateRetries; attempt++ {
		generated, err := s.generator.Generate(parsed)
		if err != nil {
			return nil, err
		}

		addr, err := s.store.CreateDepositAddress(ctx, store.CreateAddressParams{
			UserId:    userId,
			Network:   parsed,
			Amount:    amount,
			Address:   generated,
			ExpiresAt: expiresAt,
		})
		if errors.Is(err, store.ErrAddressExists) {
			zap.L().Warn("Generated address collided, retrying",
				zap.String("network", network),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		return addr, nil
	}

	return nil, fmt.Errorf("%w on %s after %d attempts", ErrAddressSpaceExhausted, network, generateRetries)
}

// GetDepositAddressStatus returns the current state of a deposit
// address, including the settling transaction once it has completed.
func (s *Service) GetDepositAddressStatus(ctx context.Context, addressId string) (*models.DepositAddress, error) {
	return s.store.GetDepositAddress(ctx, addressId)
}

// SweepExpired transitions every pending address past its deadline to
// expired and returns how many were swept.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.ExpireAddresses(ctx, time.Now())
}

// CancelDepositAddress lets a user abandon a pending address before
// its deadline. Terminal addresses are not touched.
func (s *Service) CancelDepositAddress(ctx context.Context, addressId string) (*models.DepositAddress, error) {
	return s.store.CancelDepositAddress(ctx, addressId)
}

// VerifyDeposit settles a pending address from a user-supplied
// transaction hash instead of waiting for the next poll. The chain
// transaction must pay the expected amount, within the network's
// tolerance, to the issued address.
func (s *Service) VerifyDeposit(ctx context.Context, addressId, txHash string) (*models.SettlementResult, error) {
	addr, err := s.store.GetDepositAddress(ctx, addressId)
	if err != nil {
		return nil, err
	}
	if addr.Status != models.AddressStatusPending {
		return nil, fmt.Errorf("%w: %s is %s", store.ErrAddressNotPending, addressId, addr.Status)
	}

	network, err := networks.Parse(addr.Network)
	if err != nil {
		return nil, err
	}
	params, err := s.registry.Params(network)
	if err != nil {
		return nil, err
	}

	verified, observed, err := s.oracle.Verify(ctx, txHash, addr.Amount, addr.Address, network)
	if err != nil {
		return nil, fmt.Errorf("failed to verify transaction %s: %w", txHash, err)
	}
	if !verified {
		return nil, fmt.Errorf("%w: transaction %s not confirmed for address %s", ErrVerificationFailed, txHash, addr.Address)
	}
	if observed.Sub(addr.Amount).Abs().GreaterThan(params.AmountTolerance) && observed.LessThan(addr.Amount) {
		return nil, fmt.Errorf("%w: transaction %s paid %s, expected %s", ErrVerificationFailed, txHash, observed, addr.Amount)
	}

	result, err := s.store.SettleDeposit(ctx, store.SettleDepositParams{
		AddressId:       addr.Id,
		ObservedBalance: observed,
		TxHash:          txHash,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Deposit verified and settled",
		zap.String("address_id", addr.Id),
		zap.String("tx_hash", txHash),
		zap.String("amount", result.Amount.String()))
	return result, nil
}
