package networks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidNetwork = errors.New("unsupported network")
	ErrBelowMinimum   = errors.New("amount below network minimum")
	ErrAboveMaximum   = errors.New("amount above network maximum")
)

// Network identifies a supported settlement network.
type Network string

const (
	TRC20 Network = "TRC20"
	BEP20 Network = "BEP20"
)

// Params holds the per-network operational limits and fees.
type Params struct {
	Name            string          `yaml:"name"`
	Currency        string          `yaml:"currency"`
	Decimals        int             `yaml:"decimals"`
	MinDeposit      decimal.Decimal `yaml:"min_deposit"`
	MaxDeposit      decimal.Decimal `yaml:"max_deposit"`
	MinWithdrawal   decimal.Decimal `yaml:"min_withdrawal"`
	MaxWithdrawal   decimal.Decimal `yaml:"max_withdrawal"`
	WithdrawalFee   decimal.Decimal `yaml:"withdrawal_fee"`
	AmountTolerance decimal.Decimal `yaml:"amount_tolerance"`
	Explorer        string          `yaml:"explorer"`
}

// Registry maps networks to their parameters.
type Registry struct {
	params map[Network]Params
}

func DefaultRegistry() *Registry {
	return &Registry{
		params: map[Network]Params{
			TRC20: {
				Name:            "Tron (TRC20)",
				Currency:        "USDT",
				Decimals:        6,
				MinDeposit:      decimal.NewFromInt(10),
				MaxDeposit:      decimal.NewFromInt(100000),
				MinWithdrawal:   decimal.NewFromInt(10),
				MaxWithdrawal:   decimal.NewFromInt(100000),
				WithdrawalFee:   decimal.NewFromInt(1),
				AmountTolerance: decimal.NewFromFloat(0.01),
				Explorer:        "https://tronscan.org/#/transaction/",
			},
			BEP20: {
				Name:            "Binance Smart Chain (BEP20)",
				Currency:        "USDT",
				Decimals:        18,
				MinDeposit:      decimal.NewFromInt(10),
				MaxDeposit:      decimal.NewFromInt(100000),
				MinWithdrawal:   decimal.NewFromInt(10),
				MaxWithdrawal:   decimal.NewFromInt(100000),
				WithdrawalFee:   decimal.NewFromFloat(0.5),
				AmountTolerance: decimal.NewFromFloat(0.01),
				Explorer:        "https://bscscan.com/tx/",
			},
		},
	}
}

// Parse normalizes a user-supplied network string.
func Parse(value string) (Network, error) {
	switch Network(strings.ToUpper(strings.TrimSpace(value))) {
	case TRC20:
		return TRC20, nil
	case BEP20:
		return BEP20, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidNetwork, value)
	}
}

func (r *Registry) Params(network Network) (Params, error) {
	params, ok := r.params[network]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrInvalidNetwork, network)
	}
	return params, nil
}

// All returns the registered networks in a stable order.
func (r *Registry) All() []Network {
	networks := make([]Network, 0, len(r.params))
	for _, network := range []Network{TRC20, BEP20} {
		if _, ok := r.params[network]; ok {
			networks = append(networks, network)
		}
	}
	return networks
}

// ValidateDeposit checks a requested deposit amount against network limits.
func (r *Registry) ValidateDeposit(network Network, amount decimal.Decimal) error {
	params, err := r.Params(network)
	if err != nil {
		return err
	}
	if amount.LessThan(params.MinDeposit) {
		return fmt.Errorf("%w: minimum deposit on %s is %s", ErrBelowMinimum, network, params.MinDeposit)
	}
	if amount.GreaterThan(params.MaxDeposit) {
		return fmt.Errorf("%w: maximum deposit on %s is %s", ErrAboveMaximum, network, params.MaxDeposit)
	}
	return nil
}

// ValidateWithdrawal checks a requested withdrawal amount against network limits.
func (r *Registry) ValidateWithdrawal(network Network, amount decimal.Decimal) error {
	params, err := r.Params(network)
	if err != nil {
		return err
	}
	if amount.LessThan(params.MinWithdrawal) {
		return fmt.Errorf("%w: minimum withdrawal on %s is %s", ErrBelowMinimum, network, params.MinWithdrawal)
	}
	if amount.GreaterThan(params.MaxWithdrawal) {
		return fmt.Errorf("%w: maximum withdrawal on %s is %s", ErrAboveMaximum, network, params.MaxWithdrawal)
	}
	return nil
}
