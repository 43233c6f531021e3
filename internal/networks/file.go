package networks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// fileParams mirrors Params with string amounts, since yaml scalars
// are parsed into decimals explicitly to avoid float rounding.
type fileParams struct {
	Name            string `yaml:"name"`
	Currency        string `yaml:"currency"`
	Decimals        int    `yaml:"decimals"`
	MinDeposit      string `yaml:"min_deposit"`
	MaxDeposit      string `yaml:"max_deposit"`
	MinWithdrawal   string `yaml:"min_withdrawal"`
	MaxWithdrawal   string `yaml:"max_withdrawal"`
	WithdrawalFee   string `yaml:"withdrawal_fee"`
	AmountTolerance string `yaml:"amount_tolerance"`
	Explorer        string `yaml:"explorer"`
}

type fileConfig struct {
	Networks map[string]fileParams `yaml:"networks"`
}

// LoadRegistry builds a registry from a yaml file, overriding defaults
// for the networks it names. An empty path returns the defaults.
func LoadRegistry(networksFile string) (*Registry, error) {
	registry := DefaultRegistry()
	if networksFile == "" {
		return registry, nil
	}

	var networksPath string
	if filepath.IsAbs(networksFile) {
		networksPath = networksFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		networksPath = filepath.Join(wd, networksFile)
	}

	data, err := os.ReadFile(networksPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", networksFile, err)
	}

	var config fileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", networksFile, err)
	}

	for name, override := range config.Networks {
		network, err := Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", networksFile, err)
		}
		merged, err := merge(registry.params[network], override)
		if err != nil {
			return nil, fmt.Errorf("%s: network %s: %w", networksFile, network, err)
		}
		registry.params[network] = merged
	}

	return registry, nil
}

// merge overlays the non-empty fields from the file onto the defaults.
func merge(defaults Params, override fileParams) (Params, error) {
	merged := defaults
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Currency != "" {
		merged.Currency = override.Currency
	}
	if override.Decimals != 0 {
		merged.Decimals = override.Decimals
	}
	if override.Explorer != "" {
		merged.Explorer = override.Explorer
	}

	amounts := []struct {
		field string
		value string
		dest  *decimal.Decimal
	}{
		{"min_deposit", override.MinDeposit, &merged.MinDeposit},
		{"max_deposit", override.MaxDeposit, &merged.MaxDeposit},
		{"min_withdrawal", override.MinWithdrawal, &merged.MinWithdrawal},
		{"max_withdrawal", override.MaxWithdrawal, &merged.MaxWithdrawal},
		{"withdrawal_fee", override.WithdrawalFee, &merged.WithdrawalFee},
		{"amount_tolerance", override.AmountTolerance, &merged.AmountTolerance},
	}
	for _, amount := range amounts {
		if amount.value == "" {
			continue
		}
		parsed, err := decimal.NewFromString(amount.value)
		if err != nil {
			return Params{}, fmt.Errorf("invalid %s %q: %w", amount.field, amount.value, err)
		}
		*amount.dest = parsed
	}

	return merged, nil
}
