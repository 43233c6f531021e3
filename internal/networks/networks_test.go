package networks

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Network
		wantErr bool
	}{
		{"TRC20", TRC20, false},
		{"trc20", TRC20, false},
		{" Bep20 ", BEP20, false},
		{"ERC20", "", true},
		{"", "", true},
	}

	for _, test := range tests {
		got, err := Parse(test.input)
		if test.wantErr {
			if !errors.Is(err, ErrInvalidNetwork) {
				t.Errorf("Parse(%q): expected ErrInvalidNetwork, got %v", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("Parse(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestDefaultRegistryParams(t *testing.T) {
	registry := DefaultRegistry()

	trc, err := registry.Params(TRC20)
	if err != nil {
		t.Fatalf("failed to get TRC20 params: %v", err)
	}
	if trc.Decimals != 6 {
		t.Errorf("expected TRC20 decimals 6, got %d", trc.Decimals)
	}
	if !trc.WithdrawalFee.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected TRC20 fee 1, got %s", trc.WithdrawalFee)
	}

	bep, err := registry.Params(BEP20)
	if err != nil {
		t.Fatalf("failed to get BEP20 params: %v", err)
	}
	if bep.Decimals != 18 {
		t.Errorf("expected BEP20 decimals 18, got %d", bep.Decimals)
	}
	if !bep.WithdrawalFee.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("expected BEP20 fee 0.5, got %s", bep.WithdrawalFee)
	}

	if _, err := registry.Params(Network("ERC20")); !errors.Is(err, ErrInvalidNetwork) {
		t.Errorf("expected ErrInvalidNetwork for unknown network, got %v", err)
	}
}

func TestValidateDepositBounds(t *testing.T) {
	registry := DefaultRegistry()

	if err := registry.ValidateDeposit(TRC20, decimal.NewFromInt(10)); err != nil {
		t.Errorf("minimum deposit should be accepted: %v", err)
	}
	if err := registry.ValidateDeposit(TRC20, decimal.NewFromInt(100000)); err != nil {
		t.Errorf("maximum deposit should be accepted: %v", err)
	}
	if err := registry.ValidateDeposit(TRC20, decimal.NewFromFloat(9.99)); !errors.Is(err, ErrBelowMinimum) {
		t.Errorf("expected ErrBelowMinimum, got %v", err)
	}
	if err := registry.ValidateDeposit(TRC20, decimal.NewFromFloat(100000.01)); !errors.Is(err, ErrAboveMaximum) {
		t.Errorf("expected ErrAboveMaximum, got %v", err)
	}
}

func TestValidateWithdrawalBounds(t *testing.T) {
	registry := DefaultRegistry()

	if err := registry.ValidateWithdrawal(BEP20, decimal.NewFromInt(50)); err != nil {
		t.Errorf("in-range withdrawal should be accepted: %v", err)
	}
	if err := registry.ValidateWithdrawal(BEP20, decimal.NewFromInt(5)); !errors.Is(err, ErrBelowMinimum) {
		t.Errorf("expected ErrBelowMinimum, got %v", err)
	}
	if err := registry.ValidateWithdrawal(BEP20, decimal.NewFromInt(200000)); !errors.Is(err, ErrAboveMaximum) {
		t.Errorf("expected ErrAboveMaximum, got %v", err)
	}
}

func TestLoadRegistryOverride(t *testing.T) {
	content := `networks:
  TRC20:
    min_deposit: 25
    withdrawal_fee: 2.5
`
	path := filepath.Join(t.TempDir(), "networks.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write networks file: %v", err)
	}

	registry, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}

	params, err := registry.Params(TRC20)
	if err != nil {
		t.Fatalf("failed to get TRC20 params: %v", err)
	}
	if !params.MinDeposit.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected overridden min deposit 25, got %s", params.MinDeposit)
	}
	if !params.WithdrawalFee.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("expected overridden fee 2.5, got %s", params.WithdrawalFee)
	}
	if !params.MaxDeposit.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("expected default max deposit preserved, got %s", params.MaxDeposit)
	}
}

func TestLoadRegistryEmptyPathUsesDefaults(t *testing.T) {
	registry, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(registry.All()) != 2 {
		t.Errorf("expected 2 default networks, got %d", len(registry.All()))
	}
}

func TestLoadRegistryUnknownNetwork(t *testing.T) {
	content := `networks:
  ERC20:
    min_deposit: 25
`
	path := filepath.Join(t.TempDir(), "networks.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write networks file: %v", err)
	}

	if _, err := LoadRegistry(path); !errors.Is(err, ErrInvalidNetwork) {
		t.Errorf("expected ErrInvalidNetwork, got %v", err)
	}
}
