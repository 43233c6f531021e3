package address

import (
	"errors"
	"regexp"
	"testing"

	"usdt-settlement-go/internal/networks"
)

var (
	trc20Pattern = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)
	bep20Pattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
)

func TestGenerateTRC20Format(t *testing.T) {
	generator := NewGenerator()

	for i := 0; i < 50; i++ {
		addr, err := generator.Generate(networks.TRC20)
		if err != nil {
			t.Fatalf("failed to generate address: %v", err)
		}
		if !trc20Pattern.MatchString(addr) {
			t.Fatalf("address %q does not match TRC20 format", addr)
		}
	}
}

func TestGenerateBEP20Format(t *testing.T) {
	generator := NewGenerator()

	for i := 0; i < 50; i++ {
		addr, err := generator.Generate(networks.BEP20)
		if err != nil {
			t.Fatalf("failed to generate address: %v", err)
		}
		if !bep20Pattern.MatchString(addr) {
			t.Fatalf("address %q does not match BEP20 format", addr)
		}
	}
}

func TestGenerateUnknownNetwork(t *testing.T) {
	generator := NewGenerator()

	if _, err := generator.Generate(networks.Network("ERC20")); !errors.Is(err, networks.ErrInvalidNetwork) {
		t.Errorf("expected ErrInvalidNetwork, got %v", err)
	}
}

func TestGenerateUniqueness(t *testing.T) {
	generator := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		addr, err := generator.Generate(networks.TRC20)
		if err != nil {
			t.Fatalf("failed to generate address: %v", err)
		}
		if seen[addr] {
			t.Fatalf("duplicate address generated: %s", addr)
		}
		seen[addr] = true
	}
}
