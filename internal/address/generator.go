package address

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"usdt-settlement-go/internal/networks"
)

// base58Alphabet matches the character set of Tron base58 addresses.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Generator produces fresh custodial deposit addresses in the
// canonical format of each network.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a new address for the given network. TRC20
// addresses are "T" followed by 33 base58 characters, BEP20 addresses
// are "0x" followed by 40 lowercase hex characters.
func (g *Generator) Generate(network networks.Network) (string, error) {
	switch network {
	case networks.TRC20:
		suffix, err := randomBase58(33)
		if err != nil {
			return "", fmt.Errorf("failed to generate TRC20 address: %w", err)
		}
		return "T" + suffix, nil
	case networks.BEP20:
		buf := make([]byte, 20)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate BEP20 address: %w", err)
		}
		return "0x" + hex.EncodeToString(buf), nil
	default:
		return "", fmt.Errorf("%w: %q", networks.ErrInvalidNetwork, network)
	}
}

func randomBase58(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = base58Alphabet[int(b)%len(base58Alphabet)]
	}
	return string(out), nil
}
