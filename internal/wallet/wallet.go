// Package wallet provides the message-signing capability used to authorise
// investigation submissions. The controller depends only on the Signer
// interface so it can be tested with a fake signer.
package wallet

import (
	"errors"
	"fmt"

	"github.com/docal-console/internal/config"
)

// ErrNoWallet indicates that no signing wallet is configured.
var ErrNoWallet = errors.New("no wallet configured")

// Signer signs challenge messages on behalf of the connected account.
// SignMessage may fail (declined signature, bad key material); callers must
// treat that as a submission failure.
type Signer interface {
	// Address returns the caller address in the chain's canonical form.
	Address() string
	// SignMessage signs the raw message bytes and returns the signature.
	SignMessage(message []byte) ([]byte, error)
}

// FromConfig constructs the configured signer. Returns ErrNoWallet when no
// secret key is configured.
func FromConfig(cfg *config.WalletConfig) (Signer, error) {
	if cfg == nil || cfg.SecretKey == "" {
		return nil, ErrNoWallet
	}
	switch cfg.Chain {
	case "solana":
		return NewSolanaSigner(cfg.SecretKey)
	case "ethereum":
		return NewEthereumSigner(cfg.SecretKey)
	default:
		return nil, fmt.Errorf("unsupported wallet chain: %q", cfg.Chain)
	}
}
