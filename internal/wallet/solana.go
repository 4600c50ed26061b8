package wallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// SolanaSigner signs messages with a raw ed25519 key, matching the behaviour
// of a Solana wallet adapter's signMessage.
type SolanaSigner struct {
	privateKey ed25519.PrivateKey
	address    string
}

// NewSolanaSigner constructs a signer from a base58-encoded secret key.
// Both the standard 64-byte export format and a bare 32-byte seed are
// accepted.
func NewSolanaSigner(encodedKey string) (*SolanaSigner, error) {
	raw, err := base58.Decode(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}

	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("invalid key length: expected %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}

	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key")
	}

	return &SolanaSigner{
		privateKey: key,
		address:    base58.Encode(pub),
	}, nil
}

// Address returns the base58-encoded public key.
func (s *SolanaSigner) Address() string {
	return s.address
}

// SignMessage signs the message with ed25519.
func (s *SolanaSigner) SignMessage(message []byte) ([]byte, error) {
	if len(s.privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signer not initialised")
	}
	return ed25519.Sign(s.privateKey, message), nil
}

// PublicKey returns the raw ed25519 public key bytes.
func (s *SolanaSigner) PublicKey() ed25519.PublicKey {
	pub, _ := s.privateKey.Public().(ed25519.PublicKey)
	return pub
}
