package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// EthereumSigner signs messages with a secp256k1 key using the EIP-191
// personal-message scheme.
type EthereumSigner struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewEthereumSigner constructs a signer from a hex-encoded private key.
func NewEthereumSigner(hexKey string) (*EthereumSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return &EthereumSigner{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

// Address returns the 0x-prefixed checksummed address.
func (s *EthereumSigner) Address() string {
	return s.address
}

// SignMessage signs keccak256 of the personal-message envelope around the
// raw message bytes.
func (s *EthereumSigner) SignMessage(message []byte) ([]byte, error) {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	digest := crypto.Keccak256(append([]byte(prefix), message...))
	sig, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	return sig, nil
}
