package transactionSigner

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"go.uber.org/zap"
)

// ITransactionSigner provides methods for signing Kaspa transactions
type ITransactionSigner interface {
	// SignTransaction writes a signature script into every input. entries
	// holds the utxo spent by each input, in input order.
	SignTransaction(tx *types.Transaction, entries []types.UtxoEntry) error

	// PublicKey returns the 32 byte x-only Schnorr public key
	PublicKey() []byte

	// Address returns the P2PK address that the signing key controls
	Address() *address.Address

	// Close wipes the key material
	Close()
}

type SignerConfig struct {
	PrivateKey string `json:"privateKey" yaml:"privateKey"`
}

func NewTransactionSigner(cfg *SignerConfig, network config.NetworkId, logger *zap.Logger) (ITransactionSigner, error) {
	if cfg == nil || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key cannot be empty")
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("private key must be hex encoded")
	}
	defer clear(keyBytes)

	return NewPrivateKeySigner(keyBytes, network, logger)
}
