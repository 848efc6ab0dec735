package transactionSigner

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/transaction"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"go.uber.org/zap"
)

const opData65 = 0x41

// PrivateKeySigner signs P2PK inputs with a local secp256k1 key.
type PrivateKeySigner struct {
	privateKey *btcec.PrivateKey
	publicKey  []byte
	address    *address.Address
	logger     *zap.Logger
}

var _ ITransactionSigner = (*PrivateKeySigner)(nil)

// NewPrivateKeySigner creates a signer from a 32 byte private key. The
// caller keeps ownership of privateKey and may wipe it afterwards.
func NewPrivateKeySigner(privateKey []byte, network config.NetworkId, logger *zap.Logger) (*PrivateKeySigner, error) {
	if len(privateKey) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(privateKey))
	}
	priv, pub := btcec.PrivKeyFromBytes(privateKey)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero")
	}

	xOnly := schnorr.SerializePubKey(pub)
	addr, err := address.NewPubKey(network, xOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PrivateKeySigner{
		privateKey: priv,
		publicKey:  xOnly,
		address:    addr,
		logger:     logger,
	}, nil
}

func (s *PrivateKeySigner) PublicKey() []byte {
	return append([]byte{}, s.publicKey...)
}

func (s *PrivateKeySigner) Address() *address.Address {
	return s.address
}

// SignTransaction signs every input with SigHashAll.
func (s *PrivateKeySigner) SignTransaction(tx *types.Transaction, entries []types.UtxoEntry) error {
	if s.privateKey == nil {
		return fmt.Errorf("signer is closed")
	}
	if len(entries) != len(tx.Inputs) {
		return fmt.Errorf("expected %d utxo entries, got %d", len(tx.Inputs), len(entries))
	}

	pub := s.privateKey.PubKey()
	for i := range tx.Inputs {
		hash, err := transaction.SignatureHashSchnorr(tx, i, transaction.SigHashAll, entries)
		if err != nil {
			return fmt.Errorf("failed to compute signature hash for input %d: %w", i, err)
		}
		sig, err := schnorr.Sign(s.privateKey, hash[:])
		if err != nil {
			return fmt.Errorf("failed to sign input %d: %w", i, err)
		}
		if !sig.Verify(hash[:], pub) {
			return fmt.Errorf("signature verification failed for input %d", i)
		}

		script := make([]byte, 0, transaction.SchnorrSignatureScriptSize)
		script = append(script, opData65)
		script = append(script, sig.Serialize()...)
		script = append(script, byte(transaction.SigHashAll))
		tx.Inputs[i].SignatureScript = script
	}

	s.logger.Sugar().Debugw("Signed transaction inputs",
		"inputs", len(tx.Inputs),
		"address", s.address.String(),
	)
	return nil
}

func (s *PrivateKeySigner) Close() {
	if s.privateKey != nil {
		s.privateKey.Zero()
		s.privateKey = nil
	}
}
