package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	TransactionIdLength = 32
	SubnetworkIdLength  = 20

	// SompiPerKaspa is the number of base units in one KAS.
	SompiPerKaspa uint64 = 100_000_000
)

// TransactionId is a 32 byte transaction identifier rendered as lowercase hex.
type TransactionId [TransactionIdLength]byte

func TransactionIdFromHex(s string) (TransactionId, error) {
	var id TransactionId
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid transaction id %q: %w", s, err)
	}
	if len(b) != TransactionIdLength {
		return id, fmt.Errorf("transaction id must be %d bytes, got %d", TransactionIdLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id TransactionId) String() string {
	return hex.EncodeToString(id[:])
}

func (id TransactionId) IsZero() bool {
	return id == TransactionId{}
}

func (id TransactionId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TransactionId) UnmarshalText(text []byte) error {
	parsed, err := TransactionIdFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// SubnetworkId selects the subnetwork a transaction belongs to. The zero
// value is the native subnetwork.
type SubnetworkId [SubnetworkIdLength]byte

var SubnetworkIdNative = SubnetworkId{}

func (s SubnetworkId) IsNative() bool {
	return s == SubnetworkIdNative
}

func (s SubnetworkId) String() string {
	return hex.EncodeToString(s[:])
}

func (s SubnetworkId) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SubnetworkId) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid subnetwork id: %w", err)
	}
	if len(b) != SubnetworkIdLength {
		return fmt.Errorf("subnetwork id must be %d bytes, got %d", SubnetworkIdLength, len(b))
	}
	copy(s[:], b)
	return nil
}

// HexBytes is a byte slice carried as a hex string on the wire.
type HexBytes []byte

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h)), nil
}

func (h *HexBytes) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = nil
		return nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	*h = b
	return nil
}

// ScriptPublicKey is a versioned locking script. On the wire it is a hex
// string of the big endian 16-bit version followed by the script.
type ScriptPublicKey struct {
	Version uint16
	Script  []byte
}

func (s ScriptPublicKey) Equal(other ScriptPublicKey) bool {
	return s.Version == other.Version && bytes.Equal(s.Script, other.Script)
}

func (s ScriptPublicKey) String() string {
	b := make([]byte, 2+len(s.Script))
	binary.BigEndian.PutUint16(b, s.Version)
	copy(b[2:], s.Script)
	return hex.EncodeToString(b)
}

func (s ScriptPublicKey) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ScriptPublicKey) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid script public key: %w", err)
	}
	if len(b) < 2 {
		return fmt.Errorf("script public key is too short")
	}
	s.Version = binary.BigEndian.Uint16(b)
	s.Script = b[2:]
	return nil
}

type Outpoint struct {
	TransactionId TransactionId `json:"transactionId"`
	Index         uint32        `json:"index"`
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TransactionId, o.Index)
}

type UtxoEntry struct {
	Amount          uint64          `json:"amount"`
	ScriptPublicKey ScriptPublicKey `json:"scriptPublicKey"`
	BlockDaaScore   uint64          `json:"blockDaaScore"`
	IsCoinbase      bool            `json:"isCoinbase"`
}

// UtxoEntryReference is a spendable output owned by an address.
type UtxoEntryReference struct {
	Address  string    `json:"address"`
	Outpoint Outpoint  `json:"outpoint"`
	Entry    UtxoEntry `json:"utxoEntry"`
}

type TransactionInput struct {
	PreviousOutpoint Outpoint `json:"previousOutpoint"`
	SignatureScript  HexBytes `json:"signatureScript"`
	Sequence         uint64   `json:"sequence"`
	SigOpCount       uint8    `json:"sigOpCount"`
}

type TransactionOutput struct {
	Value           uint64          `json:"value"`
	ScriptPublicKey ScriptPublicKey `json:"scriptPublicKey"`
}

// Transaction mirrors the node's RPC transaction shape. A nil Payload means
// the transaction carries no payload.
type Transaction struct {
	Version      uint16              `json:"version"`
	Inputs       []TransactionInput  `json:"inputs"`
	Outputs      []TransactionOutput `json:"outputs"`
	LockTime     uint64              `json:"lockTime"`
	SubnetworkId SubnetworkId        `json:"subnetworkId"`
	Gas          uint64              `json:"gas"`
	Payload      HexBytes            `json:"payload"`
	Mass         uint64              `json:"mass"`
}

// TotalOutputValue sums every output value.
func (tx *Transaction) TotalOutputValue() uint64 {
	var total uint64
	for _, o := range tx.Outputs {
		total += o.Value
	}
	return total
}
