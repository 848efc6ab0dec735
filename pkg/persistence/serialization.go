package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
)

// MarshalAccountRecord serializes an AccountRecord to JSON bytes.
func MarshalAccountRecord(a *AccountRecord) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("cannot marshal nil AccountRecord")
	}
	if a.Id == "" {
		return nil, fmt.Errorf("cannot marshal AccountRecord without id")
	}

	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal AccountRecord to JSON: %w", err)
	}
	return data, nil
}

// UnmarshalAccountRecord deserializes an AccountRecord from JSON bytes.
func UnmarshalAccountRecord(data []byte) (*AccountRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var a AccountRecord
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to AccountRecord: %w", err)
	}
	return &a, nil
}

// MarshalKeychain serializes a sealed keychain.
func MarshalKeychain(kc *keychain.EncryptedKeychain) ([]byte, error) {
	if kc == nil {
		return nil, fmt.Errorf("cannot marshal nil EncryptedKeychain")
	}
	return json.Marshal(kc)
}

// UnmarshalKeychain deserializes a sealed keychain.
func UnmarshalKeychain(data []byte) (*keychain.EncryptedKeychain, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var kc keychain.EncryptedKeychain
	if err := json.Unmarshal(data, &kc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to EncryptedKeychain: %w", err)
	}
	return &kc, nil
}

// MarshalWalletMetadata serializes WalletMetadata.
func MarshalWalletMetadata(m *WalletMetadata) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("cannot marshal nil WalletMetadata")
	}
	return json.Marshal(m)
}

// UnmarshalWalletMetadata deserializes WalletMetadata.
func UnmarshalWalletMetadata(data []byte) (*WalletMetadata, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var m WalletMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to WalletMetadata: %w", err)
	}
	return &m, nil
}
