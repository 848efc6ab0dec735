package persistence

import (
	"errors"

	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
)

var (
	// ErrStoreNotFound is returned when opening a wallet store that does not exist.
	ErrStoreNotFound = errors.New("wallet store not found")

	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("persistence layer is closed")
)

// IWalletStore defines the interface for persisting a wallet between runs.
// All implementations must be thread-safe; the wallet event loop and the
// caller may touch the store concurrently.
//
// The interface supports:
// - Wallet metadata (title, creation time)
// - The encrypted keychain holding account private keys
// - Account descriptors (save, load, list, delete)
// - The selected account pointer
// - Lifecycle management (close, health check)
type IWalletStore interface {
	// Wallet Metadata

	// SaveWalletMetadata overwrites the wallet metadata.
	SaveWalletMetadata(meta *WalletMetadata) error

	// LoadWalletMetadata returns nil if the wallet has never been initialized.
	LoadWalletMetadata() (*WalletMetadata, error)

	// Keychain

	// SaveKeychain persists the sealed keychain, replacing any previous one.
	SaveKeychain(kc *keychain.EncryptedKeychain) error

	// LoadKeychain returns nil if no keychain has been stored.
	LoadKeychain() (*keychain.EncryptedKeychain, error)

	// Accounts

	// SaveAccount persists an account descriptor keyed by its id.
	// Idempotent - overwrites an existing record with the same id.
	SaveAccount(account *AccountRecord) error

	// LoadAccount returns nil if the account does not exist.
	LoadAccount(id string) (*AccountRecord, error)

	// ListAccounts returns all accounts sorted by Index (ascending).
	// Returns an empty slice if none exist.
	ListAccounts() ([]*AccountRecord, error)

	// DeleteAccount removes an account. Idempotent.
	DeleteAccount(id string) error

	// Selection

	// SetSelectedAccount records the account last selected. Empty clears it.
	SetSelectedAccount(id string) error

	// GetSelectedAccount returns "" when nothing is selected.
	GetSelectedAccount() (string, error)

	// Lifecycle

	// Close releases resources. Idempotent.
	Close() error

	// HealthCheck verifies the store is open and initialized.
	HealthCheck() error
}
