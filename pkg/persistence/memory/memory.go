package memory

import (
	"fmt"
	"sync"

	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
)

// MemoryPersistence is an in-memory IWalletStore.
// This implementation is intended for TESTING ONLY.
//
// Data is lost when the process exits. Values are copied on the way in and
// out to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	metadata *persistence.WalletMetadata
	keychain *keychain.EncryptedKeychain
	accounts map[string]*persistence.AccountRecord
	selected string

	closed bool
}

var _ persistence.IWalletStore = (*MemoryPersistence)(nil)

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		accounts: make(map[string]*persistence.AccountRecord),
	}
}

func (m *MemoryPersistence) SaveWalletMetadata(meta *persistence.WalletMetadata) error {
	if meta == nil {
		return fmt.Errorf("cannot save nil WalletMetadata")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}
	cp := *meta
	m.metadata = &cp
	return nil
}

func (m *MemoryPersistence) LoadWalletMetadata() (*persistence.WalletMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrStoreClosed
	}
	if m.metadata == nil {
		return nil, nil
	}
	cp := *m.metadata
	return &cp, nil
}

func (m *MemoryPersistence) SaveKeychain(kc *keychain.EncryptedKeychain) error {
	if kc == nil {
		return fmt.Errorf("cannot save nil EncryptedKeychain")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}
	cp := *kc
	m.keychain = &cp
	return nil
}

func (m *MemoryPersistence) LoadKeychain() (*keychain.EncryptedKeychain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrStoreClosed
	}
	if m.keychain == nil {
		return nil, nil
	}
	cp := *m.keychain
	return &cp, nil
}

func (m *MemoryPersistence) SaveAccount(account *persistence.AccountRecord) error {
	if account == nil {
		return fmt.Errorf("cannot save nil AccountRecord")
	}
	if account.Id == "" {
		return fmt.Errorf("cannot save AccountRecord without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}
	cp := *account
	m.accounts[account.Id] = &cp
	return nil
}

func (m *MemoryPersistence) LoadAccount(id string) (*persistence.AccountRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrStoreClosed
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryPersistence) ListAccounts() ([]*persistence.AccountRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrStoreClosed
	}
	result := make([]*persistence.AccountRecord, 0, len(m.accounts))
	for _, a := range m.accounts {
		cp := *a
		result = append(result, &cp)
	}
	persistence.SortAccounts(result)
	return result, nil
}

func (m *MemoryPersistence) DeleteAccount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}
	delete(m.accounts, id)
	return nil
}

func (m *MemoryPersistence) SetSelectedAccount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}
	m.selected = id
	return nil
}

func (m *MemoryPersistence) GetSelectedAccount() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", persistence.ErrStoreClosed
	}
	return m.selected, nil
}

func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (m *MemoryPersistence) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
