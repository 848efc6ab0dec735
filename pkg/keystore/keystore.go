package keystore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
)

// AccountDescriptor describes an account of an unlocked wallet
type AccountDescriptor struct {
	AccountId      string
	Name           string
	Index          uint32
	PublicKey      []byte
	ReceiveAddress *address.Address
}

// KeyStore tracks the accounts of an open wallet together with the
// selected account and the set of activated accounts. It is thread-safe.
type KeyStore struct {
	mu sync.RWMutex

	accounts []*AccountDescriptor
	byId     map[string]*AccountDescriptor
	active   map[string]bool
	selected *AccountDescriptor
}

// NewKeyStore creates a new key store
func NewKeyStore() *KeyStore {
	return &KeyStore{
		accounts: make([]*AccountDescriptor, 0),
		byId:     make(map[string]*AccountDescriptor),
		active:   make(map[string]bool),
	}
}

// AddAccount registers an account descriptor
func (ks *KeyStore) AddAccount(account *AccountDescriptor) error {
	if account == nil || account.AccountId == "" {
		return fmt.Errorf("account descriptor requires an id")
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, ok := ks.byId[account.AccountId]; ok {
		return fmt.Errorf("account %s already registered", account.AccountId)
	}
	ks.accounts = append(ks.accounts, account)
	sort.SliceStable(ks.accounts, func(i, j int) bool {
		return ks.accounts[i].Index < ks.accounts[j].Index
	})
	ks.byId[account.AccountId] = account
	return nil
}

// Accounts returns the registered accounts ordered by creation index
func (ks *KeyStore) Accounts() []*AccountDescriptor {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	out := make([]*AccountDescriptor, len(ks.accounts))
	copy(out, ks.accounts)
	return out
}

func (ks *KeyStore) Get(id string) (*AccountDescriptor, bool) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	a, ok := ks.byId[id]
	return a, ok
}

// Select marks an account as the selected one. An empty id clears the
// selection.
func (ks *KeyStore) Select(id string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if id == "" {
		ks.selected = nil
		return nil
	}
	a, ok := ks.byId[id]
	if !ok {
		return fmt.Errorf("account %s not found", id)
	}
	ks.selected = a
	return nil
}

func (ks *KeyStore) Selected() *AccountDescriptor {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	return ks.selected
}

// Activate marks accounts as active. With no ids the selected account is
// activated.
func (ks *KeyStore) Activate(ids ...string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if len(ids) == 0 {
		if ks.selected == nil {
			return fmt.Errorf("no selected account to activate")
		}
		ids = []string{ks.selected.AccountId}
	}
	for _, id := range ids {
		if _, ok := ks.byId[id]; !ok {
			return fmt.Errorf("account %s not found", id)
		}
	}
	for _, id := range ids {
		ks.active[id] = true
	}
	return nil
}

// Deactivate clears the active flag of the given accounts, or of all
// accounts when none are given.
func (ks *KeyStore) Deactivate(ids ...string) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if len(ids) == 0 {
		ks.active = make(map[string]bool)
		return
	}
	for _, id := range ids {
		delete(ks.active, id)
	}
}

func (ks *KeyStore) IsActive(id string) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	return ks.active[id]
}

// ActiveAccount returns the selected account if it has been activated
func (ks *KeyStore) ActiveAccount() (*AccountDescriptor, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.selected == nil {
		return nil, fmt.Errorf("no account selected")
	}
	if !ks.active[ks.selected.AccountId] {
		return nil, fmt.Errorf("account %s is not active", ks.selected.AccountId)
	}
	return ks.selected, nil
}

// Reset forgets every account
func (ks *KeyStore) Reset() {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.accounts = make([]*AccountDescriptor, 0)
	ks.byId = make(map[string]*AccountDescriptor)
	ks.active = make(map[string]bool)
	ks.selected = nil
}
