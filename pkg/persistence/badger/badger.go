package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"go.uber.org/zap"
)

// Key prefixes for namespacing
const (
	keyPrefixAccount     = "account:"
	keyKeychain          = "keychain:main"
	keySelectedAccount   = "selected:account"
	keyWalletMetadata    = "metadata:wallet"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	// manifestFile is present in every initialized badger directory.
	manifestFile = "MANIFEST"
)

// Options controls how a wallet store is opened.
type Options struct {
	// CreateIfMissing creates a new store instead of failing with
	// persistence.ErrStoreNotFound.
	CreateIfMissing bool

	// GCInterval is the value log GC period. Zero uses five minutes.
	GCInterval time.Duration
}

// BadgerPersistence is the disk-backed wallet store.
type BadgerPersistence struct {
	db       *badgerdb.DB
	path     string
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.IWalletStore = (*BadgerPersistence)(nil)

// StorePath returns the directory holding the wallet named walletName under
// the storage location dir.
func StorePath(dir, walletName string) string {
	return filepath.Join(dir, walletName+".wallet")
}

// NewBadgerPersistence opens the wallet store at dataPath. The path is always
// explicit; there is no process-wide default location.
func NewBadgerPersistence(dataPath string, opts Options, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if !opts.CreateIfMissing {
		if _, err := os.Stat(filepath.Join(absPath, manifestFile)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w at %s", persistence.ErrStoreNotFound, absPath)
			}
			return nil, fmt.Errorf("failed to access wallet store at %s: %w", absPath, err)
		}
	}

	bopts := badgerdb.DefaultOptions(absPath)
	bopts.Logger = &badgerLoggerAdapter{logger: logger.With(zap.String("component", "badger"))}
	bopts.SyncWrites = true
	bopts.CompactL0OnClose = true
	bopts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		path:   absPath,
		logger: logger,
	}

	if err := bp.initSchema(opts.CreateIfMissing); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	interval := opts.GCInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx, interval)

	logger.Sugar().Debugw("Badger wallet store opened", "path", absPath)

	return bp, nil
}

// initSchema writes the schema version on creation and validates it otherwise.
func (b *BadgerPersistence) initSchema(create bool) error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			if !create {
				return fmt.Errorf("%w: missing schema version", persistence.ErrStoreNotFound)
			}
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context, interval time.Duration) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Path returns the absolute store directory.
func (b *BadgerPersistence) Path() string {
	return b.path
}

func (b *BadgerPersistence) set(key string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrStoreClosed
	}
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get returns nil when the key does not exist.
func (b *BadgerPersistence) get(key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrStoreClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	return data, err
}

func (b *BadgerPersistence) delete(key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrStoreClosed
	}
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerPersistence) SaveWalletMetadata(meta *persistence.WalletMetadata) error {
	data, err := persistence.MarshalWalletMetadata(meta)
	if err != nil {
		return err
	}
	if err := b.set(keyWalletMetadata, data); err != nil {
		return fmt.Errorf("failed to save wallet metadata: %w", err)
	}
	return nil
}

func (b *BadgerPersistence) LoadWalletMetadata() (*persistence.WalletMetadata, error) {
	data, err := b.get(keyWalletMetadata)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet metadata: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalWalletMetadata(data)
}

func (b *BadgerPersistence) SaveKeychain(kc *keychain.EncryptedKeychain) error {
	data, err := persistence.MarshalKeychain(kc)
	if err != nil {
		return err
	}
	if err := b.set(keyKeychain, data); err != nil {
		return fmt.Errorf("failed to save keychain: %w", err)
	}
	return nil
}

func (b *BadgerPersistence) LoadKeychain() (*keychain.EncryptedKeychain, error) {
	data, err := b.get(keyKeychain)
	if err != nil {
		return nil, fmt.Errorf("failed to load keychain: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalKeychain(data)
}

func (b *BadgerPersistence) SaveAccount(account *persistence.AccountRecord) error {
	data, err := persistence.MarshalAccountRecord(account)
	if err != nil {
		return err
	}
	if err := b.set(keyPrefixAccount+account.Id, data); err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.Id, err)
	}
	return nil
}

func (b *BadgerPersistence) LoadAccount(id string) (*persistence.AccountRecord, error) {
	data, err := b.get(keyPrefixAccount + id)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalAccountRecord(data)
}

// ListAccounts returns all accounts sorted by index
func (b *BadgerPersistence) ListAccounts() ([]*persistence.AccountRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrStoreClosed
	}

	accounts := []*persistence.AccountRecord{}
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixAccount)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...)
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			account, err := persistence.UnmarshalAccountRecord(data)
			if err != nil {
				return fmt.Errorf("corrupted account record %s: %w", string(item.Key()), err)
			}
			accounts = append(accounts, account)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	persistence.SortAccounts(accounts)
	return accounts, nil
}

func (b *BadgerPersistence) DeleteAccount(id string) error {
	if err := b.delete(keyPrefixAccount + id); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	return nil
}

func (b *BadgerPersistence) SetSelectedAccount(id string) error {
	var err error
	if id == "" {
		err = b.delete(keySelectedAccount)
	} else {
		err = b.set(keySelectedAccount, []byte(id))
	}
	if err != nil {
		return fmt.Errorf("failed to save selected account: %w", err)
	}
	return nil
}

func (b *BadgerPersistence) GetSelectedAccount() (string, error) {
	data, err := b.get(keySelectedAccount)
	if err != nil {
		return "", fmt.Errorf("failed to load selected account: %w", err)
	}
	return string(data), nil
}

// Close stops GC and closes the database. Idempotent.
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Debugw("Badger wallet store closed", "path", b.path)
	return nil
}

// HealthCheck verifies the store is open and the schema key is readable.
func (b *BadgerPersistence) HealthCheck() error {
	data, err := b.get(keySchemaVersion)
	if err != nil {
		if errors.Is(err, persistence.ErrStoreClosed) {
			return err
		}
		return fmt.Errorf("badger health check failed: %w", err)
	}
	if data == nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	return nil
}
