package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key suffixes, namespaced under "<prefix>:<wallet>:"
const (
	keyPrefixAccount     = "account:"
	keyKeychain          = "keychain:main"
	keySelectedAccount   = "selected:account"
	keyWalletMetadata    = "metadata:wallet"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis has no prefix iteration, so account ids are tracked in a set.
	keySetAccounts = "accounts:index"

	defaultKeyPrefix = "kaspa-wallet"
	defaultTimeout   = 5 * time.Second
)

// RedisPersistence is a wallet store shared through Redis, for deployments
// where several senders use one wallet.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	namespace string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.IWalletStore = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix namespaces all wallets; defaults to "kaspa-wallet".
	KeyPrefix string
	// WalletName selects the wallet under the prefix. This is the storage
	// location for the Redis backend.
	WalletName string
	// CreateIfMissing creates the wallet namespace instead of failing with
	// persistence.ErrStoreNotFound.
	CreateIfMissing bool
}

// NewRedisPersistence connects to Redis and opens the wallet namespace.
func NewRedisPersistence(ctx context.Context, cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if cfg.WalletName == "" {
		return nil, fmt.Errorf("wallet name cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		namespace: fmt.Sprintf("%s:%s:", prefix, cfg.WalletName),
	}

	if err := rp.initSchema(pingCtx, cfg.CreateIfMissing); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Sugar().Debugw("Redis wallet store opened", "address", cfg.Address, "db", cfg.DB, "namespace", rp.namespace)

	return rp, nil
}

func (r *RedisPersistence) key(k string) string {
	return r.namespace + k
}

func (r *RedisPersistence) initSchema(ctx context.Context, create bool) error {
	schemaKey := r.key(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		if !create {
			return fmt.Errorf("%w at %s", persistence.ErrStoreNotFound, r.namespace)
		}
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

func (r *RedisPersistence) guard() (context.Context, context.CancelFunc, error) {
	if r.closed {
		return nil, nil, persistence.ErrStoreClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	return ctx, cancel, nil
}

func (r *RedisPersistence) set(k string, data []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel, err := r.guard()
	if err != nil {
		return err
	}
	defer cancel()
	return r.client.Set(ctx, r.key(k), data, 0).Err()
}

// get returns nil when the key does not exist.
func (r *RedisPersistence) get(k string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel, err := r.guard()
	if err != nil {
		return nil, err
	}
	defer cancel()

	data, err := r.client.Get(ctx, r.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (r *RedisPersistence) SaveWalletMetadata(meta *persistence.WalletMetadata) error {
	data, err := persistence.MarshalWalletMetadata(meta)
	if err != nil {
		return err
	}
	if err := r.set(keyWalletMetadata, data); err != nil {
		return fmt.Errorf("failed to save wallet metadata: %w", err)
	}
	return nil
}

func (r *RedisPersistence) LoadWalletMetadata() (*persistence.WalletMetadata, error) {
	data, err := r.get(keyWalletMetadata)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet metadata: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalWalletMetadata(data)
}

func (r *RedisPersistence) SaveKeychain(kc *keychain.EncryptedKeychain) error {
	data, err := persistence.MarshalKeychain(kc)
	if err != nil {
		return err
	}
	if err := r.set(keyKeychain, data); err != nil {
		return fmt.Errorf("failed to save keychain: %w", err)
	}
	return nil
}

func (r *RedisPersistence) LoadKeychain() (*keychain.EncryptedKeychain, error) {
	data, err := r.get(keyKeychain)
	if err != nil {
		return nil, fmt.Errorf("failed to load keychain: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalKeychain(data)
}

// SaveAccount writes the record and its index entry in one pipeline
func (r *RedisPersistence) SaveAccount(account *persistence.AccountRecord) error {
	data, err := persistence.MarshalAccountRecord(account)
	if err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel, err := r.guard()
	if err != nil {
		return err
	}
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(keyPrefixAccount+account.Id), data, 0)
	pipe.SAdd(ctx, r.key(keySetAccounts), account.Id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.Id, err)
	}
	return nil
}

func (r *RedisPersistence) LoadAccount(id string) (*persistence.AccountRecord, error) {
	data, err := r.get(keyPrefixAccount + id)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalAccountRecord(data)
}

// ListAccounts returns all accounts sorted by index
func (r *RedisPersistence) ListAccounts() ([]*persistence.AccountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel, err := r.guard()
	if err != nil {
		return nil, err
	}
	defer cancel()

	indexKey := r.key(keySetAccounts)
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list account ids: %w", err)
	}
	if len(ids) == 0 {
		return []*persistence.AccountRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(keyPrefixAccount + id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	accounts := make([]*persistence.AccountRecord, 0, len(values))
	for i, val := range values {
		if val == nil {
			// indexed but missing, clean up the index
			r.client.SRem(ctx, indexKey, ids[i])
			continue
		}
		data, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type for account %s", ids[i])
		}
		account, err := persistence.UnmarshalAccountRecord([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("corrupted account record %s: %w", ids[i], err)
		}
		accounts = append(accounts, account)
	}

	persistence.SortAccounts(accounts)
	return accounts, nil
}

func (r *RedisPersistence) DeleteAccount(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel, err := r.guard()
	if err != nil {
		return err
	}
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(keyPrefixAccount+id))
	pipe.SRem(ctx, r.key(keySetAccounts), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	return nil
}

func (r *RedisPersistence) SetSelectedAccount(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel, err := r.guard()
	if err != nil {
		return err
	}
	defer cancel()

	if id == "" {
		err = r.client.Del(ctx, r.key(keySelectedAccount)).Err()
	} else {
		err = r.client.Set(ctx, r.key(keySelectedAccount), id, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to save selected account: %w", err)
	}
	return nil
}

func (r *RedisPersistence) GetSelectedAccount() (string, error) {
	data, err := r.get(keySelectedAccount)
	if err != nil {
		return "", fmt.Errorf("failed to load selected account: %w", err)
	}
	return string(data), nil
}

// Close shuts down the Redis client. Idempotent.
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Debugw("Redis wallet store closed", "namespace", r.namespace)
	return nil
}

// HealthCheck pings Redis and verifies the schema version exists
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel, err := r.guard()
	if err != nil {
		return err
	}
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err = r.client.Get(ctx, r.key(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}
