package main

import (
	"context"

	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/deposit"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence/badger"
	redisStore "github.com/kaspa-bridge/deposit-sender/pkg/persistence/redis"
	"go.uber.org/zap"
)

// storeFactory returns how to locate and open the configured wallet store.
// For badger the location is a directory; for redis it is the wallet name.
func storeFactory(cfg *config.DepositConfig, create bool, logger *zap.Logger) (deposit.LocationResolver, deposit.StoreOpener) {
	walletName := cfg.WalletName
	if walletName == "" {
		walletName = config.DefaultWalletName
	}

	if cfg.Store.Backend == config.StoreBackend_Redis {
		rc := cfg.Store.Redis
		resolve := func(string) (string, error) {
			return walletName, nil
		}
		open := func(ctx context.Context, location string) (persistence.IWalletStore, error) {
			store, err := redisStore.NewRedisPersistence(ctx, &redisStore.RedisConfig{
				Address:         rc.Address,
				Password:        rc.Password,
				DB:              rc.DB,
				KeyPrefix:       rc.KeyPrefix,
				WalletName:      location,
				CreateIfMissing: create,
			}, logger)
			if err != nil {
				return nil, err
			}
			return store, nil
		}
		return resolve, open
	}

	open := func(_ context.Context, location string) (persistence.IWalletStore, error) {
		store, err := badger.NewBadgerPersistence(badger.StorePath(location, walletName), badger.Options{
			CreateIfMissing: create,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return config.ResolveStorageDir, open
}

// openStore resolves and opens the store outside a deposit session
func openStore(ctx context.Context, cfg *config.DepositConfig, create bool, logger *zap.Logger) (persistence.IWalletStore, error) {
	resolve, open := storeFactory(cfg, create, logger)
	location, err := resolve(cfg.WalletDir)
	if err != nil {
		return nil, err
	}
	return open(ctx, location)
}
