package main

import (
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/urfave/cli/v2"
)

// parseConfig reads flags into a DepositConfig. Values from the --config
// file fill in only the flags that were not given.
func parseConfig(c *cli.Context) (*config.DepositConfig, error) {
	cfg := &config.DepositConfig{
		Network:    c.String(flagNetwork),
		RpcUrl:     c.String(flagRPC),
		WalletDir:  c.String(flagWalletDir),
		WalletName: c.String(flagWalletName),
		Escrow:     c.String(flagEscrow),
		Store: config.StoreConfig{
			Backend: config.StoreBackend(c.String(flagStore)),
			Redis: config.RedisConfig{
				Address:   c.String(flagRedisAddress),
				Password:  c.String(flagRedisPassword),
				DB:        c.Int(flagRedisDB),
				KeyPrefix: c.String(flagRedisPrefix),
			},
		},
		AWSRegion:       c.String(flagAWSRegion),
		Amount:          c.String(flagAmount),
		Payload:         c.String(flagPayload),
		WalletSecret:    secret.FromString(c.String(flagWalletSecret)),
		WalletSecretKMS: c.String(flagWalletSecretKMS),
		Timeout:         c.Duration(flagTimeout),
		Debug:           c.Bool(flagVerbose),
	}

	path := c.String(flagConfig)
	if path == "" {
		return cfg, nil
	}
	fc, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	mergeFile(c, cfg, fc)
	return cfg, nil
}

func mergeFile(c *cli.Context, cfg *config.DepositConfig, fc *config.FileConfig) {
	fill := func(flag string, dst *string, v string) {
		if v != "" && !c.IsSet(flag) {
			*dst = v
		}
	}
	fill(flagNetwork, &cfg.Network, fc.Network)
	fill(flagRPC, &cfg.RpcUrl, fc.RpcUrl)
	fill(flagWalletDir, &cfg.WalletDir, fc.WalletDir)
	fill(flagWalletName, &cfg.WalletName, fc.WalletName)
	fill(flagEscrow, &cfg.Escrow, fc.Escrow)
	fill(flagAWSRegion, &cfg.AWSRegion, fc.AWSRegion)

	backend := string(cfg.Store.Backend)
	fill(flagStore, &backend, string(fc.Store.Backend))
	cfg.Store.Backend = config.StoreBackend(backend)
	fill(flagRedisAddress, &cfg.Store.Redis.Address, fc.Store.Redis.Address)
	fill(flagRedisPassword, &cfg.Store.Redis.Password, fc.Store.Redis.Password)
	fill(flagRedisPrefix, &cfg.Store.Redis.KeyPrefix, fc.Store.Redis.KeyPrefix)
	if fc.Store.Redis.DB != 0 && !c.IsSet(flagRedisDB) {
		cfg.Store.Redis.DB = fc.Store.Redis.DB
	}

	if fc.Timeout != 0 && !c.IsSet(flagTimeout) {
		cfg.Timeout = fc.Timeout
	}
}
