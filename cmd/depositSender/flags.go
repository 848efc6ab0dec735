package main

import (
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/urfave/cli/v2"
)

const (
	flagWalletSecret    = "wallet-secret"
	flagWalletSecretKMS = "wallet-secret-kms"
	flagWalletDir       = "wallet-dir"
	flagWalletName      = "wallet-name"
	flagAmount          = "amount"
	flagPayload         = "payload"
	flagEscrow          = "escrow"
	flagNetwork         = "network"
	flagRPC             = "rpc"
	flagStore           = "store"
	flagRedisAddress    = "redis-address"
	flagRedisPassword   = "redis-password"
	flagRedisDB         = "redis-db"
	flagRedisPrefix     = "redis-prefix"
	flagAWSRegion       = "aws-region"
	flagTimeout         = "timeout"
	flagVerbose         = "verbose"
	flagConfig          = "config"
	flagPrivateKey      = "private-key"
	flagTitle           = "title"
)

// walletFlags locate and unlock a wallet
func walletFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagWalletSecret,
			Usage:   "Wallet password protecting the keychain",
			EnvVars: []string{config.EnvWalletSecret},
		},
		&cli.StringFlag{
			Name:    flagWalletSecretKMS,
			Usage:   "Base64 KMS ciphertext of the wallet password, used instead of --wallet-secret",
			EnvVars: []string{config.EnvWalletSecretKMS},
		},
		&cli.StringFlag{
			Name:    flagAWSRegion,
			Usage:   "AWS region for KMS decryption",
			EnvVars: []string{config.EnvAWSRegion},
		},
		&cli.StringFlag{
			Name:    flagWalletDir,
			Usage:   "Wallet directory (default: ~/.kaspa)",
			EnvVars: []string{config.EnvWalletDir},
		},
		&cli.StringFlag{
			Name:    flagWalletName,
			Usage:   "Wallet name within the store",
			Value:   config.DefaultWalletName,
			EnvVars: []string{config.EnvWalletName},
		},
		&cli.StringFlag{
			Name:    flagNetwork,
			Usage:   networkUsage,
			Value:   string(config.NetworkType_Mainnet),
			EnvVars: []string{config.EnvNetwork},
		},
		&cli.StringFlag{
			Name:    flagStore,
			Usage:   "Wallet store backend: badger or redis",
			Value:   string(config.StoreBackend_Badger),
			EnvVars: []string{config.EnvStoreBackend},
		},
		&cli.StringFlag{
			Name:    flagRedisAddress,
			Usage:   "Redis address (host:port) for the redis store",
			EnvVars: []string{config.EnvRedisAddress},
		},
		&cli.StringFlag{
			Name:    flagRedisPassword,
			Usage:   "Redis password",
			EnvVars: []string{config.EnvRedisPassword},
		},
		&cli.IntFlag{
			Name:  flagRedisDB,
			Usage: "Redis database number",
		},
		&cli.StringFlag{
			Name:  flagRedisPrefix,
			Usage: "Redis key prefix",
			Value: config.DefaultRedisPrefix,
		},
		&cli.StringFlag{
			Name:    flagConfig,
			Usage:   "YAML file with defaults for flags not given on the command line",
			EnvVars: []string{config.EnvConfigFile},
		},
		&cli.BoolFlag{
			Name:    flagVerbose,
			Usage:   "Enable verbose logging",
			EnvVars: []string{config.EnvVerbose},
		},
	}
}

func depositFlags() []cli.Flag {
	return append(walletFlags(),
		&cli.StringFlag{
			Name:  flagAmount,
			Usage: "Amount in sompi (1 KAS = 100,000,000 sompi)",
		},
		&cli.StringFlag{
			Name:  flagPayload,
			Usage: "Hyperlane message payload, hex encoded; empty sends no payload",
		},
		&cli.StringFlag{
			Name:    flagEscrow,
			Usage:   "Escrow address to send to",
			EnvVars: []string{config.EnvEscrow},
		},
		&cli.StringFlag{
			Name:    flagRPC,
			Aliases: []string{"rpc-url"},
			Usage:   "Kaspa wRPC URL (e.g. wss://your-node:17110)",
			EnvVars: []string{config.EnvRPCURL},
		},
		&cli.DurationFlag{
			Name:  flagTimeout,
			Usage: "Overall deadline for the deposit; 0 waits indefinitely",
		},
	)
}

func walletCreateFlags() []cli.Flag {
	return append(walletFlags(),
		&cli.StringFlag{
			Name:  flagPrivateKey,
			Usage: "Hex private key to import; a new key is generated when omitted",
		},
		&cli.StringFlag{
			Name:  flagTitle,
			Usage: "Wallet title",
			Value: "deposit-sender",
		},
	)
}
