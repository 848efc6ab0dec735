package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsutil "github.com/kaspa-bridge/deposit-sender/internal/aws"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/deposit"
	"github.com/kaspa-bridge/deposit-sender/pkg/logger"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// newNodeClient overrides the wallet's websocket client when set
var newNodeClient func(l *zap.Logger) rpc.INodeClient

func runDeposit(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool(flagVerbose)})
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := parseConfig(c)
	if err != nil {
		return &deposit.Error{Kind: deposit.KindConfiguration, Op: "load configuration", Err: err}
	}
	defer cfg.WalletSecret.Wipe()

	if !c.IsSet(flagAmount) {
		return &deposit.Error{Kind: deposit.KindInput, Op: "parse amount", Err: errMissingFlag(flagAmount)}
	}
	if !c.IsSet(flagPayload) {
		return &deposit.Error{Kind: deposit.KindInput, Op: "decode payload", Err: errMissingFlag(flagPayload)}
	}

	network, err := deposit.ParseNetwork(cfg.Network)
	if err != nil {
		return err
	}
	intent, err := deposit.ParseIntent(network, cfg.Escrow, cfg.Amount, cfg.Payload)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return &deposit.Error{Kind: deposit.KindConfiguration, Op: "validate configuration", Err: err}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	walletSecret, err := resolveSecret(ctx, cfg, l)
	if err != nil {
		return &deposit.Error{Kind: deposit.KindConfiguration, Op: "load wallet secret", Err: err}
	}
	defer walletSecret.Wipe()

	resolve, open := storeFactory(cfg, false, l)
	establisher := deposit.NewEstablisher(open, l)
	establisher.ResolveLocation = resolve

	params := deposit.SessionParams{
		Network:         network,
		RpcURL:          cfg.RpcUrl,
		StorageLocation: cfg.WalletDir,
		Secret:          walletSecret,
	}
	if newNodeClient != nil {
		params.NodeClient = newNodeClient(l)
	}

	runner := &deposit.Runner{
		Establisher: establisher,
		Builder:     deposit.NewBuilder(l),
		Out:         c.App.Writer,
		Logger:      l,
	}
	_, err = runner.Run(ctx, params, intent)
	return err
}

// resolveSecret returns a copy of the wallet secret, decrypting it with KMS
// when a ciphertext was supplied.
func resolveSecret(ctx context.Context, cfg *config.DepositConfig, l *zap.Logger) (secret.Secret, error) {
	if cfg.WalletSecretKMS == "" {
		return cfg.WalletSecret.Clone(), nil
	}
	decrypter, identity, err := newAWSClients(ctx, cfg.AWSRegion)
	if err != nil {
		return secret.Secret{}, err
	}

	// identity lookup failures are not fatal
	caller, err := awsutil.GetCallerIdentity(ctx, identity)
	if err != nil {
		l.Sugar().Warnw("Could not resolve AWS caller identity", "error", err)
	} else {
		l.Sugar().Debugw("Decrypting wallet secret with KMS",
			"principal", aws.ToString(caller.Arn),
			"account", aws.ToString(caller.Account),
		)
	}
	return secret.FromKMS(ctx, decrypter, cfg.WalletSecretKMS)
}

// newAWSClients builds the KMS and STS clients for the configured region
var newAWSClients = func(ctx context.Context, region string) (secret.KMSDecrypter, awsutil.IdentityClient, error) {
	awsCfg, err := awsutil.LoadAWSConfig(ctx, region)
	if err != nil {
		return nil, nil, err
	}
	return awsutil.NewKMSClient(awsCfg), awsutil.NewSTSClient(awsCfg), nil
}
