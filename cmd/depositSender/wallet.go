package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/deposit"
	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
	"github.com/kaspa-bridge/deposit-sender/pkg/keystore"
	"github.com/kaspa-bridge/deposit-sender/pkg/logger"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/transactionSigner"
	"github.com/kaspa-bridge/deposit-sender/pkg/wallet"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// kdfParams seals keychains written by "wallet create"
var kdfParams = keychain.DefaultKDFParams

func errMissingFlag(name string) error {
	return fmt.Errorf("--%s is required", name)
}

func runWalletCreate(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool(flagVerbose)})
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	defer cfg.WalletSecret.Wipe()
	if err := cfg.Store.Validate(); err != nil {
		return err
	}
	network, err := deposit.ParseNetwork(cfg.Network)
	if err != nil {
		return err
	}

	// the key is checked before anything is written to the store
	var importKey []byte
	if pk := c.String(flagPrivateKey); pk != "" {
		if importKey, err = hex.DecodeString(strings.TrimPrefix(pk, "0x")); err != nil {
			return errors.New("private key must be hex encoded")
		}
		defer clear(importKey)
		signer, err := transactionSigner.NewPrivateKeySigner(importKey, network, l)
		if err != nil {
			return errors.Wrap(err, "invalid private key")
		}
		signer.Close()
	}

	walletSecret, err := resolveSecret(c.Context, cfg, l)
	if err != nil {
		return errors.Wrap(err, "failed to load wallet secret")
	}
	if walletSecret.IsEmpty() {
		if walletSecret, err = secret.Prompt("Wallet secret"); err != nil {
			return err
		}
	}
	defer walletSecret.Wipe()

	store, err := openStore(c.Context, cfg, true, l)
	if err != nil {
		return errors.Wrap(err, "failed to open wallet store")
	}
	defer func() { _ = store.Close() }()

	creator := &wallet.Creator{
		Store:     store,
		Network:   network,
		KDFParams: kdfParams,
		Logger:    l,
	}
	if err := creator.CreateWallet(c.String(flagTitle), walletSecret); err != nil {
		return err
	}

	var account *keystore.AccountDescriptor
	if importKey != nil {
		if account, err = creator.ImportAccount("default", importKey, walletSecret); err != nil {
			return err
		}
	} else {
		if account, err = creator.GenerateAccount("default", walletSecret); err != nil {
			return err
		}
	}

	l.Sugar().Infow("Wallet ready", "accountId", account.AccountId, "network", network.String())
	_, err = fmt.Fprintln(c.App.Writer, account.ReceiveAddress.String())
	return err
}

func runWalletAccounts(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool(flagVerbose)})
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	cfg.WalletSecret.Wipe()
	if err := cfg.Store.Validate(); err != nil {
		return err
	}
	network, err := deposit.ParseNetwork(cfg.Network)
	if err != nil {
		return err
	}

	store, err := openStore(c.Context, cfg, false, l)
	if err != nil {
		return errors.Wrap(err, "failed to open wallet store")
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListAccounts()
	if err != nil {
		return errors.Wrap(err, "failed to list accounts")
	}
	selected, err := store.GetSelectedAccount()
	if err != nil {
		return errors.Wrap(err, "failed to read selected account")
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, r := range records {
		pub, err := hex.DecodeString(r.PublicKey)
		if err != nil {
			return errors.Wrapf(err, "account %s has a malformed public key", r.Id)
		}
		addr, err := address.NewPubKey(network, pub)
		if err != nil {
			return errors.Wrapf(err, "account %s", r.Id)
		}
		marker := ""
		if r.Id == selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", marker, r.Index, r.Id, r.Name, addr.String())
	}
	return w.Flush()
}
