package wallet

import (
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
	"github.com/kaspa-bridge/deposit-sender/pkg/keystore"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/transactionSigner"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Creator initializes wallets in a store and adds keypair accounts to them
type Creator struct {
	Store     persistence.IWalletStore
	Network   config.NetworkId
	KDFParams keychain.KDFParams
	Logger    *zap.Logger
}

func (c *Creator) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// CreateWallet writes wallet metadata and an empty keychain sealed with
// walletSecret. It fails with ErrWalletExists if the store already holds a
// wallet.
func (c *Creator) CreateWallet(title string, walletSecret secret.Secret) error {
	if walletSecret.IsEmpty() {
		return errors.New("wallet secret cannot be empty")
	}
	existing, err := c.Store.LoadWalletMetadata()
	if err != nil {
		return errors.Wrap(err, "failed to check for an existing wallet")
	}
	if existing != nil {
		return ErrWalletExists
	}

	params := c.KDFParams
	if params == (keychain.KDFParams{}) {
		params = keychain.DefaultKDFParams
	}
	enc, err := keychain.Seal(&keychain.Keychain{}, walletSecret, params)
	if err != nil {
		return errors.Wrap(err, "failed to seal keychain")
	}
	if err := c.Store.SaveKeychain(enc); err != nil {
		return errors.Wrap(err, "failed to save keychain")
	}
	meta := &persistence.WalletMetadata{Title: title, CreatedAt: time.Now().Unix()}
	if err := c.Store.SaveWalletMetadata(meta); err != nil {
		return errors.Wrap(err, "failed to save wallet metadata")
	}

	c.logger().Sugar().Infow("Created wallet", "title", title)
	return nil
}

// GenerateAccount adds an account with a freshly generated key
func (c *Creator) GenerateAccount(name string, walletSecret secret.Secret) (*keystore.AccountDescriptor, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate private key")
	}
	defer priv.Zero()

	key := priv.Serialize()
	defer clear(key)
	return c.ImportAccount(name, key, walletSecret)
}

// ImportAccount adds an account controlled by privateKey. The keychain is
// re-sealed with its existing KDF parameters.
func (c *Creator) ImportAccount(name string, privateKey []byte, walletSecret secret.Secret) (*keystore.AccountDescriptor, error) {
	meta, err := c.Store.LoadWalletMetadata()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load wallet metadata")
	}
	if meta == nil {
		return nil, ErrWalletNotInitialized
	}
	enc, err := c.Store.LoadKeychain()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load keychain")
	}
	if enc == nil {
		return nil, errors.Wrap(ErrWalletNotInitialized, "keychain missing")
	}
	kc, err := enc.Open(walletSecret)
	if err != nil {
		return nil, err
	}
	defer kc.Wipe()

	signer, err := transactionSigner.NewPrivateKeySigner(privateKey, c.Network, c.logger())
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	defer signer.Close()

	existing, err := c.Store.ListAccounts()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}
	pubHex := hex.EncodeToString(signer.PublicKey())
	for _, a := range existing {
		if a.PublicKey == pubHex {
			return nil, errors.Errorf("key is already imported as account %s", a.Id)
		}
	}

	record := &persistence.AccountRecord{
		Id:        uuid.New().String(),
		Name:      name,
		Index:     meta.NextAccountIndex,
		Kind:      persistence.AccountKindKeypair,
		PublicKey: pubHex,
		CreatedAt: time.Now().Unix(),
	}

	kc.Put(record.Id, privateKey)
	sealed, err := keychain.Seal(kc, walletSecret, enc.KDFParams)
	if err != nil {
		return nil, errors.Wrap(err, "failed to seal keychain")
	}
	if err := c.Store.SaveKeychain(sealed); err != nil {
		return nil, errors.Wrap(err, "failed to save keychain")
	}
	if err := c.Store.SaveAccount(record); err != nil {
		return nil, errors.Wrapf(err, "failed to save account %s", record.Id)
	}
	meta.NextAccountIndex++
	if err := c.Store.SaveWalletMetadata(meta); err != nil {
		return nil, errors.Wrap(err, "failed to save wallet metadata")
	}

	c.logger().Sugar().Infow("Added account",
		"accountId", record.Id,
		"index", record.Index,
		"address", signer.Address().String(),
	)
	return &keystore.AccountDescriptor{
		AccountId:      record.Id,
		Name:           record.Name,
		Index:          record.Index,
		PublicKey:      signer.PublicKey(),
		ReceiveAddress: signer.Address(),
	}, nil
}
