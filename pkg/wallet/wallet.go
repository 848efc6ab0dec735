package wallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"
	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/keystore"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/kaspa-bridge/deposit-sender/pkg/resolver"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrAlreadyStarted       = errors.New("wallet services already started")
	ErrWalletNotInitialized = errors.New("wallet store holds no wallet")
	ErrWalletExists         = errors.New("wallet already exists")
	ErrWalletNotOpen        = errors.New("wallet is not open")
	ErrNetworkMismatch      = errors.New("node network does not match the wallet network")
	ErrNodeNotSynced        = errors.New("node is not synced")
	ErrNoNodeUrl            = errors.New("no node url given and no resolver configured")
	ErrNoActiveAccount      = errors.New("no active account")
)

// AccountId identifies an account within a wallet
type AccountId string

type Config struct {
	Store    persistence.IWalletStore
	Resolver resolver.IResolver
	Network  config.NetworkId

	// Client defaults to a websocket rpc.Client
	Client rpc.INodeClient
	Logger *zap.Logger
}

// Wallet binds a wallet store to a node connection for one network. The
// zero value is not usable; construct with NewWallet.
type Wallet struct {
	store    persistence.IWalletStore
	resolver resolver.IResolver
	network  config.NetworkId
	client   rpc.INodeClient
	logger   *zap.Logger

	keys *keystore.KeyStore
	feed event.Feed

	mu      sync.Mutex
	open    bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	daaScore atomic.Uint64
}

func NewWallet(cfg *Config) (*Wallet, error) {
	if cfg == nil {
		return nil, fmt.Errorf("wallet config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("wallet store is required")
	}
	if cfg.Network.IsZero() {
		return nil, fmt.Errorf("network is required")
	}
	if _, ok := config.NetworkTypeToAddressPrefix[cfg.Network.Type]; !ok {
		return nil, fmt.Errorf("unsupported network %s", cfg.Network)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.Client
	if client == nil {
		client = rpc.NewClient(rpc.DefaultClientConfig(), logger)
	}
	return &Wallet{
		store:    cfg.Store,
		resolver: cfg.Resolver,
		network:  cfg.Network,
		client:   client,
		logger:   logger,
		keys:     keystore.NewKeyStore(),
	}, nil
}

func (w *Wallet) Network() config.NetworkId {
	return w.network
}

// CurrentDaaScore is the last virtual DAA score reported by the node
func (w *Wallet) CurrentDaaScore() uint64 {
	return w.daaScore.Load()
}

// Start launches the background event loop.
func (w *Wallet) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.started = true

	w.wg.Add(1)
	go w.eventLoop(loopCtx, w.client.Notifications())

	w.logger.Sugar().Debugw("Wallet services started", "network", w.network.String())
	return nil
}

// Stop ends the background event loop and waits for it. Safe to call when
// not started.
func (w *Wallet) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	w.logger.Sugar().Debugw("Wallet services stopped")
	return nil
}

// Connect dials the node at url, or at a resolver-chosen url when url is
// empty, and verifies it serves the wallet's network and is synced.
func (w *Wallet) Connect(ctx context.Context, url string) error {
	if url == "" {
		if w.resolver == nil {
			return ErrNoNodeUrl
		}
		resolved, err := w.resolver.Resolve(ctx, w.network)
		if err != nil {
			return errors.Wrap(err, "failed to resolve node url")
		}
		url = resolved
	}

	if err := w.client.Connect(ctx, url); err != nil {
		return err
	}

	info, err := w.client.GetServerInfo(ctx)
	if err != nil {
		_ = w.client.Disconnect()
		return errors.Wrap(err, "failed to query node info")
	}
	if info.NetworkId != w.network.String() {
		_ = w.client.Disconnect()
		return errors.Wrapf(ErrNetworkMismatch, "node serves %q, wallet expects %q", info.NetworkId, w.network.String())
	}
	if !info.IsSynced {
		_ = w.client.Disconnect()
		return errors.Wrapf(ErrNodeNotSynced, "node at %s", url)
	}
	if !info.HasUtxoIndex {
		w.logger.Sugar().Warnw("Node has no UTXO index, balance queries will fail", "url", url)
	}
	w.daaScore.Store(info.VirtualDaaScore)

	w.logger.Sugar().Infow("Connected to node",
		"url", url,
		"network", info.NetworkId,
		"serverVersion", info.ServerVersion,
		"virtualDaaScore", info.VirtualDaaScore,
	)
	w.emit(Event{Kind: EventConnect, Url: url, NetworkId: info.NetworkId})
	return nil
}

func (w *Wallet) Disconnect() error {
	if !w.client.IsConnected() {
		return nil
	}
	url := w.client.URL()
	if err := w.client.Disconnect(); err != nil {
		return err
	}
	w.emit(Event{Kind: EventDisconnect, Url: url})
	return nil
}

func (w *Wallet) IsConnected() bool {
	return w.client.IsConnected()
}

// Open unlocks the wallet with the secret and loads its accounts. The
// decrypted keychain is not retained.
func (w *Wallet) Open(walletSecret secret.Secret) error {
	meta, err := w.store.LoadWalletMetadata()
	if err != nil {
		return errors.Wrap(err, "failed to load wallet metadata")
	}
	if meta == nil {
		return ErrWalletNotInitialized
	}
	enc, err := w.store.LoadKeychain()
	if err != nil {
		return errors.Wrap(err, "failed to load keychain")
	}
	if enc == nil {
		return errors.Wrap(ErrWalletNotInitialized, "keychain missing")
	}

	kc, err := enc.Open(walletSecret)
	if err != nil {
		return err
	}
	defer kc.Wipe()

	records, err := w.store.ListAccounts()
	if err != nil {
		return errors.Wrap(err, "failed to load accounts")
	}

	keys := keystore.NewKeyStore()
	for _, rec := range records {
		if _, ok := kc.Key(rec.Id); !ok {
			return errors.Errorf("account %s has no key in the keychain", rec.Id)
		}
		desc, err := w.describe(rec)
		if err != nil {
			return err
		}
		if err := keys.AddAccount(desc); err != nil {
			return err
		}
	}

	if selected, err := w.store.GetSelectedAccount(); err != nil {
		w.logger.Sugar().Warnw("Failed to restore selected account", "error", err)
	} else if selected != "" {
		if err := keys.Select(selected); err != nil {
			w.logger.Sugar().Debugw("Stored selection no longer exists", "accountId", selected)
		}
	}

	w.mu.Lock()
	w.keys = keys
	w.open = true
	w.mu.Unlock()

	w.logger.Sugar().Infow("Wallet opened", "title", meta.Title, "accounts", len(records))
	w.emit(Event{Kind: EventOpen})
	return nil
}

func (w *Wallet) describe(rec *persistence.AccountRecord) (*keystore.AccountDescriptor, error) {
	pub, err := hex.DecodeString(rec.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "account %s has an invalid public key", rec.Id)
	}
	addr, err := address.NewPubKey(w.network, pub)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to derive address for account %s", rec.Id)
	}
	return &keystore.AccountDescriptor{
		AccountId:      rec.Id,
		Name:           rec.Name,
		Index:          rec.Index,
		PublicKey:      pub,
		ReceiveAddress: addr,
	}, nil
}

// Close forgets the unlocked accounts. It does not close the store.
func (w *Wallet) Close() error {
	w.mu.Lock()
	wasOpen := w.open
	w.open = false
	w.keys.Reset()
	w.mu.Unlock()

	if wasOpen {
		w.emit(Event{Kind: EventClose})
	}
	return nil
}

func (w *Wallet) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

func (w *Wallet) keyStore() (*keystore.KeyStore, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return nil, ErrWalletNotOpen
	}
	return w.keys, nil
}

// AccountsEnumerate lists the wallet's accounts in creation order
func (w *Wallet) AccountsEnumerate(ctx context.Context) ([]*keystore.AccountDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := w.keyStore()
	if err != nil {
		return nil, err
	}
	return keys.Accounts(), nil
}

// AccountsSelect selects an account and persists the choice. A nil id
// clears the selection.
func (w *Wallet) AccountsSelect(ctx context.Context, id *AccountId) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys, err := w.keyStore()
	if err != nil {
		return err
	}
	var target string
	if id != nil {
		target = string(*id)
	}
	if err := keys.Select(target); err != nil {
		return err
	}
	if err := w.store.SetSelectedAccount(target); err != nil {
		return errors.Wrap(err, "failed to persist selected account")
	}
	w.emit(Event{Kind: EventAccountSelection, AccountIds: []AccountId{AccountId(target)}})
	return nil
}

// AccountsActivate activates the given accounts, or the selected account
// when ids is empty. Activation needs a node connection.
func (w *Wallet) AccountsActivate(ctx context.Context, ids []AccountId) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys, err := w.keyStore()
	if err != nil {
		return err
	}
	if !w.client.IsConnected() {
		return errors.Wrap(rpc.ErrNotConnected, "cannot activate accounts")
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	if err := keys.Activate(raw...); err != nil {
		return err
	}

	activated := ids
	if len(activated) == 0 {
		activated = []AccountId{AccountId(keys.Selected().AccountId)}
	}
	w.emit(Event{Kind: EventAccountActivation, AccountIds: activated})
	return nil
}

// Account returns the selected account once it is active
func (w *Wallet) Account() (*Account, error) {
	keys, err := w.keyStore()
	if err != nil {
		return nil, errors.Wrap(ErrNoActiveAccount, err.Error())
	}
	desc, err := keys.ActiveAccount()
	if err != nil {
		return nil, errors.Wrap(ErrNoActiveAccount, err.Error())
	}
	return &Account{wallet: w, descriptor: desc}, nil
}
