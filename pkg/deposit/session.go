package deposit

import (
	"context"
	"sync"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/keystore"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/kaspa-bridge/deposit-sender/pkg/resolver"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/wallet"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Account is the part of an active wallet account used to send a deposit
type Account interface {
	ReceiveAddress() *address.Address
	Send(ctx context.Context, destination wallet.PaymentOutput, fees wallet.Fees, payload []byte, walletSecret secret.Secret) (*wallet.GeneratorSummary, error)
}

// Wallet is the wallet session provider driven by the establisher
type Wallet interface {
	Start(ctx context.Context) error
	Stop() error
	Connect(ctx context.Context, url string) error
	Disconnect() error
	IsConnected() bool
	Open(walletSecret secret.Secret) error
	Close() error
	AccountsEnumerate(ctx context.Context) ([]*keystore.AccountDescriptor, error)
	AccountsSelect(ctx context.Context, id *wallet.AccountId) error
	AccountsActivate(ctx context.Context, ids []wallet.AccountId) error
	Account() (Account, error)
}

// LocationResolver turns the optional storage override into the location
// handed to the StoreOpener.
type LocationResolver func(override string) (string, error)

// StoreOpener opens the wallet store at an explicit location.
type StoreOpener func(ctx context.Context, location string) (persistence.IWalletStore, error)

// WalletConstructor builds a wallet session bound to a store and network.
type WalletConstructor func(cfg *wallet.Config) (Wallet, error)

type walletAdapter struct {
	*wallet.Wallet
}

func (w walletAdapter) Account() (Account, error) {
	a, err := w.Wallet.Account()
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewWalletSession is the default WalletConstructor
func NewWalletSession(cfg *wallet.Config) (Wallet, error) {
	w, err := wallet.NewWallet(cfg)
	if err != nil {
		return nil, err
	}
	return walletAdapter{w}, nil
}

type SessionParams struct {
	Network config.NetworkId
	RpcURL  string

	// StorageLocation overrides the default wallet location when set
	StorageLocation string
	Secret          secret.Secret

	// NodeClient defaults to a websocket client
	NodeClient rpc.INodeClient
}

// Establisher drives a wallet from an unopened store to a session with one
// selected and activated account.
type Establisher struct {
	ResolveLocation LocationResolver
	OpenStore       StoreOpener
	NewWallet       WalletConstructor
	Resolver        resolver.IResolver
	Logger          *zap.Logger
}

func NewEstablisher(openStore StoreOpener, logger *zap.Logger) *Establisher {
	return &Establisher{
		ResolveLocation: config.ResolveStorageDir,
		OpenStore:       openStore,
		NewWallet:       NewWalletSession,
		Logger:          logger,
	}
}

// Session is a connected, unlocked wallet with an active account. Close
// releases everything the establisher acquired.
type Session struct {
	wallet  Wallet
	account *keystore.AccountDescriptor
	logger  *zap.Logger

	teardown  []func() error
	closeOnce sync.Once
	closeErr  error
}

func (s *Session) Wallet() Wallet {
	return s.wallet
}

func (s *Session) AccountId() wallet.AccountId {
	return wallet.AccountId(s.account.AccountId)
}

func (s *Session) ReceiveAddress() *address.Address {
	return s.account.ReceiveAddress
}

func (s *Session) push(fn func() error) {
	s.teardown = append(s.teardown, fn)
}

// Close releases what the establisher acquired in reverse order of
// acquisition. Safe to call repeatedly.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		for i := len(s.teardown) - 1; i >= 0; i-- {
			s.closeErr = multierr.Append(s.closeErr, s.teardown[i]())
		}
		s.teardown = nil
		if s.closeErr != nil {
			s.logger.Sugar().Warnw("Session teardown incomplete", "error", s.closeErr)
		} else {
			s.logger.Sugar().Debugw("Session closed")
		}
	})
	return s.closeErr
}

// Establish runs the session state machine. On failure everything acquired
// so far is released before the typed error is returned.
func (e *Establisher) Establish(ctx context.Context, params SessionParams) (*Session, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	session := &Session{logger: logger}
	fail := func(err *Error) (*Session, error) {
		_ = session.Close()
		return nil, err
	}

	if _, ok := config.NetworkTypeToAddressPrefix[params.Network.Type]; !ok {
		return nil, newError(KindInput, "select network", errUnsupportedNetwork)
	}

	location, err := e.ResolveLocation(params.StorageLocation)
	if err != nil {
		return nil, newError(KindConfiguration, "resolve storage location", err)
	}

	store, err := e.OpenStore(ctx, location)
	if err != nil {
		return nil, newError(KindStore, "open wallet store", err)
	}
	session.push(store.Close)

	w, err := e.NewWallet(&wallet.Config{
		Store:    store,
		Resolver: e.Resolver,
		Network:  params.Network,
		Client:   params.NodeClient,
		Logger:   logger,
	})
	if err != nil {
		return fail(newError(KindInitialization, "create wallet", err))
	}
	session.wallet = w

	if err := w.Start(ctx); err != nil {
		return fail(newError(KindInitialization, "start wallet", err))
	}
	session.push(w.Stop)

	logger.Sugar().Infow("Connecting to node", "url", params.RpcURL, "network", params.Network.String())
	if err := w.Connect(ctx, params.RpcURL); err != nil {
		return fail(newError(KindConnection, "connect wallet", err))
	}
	session.push(w.Disconnect)
	if !w.IsConnected() {
		return fail(newError(KindConnection, "connect wallet", ErrReportedConnectedButNot))
	}

	if err := w.Open(params.Secret); err != nil {
		return fail(newError(KindAuthentication, "open wallet", err))
	}
	session.push(w.Close)

	accounts, err := w.AccountsEnumerate(ctx)
	if err != nil {
		return fail(newError(KindEnumeration, "enumerate accounts", err))
	}
	if len(accounts) == 0 {
		return fail(newError(KindEmptyWallet, "enumerate accounts", errNoAccounts))
	}
	account := accounts[0]
	accountId := wallet.AccountId(account.AccountId)

	if err := w.AccountsSelect(ctx, &accountId); err != nil {
		return fail(newError(KindSelection, "select wallet account", err))
	}
	if err := w.AccountsActivate(ctx, []wallet.AccountId{accountId}); err != nil {
		return fail(newError(KindActivation, "activate wallet account", err))
	}
	session.account = account

	receive := "<unknown>"
	if account.ReceiveAddress != nil {
		receive = account.ReceiveAddress.String()
	}
	logger.Sugar().Infow("Wallet ready", "receiveAddress", receive, "accountId", account.AccountId)
	return session, nil
}
