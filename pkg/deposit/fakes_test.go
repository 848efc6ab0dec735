package deposit

import (
	"context"
	"errors"
	"sync"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/keystore"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence/memory"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/wallet"
)

type sendCall struct {
	destination wallet.PaymentOutput
	fees        wallet.Fees
	payload     []byte
}

type fakeAccount struct {
	addr    *address.Address
	summary *wallet.GeneratorSummary
	err     error
	sends   []sendCall
}

func (a *fakeAccount) ReceiveAddress() *address.Address { return a.addr }

func (a *fakeAccount) Send(_ context.Context, destination wallet.PaymentOutput, fees wallet.Fees, payload []byte, _ secret.Secret) (*wallet.GeneratorSummary, error) {
	a.sends = append(a.sends, sendCall{destination: destination, fees: fees, payload: payload})
	return a.summary, a.err
}

// fakeWallet records the order of calls made by the establisher
type fakeWallet struct {
	mu    sync.Mutex
	calls []string

	startErr, connectErr, openErr   error
	enumErr, selectErr, activateErr error
	accountErr                      error
	ignoreConnect                   bool
	connected                       bool
	accounts                        []*keystore.AccountDescriptor
	account                         *fakeAccount
	selected                        *wallet.AccountId
	activated                       []wallet.AccountId
	openedWith                      string
}

func (w *fakeWallet) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}

func (w *fakeWallet) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *fakeWallet) Start(context.Context) error {
	w.record("start")
	return w.startErr
}

func (w *fakeWallet) Stop() error {
	w.record("stop")
	return nil
}

func (w *fakeWallet) Connect(context.Context, string) error {
	w.record("connect")
	if w.connectErr != nil {
		return w.connectErr
	}
	w.connected = !w.ignoreConnect
	return nil
}

func (w *fakeWallet) Disconnect() error {
	w.record("disconnect")
	w.connected = false
	return nil
}

func (w *fakeWallet) IsConnected() bool { return w.connected }

func (w *fakeWallet) Open(s secret.Secret) error {
	w.record("open")
	w.openedWith = string(s.Bytes())
	return w.openErr
}

func (w *fakeWallet) Close() error {
	w.record("close")
	return nil
}

func (w *fakeWallet) AccountsEnumerate(context.Context) ([]*keystore.AccountDescriptor, error) {
	w.record("enumerate")
	return w.accounts, w.enumErr
}

func (w *fakeWallet) AccountsSelect(_ context.Context, id *wallet.AccountId) error {
	w.record("select")
	w.selected = id
	return w.selectErr
}

func (w *fakeWallet) AccountsActivate(_ context.Context, ids []wallet.AccountId) error {
	w.record("activate")
	w.activated = ids
	return w.activateErr
}

func (w *fakeWallet) Account() (Account, error) {
	w.record("account")
	if w.accountErr != nil {
		return nil, w.accountErr
	}
	return w.account, nil
}

func testReceiveAddress() *address.Address {
	a, err := address.New("kaspa", address.VersionPubKey, make([]byte, 32))
	if err != nil {
		panic(err)
	}
	return a
}

func newFakeWallet() *fakeWallet {
	addr := testReceiveAddress()
	return &fakeWallet{
		accounts: []*keystore.AccountDescriptor{
			{AccountId: "first", Index: 0, ReceiveAddress: addr},
			{AccountId: "second", Index: 1, ReceiveAddress: addr},
		},
		account: &fakeAccount{addr: addr},
	}
}

// harness wires an Establisher to a fake wallet and a memory store
type harness struct {
	wallet     *fakeWallet
	store      *memory.MemoryPersistence
	storeOpens int
	locations  []string
	openErr    error
	newErr     error
	est        *Establisher
}

func newHarness(w *fakeWallet) *harness {
	h := &harness{wallet: w, store: memory.NewMemoryPersistence()}
	h.est = &Establisher{
		ResolveLocation: func(override string) (string, error) {
			if override == "bad" {
				return "", errors.New("storage location bad is not a directory")
			}
			return "/wallets/" + override, nil
		},
		OpenStore: func(_ context.Context, location string) (persistence.IWalletStore, error) {
			h.storeOpens++
			h.locations = append(h.locations, location)
			if h.openErr != nil {
				return nil, h.openErr
			}
			return h.store, nil
		},
		NewWallet: func(*wallet.Config) (Wallet, error) {
			if h.newErr != nil {
				return nil, h.newErr
			}
			return h.wallet, nil
		},
	}
	return h
}
