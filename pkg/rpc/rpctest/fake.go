// Package rpctest provides an in-memory rpc.INodeClient for tests.
package rpctest

import (
	"context"
	"sync"

	"github.com/kaspa-bridge/deposit-sender/pkg/rpc"
	"github.com/kaspa-bridge/deposit-sender/pkg/transaction"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
)

type FakeNode struct {
	mu sync.Mutex

	Info        rpc.ServerInfo
	Utxos       map[string][]types.UtxoEntryReference
	FeeEstimate *rpc.FeeEstimate

	ConnectErr     error
	FeeEstimateErr error
	SubmitErr      error
	// IgnoreConnect makes Connect succeed without becoming connected
	IgnoreConnect bool
	// SubmitId overrides the id returned by SubmitTransaction; the default
	// is the id computed from the transaction.
	SubmitId *types.TransactionId
	// SubmitBlock holds SubmitTransaction until it is closed or the call's
	// context ends. OnSubmit runs when a submission starts waiting.
	SubmitBlock chan struct{}
	OnSubmit    func()

	connected     bool
	url           string
	Submitted     []*types.Transaction
	ConnectCalls  int
	Disconnects   int
	notifications chan rpc.Notification
}

var _ rpc.INodeClient = (*FakeNode)(nil)

// NewFakeNode returns a synced node serving networkId
func NewFakeNode(networkId string) *FakeNode {
	return &FakeNode{
		Info: rpc.ServerInfo{
			NetworkId:     networkId,
			IsSynced:      true,
			HasUtxoIndex:  true,
			ServerVersion: "fake",
		},
		Utxos:         make(map[string][]types.UtxoEntryReference),
		FeeEstimate:   &rpc.FeeEstimate{PriorityBucket: rpc.FeerateBucket{Feerate: 1}},
		notifications: make(chan rpc.Notification, 16),
	}
}

func (f *FakeNode) AddUtxo(addr string, u types.UtxoEntryReference) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Address = addr
	f.Utxos[addr] = append(f.Utxos[addr], u)
}

// Push delivers a notification to the client's consumer
func (f *FakeNode) Push(n rpc.Notification) {
	f.notifications <- n
}

func (f *FakeNode) Connect(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	if f.connected {
		return rpc.ErrAlreadyConnected
	}
	f.url = url
	f.connected = !f.IgnoreConnect
	return nil
}

func (f *FakeNode) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		f.Disconnects++
	}
	f.connected = false
	return nil
}

func (f *FakeNode) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeNode) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *FakeNode) Notifications() <-chan rpc.Notification {
	return f.notifications
}

func (f *FakeNode) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !f.connected {
		return rpc.ErrNotConnected
	}
	return nil
}

func (f *FakeNode) GetServerInfo(ctx context.Context) (*rpc.ServerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	info := f.Info
	return &info, nil
}

func (f *FakeNode) GetUtxosByAddresses(ctx context.Context, addresses []string) ([]types.UtxoEntryReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	var out []types.UtxoEntryReference
	for _, a := range addresses {
		out = append(out, f.Utxos[a]...)
	}
	return out, nil
}

func (f *FakeNode) GetFeeEstimate(ctx context.Context) (*rpc.FeeEstimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	if f.FeeEstimateErr != nil {
		return nil, f.FeeEstimateErr
	}
	est := *f.FeeEstimate
	return &est, nil
}

func (f *FakeNode) SubmitTransaction(ctx context.Context, tx *types.Transaction, _ bool) (types.TransactionId, error) {
	f.mu.Lock()
	if err := f.check(ctx); err != nil {
		f.mu.Unlock()
		return types.TransactionId{}, err
	}
	block, hook := f.SubmitBlock, f.OnSubmit
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if block != nil {
		select {
		case <-ctx.Done():
			return types.TransactionId{}, ctx.Err()
		case <-block:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return types.TransactionId{}, f.SubmitErr
	}
	f.Submitted = append(f.Submitted, tx)
	if f.SubmitId != nil {
		return *f.SubmitId, nil
	}
	return transaction.ID(tx), nil
}

// LastSubmitted returns the most recent submitted transaction, or nil
func (f *FakeNode) LastSubmitted() *types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Submitted) == 0 {
		return nil
	}
	return f.Submitted[len(f.Submitted)-1]
}
