package deposit

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence/memory"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc/rpctest"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/testutil"
	"github.com/kaspa-bridge/deposit-sender/pkg/transaction"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// endToEnd runs the real wallet against an in-memory store and node
type endToEnd struct {
	store  *memory.MemoryPersistence
	node   *rpctest.FakeNode
	out    *bytes.Buffer
	runner *Runner
	params SessionParams
}

func newEndToEnd(t *testing.T, accounts int) *endToEnd {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.NewMemoryPersistence()
	s := secret.FromString(testSecret)

	node := rpctest.NewFakeNode("mainnet")
	for i, desc := range testutil.CreateTestWallet(t, store, config.Mainnet, s, accounts) {
		testutil.Fund(t, node, desc.ReceiveAddress, 10_000_000_000, byte(i+1))
	}

	est := NewEstablisher(func(context.Context, string) (persistence.IWalletStore, error) {
		return store, nil
	}, logger)
	est.ResolveLocation = func(string) (string, error) { return "memory", nil }

	out := &bytes.Buffer{}
	return &endToEnd{
		store: store,
		node:  node,
		out:   out,
		runner: &Runner{
			Establisher: est,
			Builder:     NewBuilder(logger),
			Out:         out,
			Logger:      logger,
		},
		params: SessionParams{
			Network:    config.Mainnet,
			RpcURL:     "wss://node:17110",
			Secret:     s,
			NodeClient: node,
		},
	}
}

func TestRunner_DepositWithPayload(t *testing.T) {
	e := newEndToEnd(t, 1)
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "4000000000", "03000000")
	require.NoError(t, err)

	id, err := e.runner.Run(context.Background(), e.params, intent)
	require.NoError(t, err)

	tx := e.node.LastSubmitted()
	require.NotNil(t, tx)
	assert.Equal(t, transaction.ID(tx), id)
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, []byte(tx.Payload))
	assert.Equal(t, uint64(4_000_000_000), tx.Outputs[0].Value)

	assert.Equal(t, id.String()+"\n", e.out.String())
	assert.Equal(t, 1, strings.Count(e.out.String(), "\n"))
	assert.Len(t, strings.TrimSpace(e.out.String()), 64)

	// scoped teardown ran
	assert.False(t, e.node.IsConnected())
	assert.True(t, e.store.IsClosed())
}

func TestRunner_EmptyPayload(t *testing.T) {
	e := newEndToEnd(t, 1)
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "4000000000", "")
	require.NoError(t, err)

	_, err = e.runner.Run(context.Background(), e.params, intent)
	require.NoError(t, err)
	assert.Nil(t, e.node.LastSubmitted().Payload)
}

func TestRunner_UsesFirstAccount(t *testing.T) {
	e := newEndToEnd(t, 2)
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "1000000000", "")
	require.NoError(t, err)

	_, err = e.runner.Run(context.Background(), e.params, intent)
	require.NoError(t, err)

	// only the first account's utxo is spent
	tx := e.node.LastSubmitted()
	require.Len(t, tx.Inputs, 1)
	var first types.TransactionId
	first[0] = 1
	assert.Equal(t, first, tx.Inputs[0].PreviousOutpoint.TransactionId)
}

func TestRunner_EmptyWallet(t *testing.T) {
	e := newEndToEnd(t, 0)
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "1", "")
	require.NoError(t, err)

	_, err = e.runner.Run(context.Background(), e.params, intent)
	require.ErrorIs(t, err, ErrEmptyWallet)
	assert.Empty(t, e.out.String())
	assert.Nil(t, e.node.LastSubmitted())
	assert.True(t, e.store.IsClosed())
	assert.False(t, e.node.IsConnected())
}

func TestRunner_NotConnectedAfterConnect(t *testing.T) {
	e := newEndToEnd(t, 1)
	e.node.IgnoreConnect = true
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "1", "")
	require.NoError(t, err)

	_, err = e.runner.Run(context.Background(), e.params, intent)
	require.ErrorIs(t, err, ErrConnection)
	assert.Empty(t, e.out.String())
	assert.True(t, e.store.IsClosed())
}

func TestRunner_WrongSecret(t *testing.T) {
	e := newEndToEnd(t, 1)
	e.params.Secret = secret.FromString("not-the-secret")
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "1", "")
	require.NoError(t, err)

	_, err = e.runner.Run(context.Background(), e.params, intent)
	require.ErrorIs(t, err, ErrAuthentication)
	require.ErrorIs(t, err, keychain.ErrInvalidSecret)
	assert.NotContains(t, err.Error(), "not-the-secret")
}

func TestRunner_MissingIdentifier(t *testing.T) {
	e := newEndToEnd(t, 1)
	zero := types.TransactionId{}
	e.node.SubmitId = &zero
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "1000000000", "")
	require.NoError(t, err)

	_, err = e.runner.Run(context.Background(), e.params, intent)
	require.ErrorIs(t, err, ErrMissingIdentifier)
	assert.Contains(t, err.Error(), "may have been broadcast")
	assert.NotNil(t, e.node.LastSubmitted())
	assert.Empty(t, e.out.String())
}

func TestRunner_InsufficientFunds(t *testing.T) {
	e := newEndToEnd(t, 1)
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "50000000000", "")
	require.NoError(t, err)

	_, err = e.runner.Run(context.Background(), e.params, intent)
	require.ErrorIs(t, err, ErrSubmission)
	require.ErrorIs(t, err, transaction.ErrInsufficientFunds)
}

func TestRunner_CancelledDuringSubmit(t *testing.T) {
	e := newEndToEnd(t, 1)
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "4000000000", "03000000")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.node.SubmitBlock = make(chan struct{})
	e.node.OnSubmit = cancel

	_, err = e.runner.Run(ctx, e.params, intent)
	require.ErrorIs(t, err, ErrSubmission)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindSubmission, KindOf(err))

	assert.Empty(t, e.out.String())
	assert.Empty(t, e.node.Submitted)
	assert.False(t, e.node.IsConnected())
	assert.True(t, e.store.IsClosed())
}
