package deposit

import (
	"context"
	"errors"
	"testing"

	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/transaction"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"github.com/kaspa-bridge/deposit-sender/pkg/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func establishedSession(t *testing.T, w *fakeWallet) *Session {
	t.Helper()
	session, err := newHarness(w).est.Establish(context.Background(), params())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func testIntent(t *testing.T, payload string) *Intent {
	t.Helper()
	intent, err := ParseIntent(config.Mainnet, escrowMainnet, "4000000000", payload)
	require.NoError(t, err)
	return intent
}

func TestBuilder_Deposit_AttachesPayload(t *testing.T) {
	w := newFakeWallet()
	var id types.TransactionId
	id[0] = 7
	w.account.summary = &wallet.GeneratorSummary{TransactionId: &id}
	session := establishedSession(t, w)

	summary, err := NewBuilder(zaptest.NewLogger(t)).Deposit(context.Background(), session, secret.FromString(testSecret), testIntent(t, "03000000"))
	require.NoError(t, err)
	assert.Same(t, w.account.summary, summary)

	require.Len(t, w.account.sends, 1)
	call := w.account.sends[0]
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, call.payload)
	assert.Equal(t, uint64(4_000_000_000), call.destination.Amount)
	assert.Equal(t, escrowMainnet, call.destination.Address.String())
	assert.Equal(t, transaction.FeeSourceNone, call.fees.Source)
	assert.Equal(t, uint64(0), call.fees.Amount)
}

func TestBuilder_Deposit_EmptyPayloadOmitted(t *testing.T) {
	w := newFakeWallet()
	w.account.summary = &wallet.GeneratorSummary{}
	session := establishedSession(t, w)

	_, err := NewBuilder(nil).Deposit(context.Background(), session, secret.FromString(testSecret), testIntent(t, ""))
	require.NoError(t, err)
	require.Len(t, w.account.sends, 1)
	assert.Nil(t, w.account.sends[0].payload)
}

func TestBuilder_Deposit_NoActiveAccount(t *testing.T) {
	w := newFakeWallet()
	w.accountErr = wallet.ErrNoActiveAccount
	session := establishedSession(t, w)

	_, err := NewBuilder(nil).Deposit(context.Background(), session, secret.FromString(testSecret), testIntent(t, "03000000"))
	require.ErrorIs(t, err, ErrNoActiveAccount)
	require.ErrorIs(t, err, wallet.ErrNoActiveAccount)
	assert.Empty(t, w.account.sends)

	_, err = NewBuilder(nil).Deposit(context.Background(), nil, secret.FromString(testSecret), testIntent(t, "03000000"))
	require.ErrorIs(t, err, ErrNoActiveAccount)
}

func TestBuilder_Deposit_InvalidIntent(t *testing.T) {
	w := newFakeWallet()
	session := establishedSession(t, w)
	builder := NewBuilder(nil)

	_, err := builder.Deposit(context.Background(), session, secret.FromString(testSecret), nil)
	require.ErrorIs(t, err, ErrInput)
	assert.Equal(t, "validate deposit intent: no deposit intent", err.Error())

	_, err = builder.Deposit(context.Background(), session, secret.FromString(testSecret), &Intent{Amount: 1})
	require.ErrorIs(t, err, ErrInput)
	assert.Empty(t, w.account.sends)
}

func TestBuilder_Deposit_SubmissionError(t *testing.T) {
	w := newFakeWallet()
	cause := errors.New("insufficient funds")
	w.account.err = cause
	session := establishedSession(t, w)

	_, err := NewBuilder(nil).Deposit(context.Background(), session, secret.FromString(testSecret), testIntent(t, "03000000"))
	require.ErrorIs(t, err, ErrSubmission)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "send transaction: insufficient funds", err.Error())
	assert.Len(t, w.account.sends, 1)
}

func TestExtractTransactionID(t *testing.T) {
	var id types.TransactionId
	id[31] = 0xff
	got, err := ExtractTransactionID(&wallet.GeneratorSummary{TransactionId: &id}, nil)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestExtractTransactionID_Missing(t *testing.T) {
	for name, summary := range map[string]*wallet.GeneratorSummary{
		"no id":      {AggregatedFees: 2051},
		"no summary": nil,
	} {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			_, err := ExtractTransactionID(summary, zap.New(core))
			require.ErrorIs(t, err, ErrMissingIdentifier)

			require.Equal(t, 1, logs.Len())
			assert.Contains(t, logs.All()[0].Message, "may have been broadcast")
		})
	}
}
