package testutil

import (
	"testing"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
	"github.com/kaspa-bridge/deposit-sender/pkg/keystore"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc/rpctest"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"github.com/kaspa-bridge/deposit-sender/pkg/wallet"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// FastKDFParams keeps keychain sealing cheap in tests
var FastKDFParams = keychain.KDFParams{N: 1 << 10, R: 8, P: 1, KeyLen: 32}

// TestKey returns a deterministic 32 byte private key for account i
func TestKey(i int) []byte {
	key := make([]byte, 32)
	for j := range key {
		key[j] = byte(i*32 + j + 1)
	}
	return key
}

// CreateTestWallet writes a wallet with n imported accounts into store. The
// accounts use TestKey(0) through TestKey(n-1).
func CreateTestWallet(t *testing.T, store persistence.IWalletStore, network config.NetworkId, s secret.Secret, n int) []*keystore.AccountDescriptor {
	t.Helper()
	creator := &wallet.Creator{
		Store:     store,
		Network:   network,
		KDFParams: FastKDFParams,
		Logger:    zaptest.NewLogger(t),
	}
	require.NoError(t, creator.CreateWallet("test", s))

	accounts := make([]*keystore.AccountDescriptor, n)
	for i := 0; i < n; i++ {
		desc, err := creator.ImportAccount("", TestKey(i), s)
		require.NoError(t, err)
		accounts[i] = desc
	}
	return accounts
}

// Fund gives addr one spendable utxo on node. tag becomes the first byte of
// the funding transaction id so tests can tell inputs apart.
func Fund(t *testing.T, node *rpctest.FakeNode, addr *address.Address, amount uint64, tag byte) {
	t.Helper()
	spk, err := addr.ScriptPublicKey()
	require.NoError(t, err)

	var txId types.TransactionId
	txId[0] = tag
	node.AddUtxo(addr.String(), types.UtxoEntryReference{
		Outpoint: types.Outpoint{TransactionId: txId},
		Entry:    types.UtxoEntry{Amount: amount, ScriptPublicKey: spk},
	})
}
