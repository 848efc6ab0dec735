package testutil

import (
	"testing"

	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence/memory"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc/rpctest"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestWallet(t *testing.T) {
	store := memory.NewMemoryPersistence()
	accounts := CreateTestWallet(t, store, config.Testnet10, secret.FromString("pw"), 2)
	require.Len(t, accounts, 2)
	assert.NotEqual(t, accounts[0].ReceiveAddress.String(), accounts[1].ReceiveAddress.String())

	records, err := store.ListAccounts()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, accounts[0].AccountId, records[0].Id)

	node := rpctest.NewFakeNode(config.Testnet10.String())
	Fund(t, node, accounts[1].ReceiveAddress, 5_000_000_000, 9)
	utxos := node.Utxos[accounts[1].ReceiveAddress.String()]
	require.Len(t, utxos, 1)
	assert.Equal(t, byte(9), utxos[0].Outpoint.TransactionId[0])
	assert.Equal(t, uint64(5_000_000_000), utxos[0].Entry.Amount)
}
