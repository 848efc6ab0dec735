// Package storetest holds behaviour shared by every IWalletStore backend.
package storetest

import (
	"testing"

	"github.com/kaspa-bridge/deposit-sender/pkg/keychain"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a store implementation. newStore must return a fresh, empty
// store for each call.
func Run(t *testing.T, newStore func(t *testing.T) persistence.IWalletStore) {
	t.Run("empty store", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		meta, err := s.LoadWalletMetadata()
		require.NoError(t, err)
		assert.Nil(t, meta)

		kc, err := s.LoadKeychain()
		require.NoError(t, err)
		assert.Nil(t, kc)

		accounts, err := s.ListAccounts()
		require.NoError(t, err)
		assert.Empty(t, accounts)

		selected, err := s.GetSelectedAccount()
		require.NoError(t, err)
		assert.Empty(t, selected)

		acct, err := s.LoadAccount("missing")
		require.NoError(t, err)
		assert.Nil(t, acct)

		require.NoError(t, s.HealthCheck())
	})

	t.Run("metadata and keychain", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		meta := &persistence.WalletMetadata{Title: "kaspa", CreatedAt: 1700000000, NextAccountIndex: 2}
		require.NoError(t, s.SaveWalletMetadata(meta))
		loadedMeta, err := s.LoadWalletMetadata()
		require.NoError(t, err)
		assert.Equal(t, meta, loadedMeta)

		kc := &keychain.EncryptedKeychain{Version: 1, KDF: keychain.KDFScrypt, Salt: "c2FsdA==", Nonce: "bm9uY2U=", CipherText: "Y3Q="}
		require.NoError(t, s.SaveKeychain(kc))
		loaded, err := s.LoadKeychain()
		require.NoError(t, err)
		assert.Equal(t, kc, loaded)

		kc2 := *kc
		kc2.CipherText = "bmV3"
		require.NoError(t, s.SaveKeychain(&kc2))
		loaded, err = s.LoadKeychain()
		require.NoError(t, err)
		assert.Equal(t, "bmV3", loaded.CipherText)
	})

	t.Run("accounts sorted by index", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		for _, a := range []*persistence.AccountRecord{
			{Id: "third", Index: 2, Kind: persistence.AccountKindKeypair},
			{Id: "first", Index: 0, Kind: persistence.AccountKindKeypair},
			{Id: "second", Index: 1, Kind: persistence.AccountKindKeypair},
		} {
			require.NoError(t, s.SaveAccount(a))
		}

		accounts, err := s.ListAccounts()
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		assert.Equal(t, "first", accounts[0].Id)
		assert.Equal(t, "second", accounts[1].Id)
		assert.Equal(t, "third", accounts[2].Id)

		// returned records are copies
		accounts[0].Name = "mutated"
		again, err := s.LoadAccount("first")
		require.NoError(t, err)
		assert.Empty(t, again.Name)

		require.NoError(t, s.DeleteAccount("second"))
		require.NoError(t, s.DeleteAccount("second"))
		accounts, err = s.ListAccounts()
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})

	t.Run("selected account", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.SetSelectedAccount("abc"))
		got, err := s.GetSelectedAccount()
		require.NoError(t, err)
		assert.Equal(t, "abc", got)

		require.NoError(t, s.SetSelectedAccount(""))
		got, err = s.GetSelectedAccount()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid input", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.Error(t, s.SaveAccount(nil))
		require.Error(t, s.SaveAccount(&persistence.AccountRecord{}))
		require.Error(t, s.SaveKeychain(nil))
		require.Error(t, s.SaveWalletMetadata(nil))
	})

	t.Run("closed store", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		require.ErrorIs(t, s.HealthCheck(), persistence.ErrStoreClosed)
		_, err := s.ListAccounts()
		require.ErrorIs(t, err, persistence.ErrStoreClosed)
		require.ErrorIs(t, s.SaveAccount(&persistence.AccountRecord{Id: "x"}), persistence.ErrStoreClosed)
		_, err = s.LoadKeychain()
		require.ErrorIs(t, err, persistence.ErrStoreClosed)
	})
}
