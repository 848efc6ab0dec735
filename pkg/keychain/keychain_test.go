package keychain

import (
	"encoding/json"
	"testing"

	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = KDFParams{N: 1 << 10, R: 8, P: 1, KeyLen: 32}

func TestSealOpen(t *testing.T) {
	kc := &Keychain{}
	kc.Put("acct-1", []byte{1, 2, 3})
	kc.Put("acct-2", []byte{4, 5, 6})

	sealed, err := Seal(kc, secret.FromString("correct horse"), fastParams)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, sealed.Version)
	assert.Equal(t, KDFScrypt, sealed.KDF)

	// survives a JSON round trip through a store
	data, err := json.Marshal(sealed)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "acct-1")
	var stored EncryptedKeychain
	require.NoError(t, json.Unmarshal(data, &stored))

	opened, err := stored.Open(secret.FromString("correct horse"))
	require.NoError(t, err)
	key, ok := opened.Key("acct-2")
	require.True(t, ok)
	assert.Equal(t, []byte{4, 5, 6}, key)

	_, ok = opened.Key("missing")
	assert.False(t, ok)
}

func TestOpen_WrongSecret(t *testing.T) {
	sealed, err := Seal(&Keychain{}, secret.FromString("right"), fastParams)
	require.NoError(t, err)

	_, err = sealed.Open(secret.FromString("wrong-secret-value"))
	require.ErrorIs(t, err, ErrInvalidSecret)
	assert.NotContains(t, err.Error(), "wrong-secret-value")
}

func TestSeal_Validation(t *testing.T) {
	_, err := Seal(nil, secret.FromString("x"), fastParams)
	require.Error(t, err)

	_, err = Seal(&Keychain{}, secret.Secret{}, fastParams)
	require.Error(t, err)

	_, err = Seal(&Keychain{}, secret.FromString("x"), KDFParams{N: 1000, R: 8, P: 1, KeyLen: 32})
	require.Error(t, err)
}

func TestOpen_CorruptEnvelope(t *testing.T) {
	sealed, err := Seal(&Keychain{}, secret.FromString("x"), fastParams)
	require.NoError(t, err)

	bad := *sealed
	bad.Version = 99
	_, err = bad.Open(secret.FromString("x"))
	require.Error(t, err)

	bad = *sealed
	bad.Salt = "%%%"
	_, err = bad.Open(secret.FromString("x"))
	require.Error(t, err)

	bad = *sealed
	bad.Nonce = "AAAA"
	_, err = bad.Open(secret.FromString("x"))
	require.Error(t, err)
}

func TestKeychain_PutReplacesAndWipe(t *testing.T) {
	kc := &Keychain{}
	kc.Put("a", []byte{1})
	kc.Put("a", []byte{2})
	require.Len(t, kc.Keys, 1)
	key, _ := kc.Key("a")
	assert.Equal(t, []byte{2}, key)

	kc.Wipe()
	assert.Empty(t, kc.Keys)
	assert.Equal(t, []byte{0}, key)
}
