package transaction

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

var (
	escrowScript, _ = hex.DecodeString("aa20c4b5aaed52cc8cbfd024997e8a92d7ca0fe9b2be0b90733febe871cb7a639cfe87")
	p2pkZeroScript  = append(append([]byte{0x20}, make([]byte, 32)...), 0xac)
)

func sequentialTxId() types.TransactionId {
	var id types.TransactionId
	for i := range id {
		id[i] = byte(i)
	}
	return id
}

func depositTx(payload []byte) *types.Transaction {
	return &types.Transaction{
		Inputs: []types.TransactionInput{{
			PreviousOutpoint: types.Outpoint{TransactionId: sequentialTxId(), Index: 1},
			SigOpCount:       1,
		}},
		Outputs: []types.TransactionOutput{{
			Value:           4_000_000_000,
			ScriptPublicKey: types.ScriptPublicKey{Script: escrowScript},
		}},
		Payload: payload,
	}
}

func TestID(t *testing.T) {
	tx := depositTx([]byte{0x03, 0, 0, 0})
	assert.Equal(t, "708fafe29a40907854e9356b16904a97f3a4a4bdf1a898e39cd105afc7c514cf", ID(tx).String())
	assert.Equal(t, "35a448c75afab98129165e5f84d5cbc588ef9ebb0f4dafe2e7e7e73fb2758779", ID(depositTx(nil)).String())

	// signature scripts are not part of the id
	tx.Inputs[0].SignatureScript = make([]byte, SchnorrSignatureScriptSize)
	assert.Equal(t, "708fafe29a40907854e9356b16904a97f3a4a4bdf1a898e39cd105afc7c514cf", ID(tx).String())
}

// keyedHash hashes a hand assembled preimage with the consensus domain key
func keyedHash(t *testing.T, domain string, preimageHex ...string) string {
	t.Helper()
	preimage, err := hex.DecodeString(strings.Join(preimageHex, ""))
	require.NoError(t, err)
	h, err := blake2b.New256([]byte(domain))
	require.NoError(t, err)
	h.Write(preimage)
	return hex.EncodeToString(h.Sum(nil))
}

// The preimage follows the consensus transaction encoding field by field:
// little endian integers, u64 length prefixes, empty signature scripts.
func TestID_ConsensusPreimage(t *testing.T) {
	want := keyedHash(t, "TransactionID",
		"0000",             // version
		"0100000000000000", // input count
		"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", // outpoint tx id
		"01000000",         // outpoint index
		"0000000000000000", // signature script, always empty
		"0000000000000000", // sequence
		"0100000000000000", // output count
		"00286bee00000000", // value 4000000000
		"0000",             // script version
		"2300000000000000", // script length
		"aa20c4b5aaed52cc8cbfd024997e8a92d7ca0fe9b2be0b90733febe871cb7a639cfe87",
		"0000000000000000",                         // lock time
		"0000000000000000000000000000000000000000", // native subnetwork
		"0000000000000000",                         // gas
		"0400000000000000",                         // payload length
		"03000000",
	)
	assert.Equal(t, want, ID(depositTx([]byte{0x03, 0, 0, 0})).String())
}

func TestSignatureHashSchnorr_ConsensusPreimage(t *testing.T) {
	entries := []types.UtxoEntry{{
		Amount:          10_000_000_000,
		ScriptPublicKey: types.ScriptPublicKey{Script: p2pkZeroScript},
	}}
	const domain = "TransactionSigningHash"

	prevOuts := keyedHash(t, domain, "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", "01000000")
	sequences := keyedHash(t, domain, "0000000000000000")
	sigOps := keyedHash(t, domain, "01")
	outputs := keyedHash(t, domain,
		"00286bee00000000", "0000", "2300000000000000",
		"aa20c4b5aaed52cc8cbfd024997e8a92d7ca0fe9b2be0b90733febe871cb7a639cfe87",
	)
	payload := keyedHash(t, domain, "0400000000000000", "03000000")

	want := keyedHash(t, domain,
		"0000", // version
		prevOuts, sequences, sigOps,
		"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", "01000000", // outpoint
		"0000", "2200000000000000", hex.EncodeToString(p2pkZeroScript), // spent script
		"00e40b5402000000", // spent amount 10000000000
		"0000000000000000", // sequence
		"01",               // sig op count
		outputs,
		"0000000000000000", // lock time
		"0000000000000000000000000000000000000000", // native subnetwork
		"0000000000000000",                         // gas
		payload,
		"01", // SigHashAll
	)

	h, err := SignatureHashSchnorr(depositTx([]byte{0x03, 0, 0, 0}), 0, SigHashAll, entries)
	require.NoError(t, err)
	assert.Equal(t, want, hex.EncodeToString(h[:]))
}

func TestSignatureHashSchnorr(t *testing.T) {
	entries := []types.UtxoEntry{{
		Amount:          10_000_000_000,
		ScriptPublicKey: types.ScriptPublicKey{Script: p2pkZeroScript},
	}}

	h, err := SignatureHashSchnorr(depositTx([]byte{0x03, 0, 0, 0}), 0, SigHashAll, entries)
	require.NoError(t, err)
	assert.Equal(t, "2bebf7cf769db764c8afc536e4ae3e3aec7fb66c1de94f10f00de528a4aae0b6", hex.EncodeToString(h[:]))

	h, err = SignatureHashSchnorr(depositTx(nil), 0, SigHashAll, entries)
	require.NoError(t, err)
	assert.Equal(t, "bb13993b4042cb28032be0bdb06bd4f298ae0356b3b75a328e2e05d469afc800", hex.EncodeToString(h[:]))

	t.Run("amount is committed", func(t *testing.T) {
		other := []types.UtxoEntry{entries[0]}
		other[0].Amount++
		h2, err := SignatureHashSchnorr(depositTx(nil), 0, SigHashAll, other)
		require.NoError(t, err)
		assert.NotEqual(t, h, h2)
	})

	t.Run("bad index", func(t *testing.T) {
		_, err := SignatureHashSchnorr(depositTx(nil), 1, SigHashAll, entries)
		require.Error(t, err)
	})

	t.Run("entry count mismatch", func(t *testing.T) {
		_, err := SignatureHashSchnorr(depositTx(nil), 0, SigHashAll, nil)
		require.Error(t, err)
	})
}

func TestPayloadHash_NativeEmptyIsZero(t *testing.T) {
	assert.Equal(t, zeroHash[:], payloadHash(depositTx(nil)))
	assert.NotEqual(t, zeroHash[:], payloadHash(depositTx([]byte{0})))

	tx := depositTx(nil)
	tx.SubnetworkId[0] = 1
	assert.NotEqual(t, zeroHash[:], payloadHash(tx))
}
