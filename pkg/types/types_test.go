package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptPublicKey_WireFormat(t *testing.T) {
	spk := ScriptPublicKey{Version: 0, Script: []byte{0x20, 0x01, 0xac}}
	data, err := json.Marshal(spk)
	require.NoError(t, err)
	assert.Equal(t, `"00002001ac"`, string(data))

	var decoded ScriptPublicKey
	require.NoError(t, json.Unmarshal([]byte(`"0001aabb"`), &decoded))
	assert.Equal(t, uint16(1), decoded.Version)
	assert.Equal(t, []byte{0xaa, 0xbb}, decoded.Script)

	require.Error(t, json.Unmarshal([]byte(`"00"`), &decoded))
}

func TestTransactionId_Text(t *testing.T) {
	hexId := "c4b5aaed52cc8cbfd024997e8a92d7ca0fe9b2be0b90733febe871cb7a639cfe"
	id, err := TransactionIdFromHex(hexId)
	require.NoError(t, err)
	assert.Equal(t, hexId, id.String())
	assert.False(t, id.IsZero())

	_, err = TransactionIdFromHex("abcd")
	require.Error(t, err)
	_, err = TransactionIdFromHex("zz")
	require.Error(t, err)
}

func TestTransaction_PayloadEncoding(t *testing.T) {
	tx := &Transaction{Payload: HexBytes{0x03, 0x00, 0x00, 0x00}}
	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":"03000000"`)
	assert.Contains(t, string(data), `"subnetworkId":"0000000000000000000000000000000000000000"`)

	var decoded Transaction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, HexBytes{0x03, 0, 0, 0}, decoded.Payload)

	empty := &Transaction{}
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":""`)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded.Payload)
}

func TestTransaction_TotalOutputValue(t *testing.T) {
	tx := &Transaction{Outputs: []TransactionOutput{{Value: 5}, {Value: 7}}}
	assert.Equal(t, uint64(12), tx.TotalOutputValue())
}
