package transaction

import (
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"golang.org/x/crypto/blake2b"
)

// Domain separation keys for the keyed blake2b-256 hashers.
var (
	transactionIdDomain          = []byte("TransactionID")
	transactionSigningHashDomain = []byte("TransactionSigningHash")
)

// SigHashType selects which parts of a transaction a signature commits to.
type SigHashType uint8

const (
	SigHashAll          SigHashType = 0b0000_0001
	SigHashNone         SigHashType = 0b0000_0010
	SigHashSingle       SigHashType = 0b0000_0100
	SigHashAnyOneCanPay SigHashType = 0b1000_0000
)

func (s SigHashType) isAnyOneCanPay() bool { return s&SigHashAnyOneCanPay != 0 }
func (s SigHashType) isNone() bool         { return s&0b111 == SigHashNone }
func (s SigHashType) isSingle() bool       { return s&0b111 == SigHashSingle }

type hashWriter struct {
	h   hash.Hash
	buf [8]byte
}

func newHashWriter(domain []byte) *hashWriter {
	h, err := blake2b.New256(domain)
	if err != nil {
		// only returned for keys longer than 64 bytes
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	return &hashWriter{h: h}
}

func (w *hashWriter) bytes(b []byte) *hashWriter {
	_, _ = w.h.Write(b)
	return w
}

func (w *hashWriter) u8(v uint8) *hashWriter {
	return w.bytes([]byte{v})
}

func (w *hashWriter) u16(v uint16) *hashWriter {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	return w.bytes(w.buf[:2])
}

func (w *hashWriter) u32(v uint32) *hashWriter {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	return w.bytes(w.buf[:4])
}

func (w *hashWriter) u64(v uint64) *hashWriter {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	return w.bytes(w.buf[:8])
}

func (w *hashWriter) varBytes(b []byte) *hashWriter {
	return w.u64(uint64(len(b))).bytes(b)
}

func (w *hashWriter) outpoint(o types.Outpoint) *hashWriter {
	return w.bytes(o.TransactionId[:]).u32(o.Index)
}

func (w *hashWriter) scriptPublicKey(spk types.ScriptPublicKey) *hashWriter {
	return w.u16(spk.Version).varBytes(spk.Script)
}

func (w *hashWriter) output(o types.TransactionOutput) *hashWriter {
	return w.u64(o.Value).scriptPublicKey(o.ScriptPublicKey)
}

func (w *hashWriter) sum() [32]byte {
	var out [32]byte
	copy(out[:], w.h.Sum(nil))
	return out
}

// ID computes the transaction id. Signature scripts are not committed to, so
// the id is stable across signing.
func ID(tx *types.Transaction) types.TransactionId {
	w := newHashWriter(transactionIdDomain)
	w.u16(tx.Version).u64(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		w.outpoint(in.PreviousOutpoint).varBytes(nil).u64(in.Sequence)
	}
	w.u64(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		w.output(out)
	}
	w.u64(tx.LockTime).bytes(tx.SubnetworkId[:]).u64(tx.Gas).varBytes(tx.Payload)
	return w.sum()
}

// SignatureHashSchnorr computes the message signed by input inputIndex.
// entries holds the spent utxo entry of every input, in input order.
func SignatureHashSchnorr(tx *types.Transaction, inputIndex int, hashType SigHashType, entries []types.UtxoEntry) ([32]byte, error) {
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return [32]byte{}, fmt.Errorf("input index %d out of range", inputIndex)
	}
	if len(entries) != len(tx.Inputs) {
		return [32]byte{}, fmt.Errorf("expected %d utxo entries, got %d", len(tx.Inputs), len(entries))
	}
	input := tx.Inputs[inputIndex]
	utxo := entries[inputIndex]

	w := newHashWriter(transactionSigningHashDomain)
	w.u16(tx.Version)
	w.bytes(previousOutputsHash(tx, hashType))
	w.bytes(sequencesHash(tx, hashType))
	w.bytes(sigOpCountsHash(tx, hashType))
	w.outpoint(input.PreviousOutpoint)
	w.scriptPublicKey(utxo.ScriptPublicKey)
	w.u64(utxo.Amount).u64(input.Sequence).u8(input.SigOpCount)
	w.bytes(outputsHash(tx, hashType, inputIndex))
	w.u64(tx.LockTime).bytes(tx.SubnetworkId[:]).u64(tx.Gas)
	w.bytes(payloadHash(tx))
	w.u8(uint8(hashType))
	return w.sum(), nil
}

var zeroHash [32]byte

func previousOutputsHash(tx *types.Transaction, hashType SigHashType) []byte {
	if hashType.isAnyOneCanPay() {
		return zeroHash[:]
	}
	w := newHashWriter(transactionSigningHashDomain)
	for _, in := range tx.Inputs {
		w.outpoint(in.PreviousOutpoint)
	}
	h := w.sum()
	return h[:]
}

func sequencesHash(tx *types.Transaction, hashType SigHashType) []byte {
	if hashType.isSingle() || hashType.isAnyOneCanPay() || hashType.isNone() {
		return zeroHash[:]
	}
	w := newHashWriter(transactionSigningHashDomain)
	for _, in := range tx.Inputs {
		w.u64(in.Sequence)
	}
	h := w.sum()
	return h[:]
}

func sigOpCountsHash(tx *types.Transaction, hashType SigHashType) []byte {
	if hashType.isAnyOneCanPay() {
		return zeroHash[:]
	}
	w := newHashWriter(transactionSigningHashDomain)
	for _, in := range tx.Inputs {
		w.u8(in.SigOpCount)
	}
	h := w.sum()
	return h[:]
}

func outputsHash(tx *types.Transaction, hashType SigHashType, inputIndex int) []byte {
	if hashType.isNone() {
		return zeroHash[:]
	}
	w := newHashWriter(transactionSigningHashDomain)
	if hashType.isSingle() {
		if inputIndex >= len(tx.Outputs) {
			return zeroHash[:]
		}
		w.output(tx.Outputs[inputIndex])
	} else {
		for _, out := range tx.Outputs {
			w.output(out)
		}
	}
	h := w.sum()
	return h[:]
}

func payloadHash(tx *types.Transaction) []byte {
	if tx.SubnetworkId.IsNative() && len(tx.Payload) == 0 {
		return zeroHash[:]
	}
	h := newHashWriter(transactionSigningHashDomain).varBytes(tx.Payload).sum()
	return h[:]
}
