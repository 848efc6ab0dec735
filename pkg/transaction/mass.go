package transaction

import (
	"math"

	"github.com/kaspa-bridge/deposit-sender/pkg/types"
)

const (
	MassPerTxByte           uint64 = 1
	MassPerScriptPubKeyByte uint64 = 10
	MassPerSigOp            uint64 = 1000

	// MaximumStandardTransactionMass is the largest mass the mempool relays.
	MaximumStandardTransactionMass uint64 = 100_000

	// StorageMassParameter is C in the storage mass formula.
	StorageMassParameter uint64 = 1_000_000_000_000

	// SchnorrSignatureScriptSize is OP_DATA_65 || 64 byte signature || sighash type.
	SchnorrSignatureScriptSize = 66
)

func outpointSerializedSize() uint64 {
	return types.TransactionIdLength + 4
}

func inputSerializedSize(in types.TransactionInput) uint64 {
	return outpointSerializedSize() + 8 + uint64(len(in.SignatureScript)) + 8
}

func outputSerializedSize(out types.TransactionOutput) uint64 {
	return 8 + 2 + 8 + uint64(len(out.ScriptPublicKey.Script))
}

// EstimatedSerializedSize is the size of the transaction as the mass rules
// count it. Unsigned inputs should carry a placeholder signature script.
func EstimatedSerializedSize(tx *types.Transaction) uint64 {
	size := uint64(2) // version
	size += 8
	for _, in := range tx.Inputs {
		size += inputSerializedSize(in)
	}
	size += 8
	for _, out := range tx.Outputs {
		size += outputSerializedSize(out)
	}
	size += 8 // lock time
	size += types.SubnetworkIdLength
	size += 8  // gas
	size += 32 // payload hash
	size += 8 + uint64(len(tx.Payload))
	return size
}

// ComputeMass is the size and sig-op based part of the mass.
func ComputeMass(tx *types.Transaction) uint64 {
	mass := EstimatedSerializedSize(tx) * MassPerTxByte
	for _, out := range tx.Outputs {
		mass += (2 + uint64(len(out.ScriptPublicKey.Script))) * MassPerScriptPubKeyByte
	}
	for _, in := range tx.Inputs {
		mass += uint64(in.SigOpCount) * MassPerSigOp
	}
	return mass
}

// StorageMass implements the KIP-9 storage mass for the given input and
// output values. ok is false when an output value is zero.
func StorageMass(inputValues, outputValues []uint64) (mass uint64, ok bool) {
	if len(outputValues) == 0 {
		return 0, true
	}
	var harmonicOuts uint64
	for _, v := range outputValues {
		if v == 0 {
			return 0, false
		}
		harmonicOuts = saturatingAdd(harmonicOuts, StorageMassParameter/v)
	}

	ins, outs := len(inputValues), len(outputValues)
	if outs == 1 || ins == 1 || (outs == 2 && ins == 2) {
		var harmonicIns uint64
		for _, v := range inputValues {
			if v == 0 {
				continue
			}
			harmonicIns = saturatingAdd(harmonicIns, StorageMassParameter/v)
		}
		return saturatingSub(harmonicOuts, harmonicIns), true
	}

	var sumIns uint64
	for _, v := range inputValues {
		sumIns = saturatingAdd(sumIns, v)
	}
	if sumIns == 0 {
		return harmonicOuts, true
	}
	meanIns := sumIns / uint64(ins)
	if meanIns == 0 {
		return harmonicOuts, true
	}
	arithmeticIns := saturatingMul(uint64(ins), StorageMassParameter/meanIns)
	return saturatingSub(harmonicOuts, arithmeticIns), true
}

// TransactionMass is the larger of compute and storage mass.
func TransactionMass(tx *types.Transaction, entries []types.UtxoEntry) (uint64, bool) {
	inputValues := make([]uint64, len(entries))
	for i, e := range entries {
		inputValues[i] = e.Amount
	}
	outputValues := make([]uint64, len(tx.Outputs))
	for i, o := range tx.Outputs {
		outputValues[i] = o.Value
	}
	storage, ok := StorageMass(inputValues, outputValues)
	if !ok {
		return 0, false
	}
	return max(ComputeMass(tx), storage), true
}

// FeeForMass returns ceil(mass * feeRate) in sompi.
func FeeForMass(mass uint64, feeRate float64) uint64 {
	if feeRate <= 0 {
		feeRate = MinimumFeeRate
	}
	return uint64(math.Ceil(float64(mass) * feeRate))
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func saturatingMul(a, b uint64) uint64 {
	if a != 0 && b > math.MaxUint64/a {
		return math.MaxUint64
	}
	return a * b
}
