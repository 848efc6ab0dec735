package wallet

import (
	"fmt"

	"github.com/kaspa-bridge/deposit-sender/pkg/transaction"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
)

// Fees and PaymentOutput are re-exported so callers of Account.Send need
// only this package.
type (
	Fees          = transaction.Fees
	PaymentOutput = transaction.PaymentOutput
)

// FeesFromInt64 maps a signed amount to fees: 0 adds no priority fee,
// positive values are paid by the sender and negative by the receiver.
func FeesFromInt64(v int64) Fees {
	return transaction.FeesFromInt64(v)
}

// GeneratorSummary describes the outcome of Account.Send
type GeneratorSummary struct {
	NetworkId       string
	AggregatedUtxos int
	AggregatedFees  uint64
	Mass            uint64
	FinalAmount     uint64
	ChangeAmount    uint64

	// TransactionId is set once the node accepted the transaction
	TransactionId *types.TransactionId
}

// FinalTransactionID returns the id of the submitted transaction, if any
func (s *GeneratorSummary) FinalTransactionID() (types.TransactionId, bool) {
	if s == nil || s.TransactionId == nil {
		return types.TransactionId{}, false
	}
	return *s.TransactionId, true
}

func (s *GeneratorSummary) String() string {
	id := "none"
	if txId, ok := s.FinalTransactionID(); ok {
		id = txId.String()
	}
	return fmt.Sprintf("network=%s utxos=%d fees=%d mass=%d amount=%d change=%d tx=%s",
		s.NetworkId, s.AggregatedUtxos, s.AggregatedFees, s.Mass, s.FinalAmount, s.ChangeAmount, id)
}
