package transaction

import "fmt"

type FeeSource int

const (
	FeeSourceNone FeeSource = iota
	FeeSourceSenderPays
	FeeSourceReceiverPays
)

// Fees is an additional priority fee and who pays it. The network fee
// derived from mass is always paid on top of it by the same party.
type Fees struct {
	Source FeeSource
	Amount uint64
}

// FeesFromInt64 maps a signed amount to fees: positive is paid by the sender,
// negative by the receiver (deducted from the first output), zero adds none.
func FeesFromInt64(v int64) Fees {
	switch {
	case v > 0:
		return Fees{Source: FeeSourceSenderPays, Amount: uint64(v)}
	case v < 0:
		return Fees{Source: FeeSourceReceiverPays, Amount: uint64(-v)}
	default:
		return Fees{Source: FeeSourceNone}
	}
}

func (f Fees) ReceiverPays() bool {
	return f.Source == FeeSourceReceiverPays
}

func (f Fees) String() string {
	switch f.Source {
	case FeeSourceSenderPays:
		return fmt.Sprintf("sender pays %d", f.Amount)
	case FeeSourceReceiverPays:
		return fmt.Sprintf("receiver pays %d", f.Amount)
	default:
		return "none"
	}
}
