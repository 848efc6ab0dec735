package deposit

import (
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"github.com/kaspa-bridge/deposit-sender/pkg/wallet"
	"go.uber.org/zap"
)

// ExtractTransactionID returns the final transaction id of a submission.
// A summary without one is an uncertain outcome: the transaction may
// already be on the network.
func ExtractTransactionID(summary *wallet.GeneratorSummary, logger *zap.Logger) (types.TransactionId, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if summary == nil {
		logger.Sugar().Warnw("No submission summary; a transaction may have been broadcast")
		return types.TransactionId{}, newError(KindMissingIdentifier, "extract transaction id", errNilSummary)
	}
	id, ok := summary.FinalTransactionID()
	if !ok {
		logger.Sugar().Warnw("Submission produced no transaction id; a transaction may have been broadcast",
			"summary", summary.String(),
		)
		return types.TransactionId{}, newError(KindMissingIdentifier, "extract transaction id", errNoTxId)
	}
	return id, nil
}
