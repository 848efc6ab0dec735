package deposit

import (
	"context"

	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/wallet"
	"go.uber.org/zap"
)

// Builder turns a deposit intent into one submitted transaction
type Builder struct {
	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Deposit pays intent.Amount to the escrow from the session's active
// account with no priority fee. The payload is attached unmodified when
// non-empty. Failures are not retried.
func (b *Builder) Deposit(ctx context.Context, session *Session, walletSecret secret.Secret, intent *Intent) (*wallet.GeneratorSummary, error) {
	switch {
	case intent == nil:
		return nil, newError(KindInput, "validate deposit intent", errNilIntent)
	case intent.Escrow == nil:
		return nil, newError(KindInput, "validate deposit intent", errNilEscrow)
	}
	if session == nil || session.wallet == nil {
		return nil, newError(KindNoActiveAccount, "get active account", errNilSession)
	}
	account, err := session.wallet.Account()
	if err != nil {
		return nil, newError(KindNoActiveAccount, "get active account", err)
	}

	var payload []byte
	if len(intent.Payload) > 0 {
		payload = intent.Payload
	}

	b.logger.Sugar().Infow("Sending deposit",
		"amount", intent.Amount,
		"escrow", intent.Escrow.String(),
		"payloadLen", len(payload),
	)

	summary, err := account.Send(ctx,
		wallet.PaymentOutput{Address: intent.Escrow, Amount: intent.Amount},
		wallet.FeesFromInt64(0),
		payload,
		walletSecret,
	)
	if err != nil {
		return nil, newError(KindSubmission, "send transaction", err)
	}

	b.logger.Sugar().Debugw("Deposit submitted", "summary", summary.String())
	return summary, nil
}
