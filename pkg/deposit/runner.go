package deposit

import (
	"context"
	"fmt"
	"io"

	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"go.uber.org/zap"
)

// Runner performs one deposit end to end and prints the transaction id
type Runner struct {
	Establisher *Establisher
	Builder     *Builder
	// Out receives exactly the transaction id and a newline on success
	Out    io.Writer
	Logger *zap.Logger
}

func (r *Runner) Run(ctx context.Context, params SessionParams, intent *Intent) (types.TransactionId, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Sugar().Infow("Initializing wallet", "network", params.Network.String())
	session, err := r.Establisher.Establish(ctx, params)
	if err != nil {
		return types.TransactionId{}, err
	}
	defer func() { _ = session.Close() }()

	summary, err := r.Builder.Deposit(ctx, session, params.Secret, intent)
	if err != nil {
		return types.TransactionId{}, err
	}

	id, err := ExtractTransactionID(summary, logger)
	if err != nil {
		return types.TransactionId{}, err
	}

	if _, err := fmt.Fprintln(r.Out, id.String()); err != nil {
		return id, fmt.Errorf("failed to write transaction id: %w", err)
	}
	logger.Sugar().Infow("Transaction submitted successfully", "transactionId", id.String())
	return id, nil
}
