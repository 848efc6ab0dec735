package wallet

import (
	"context"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/keystore"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/transaction"
	"github.com/kaspa-bridge/deposit-sender/pkg/transactionSigner"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"github.com/pkg/errors"
)

// DefaultFeeRate is used when the node cannot provide a fee estimate
const DefaultFeeRate = 1.0

// Account is an active wallet account able to spend its UTXOs
type Account struct {
	wallet     *Wallet
	descriptor *keystore.AccountDescriptor
}

func (a *Account) Id() AccountId {
	return AccountId(a.descriptor.AccountId)
}

func (a *Account) ReceiveAddress() *address.Address {
	return a.descriptor.ReceiveAddress
}

func (a *Account) Descriptor() *keystore.AccountDescriptor {
	return a.descriptor
}

func (a *Account) utxos(ctx context.Context) ([]types.UtxoEntryReference, error) {
	utxos, err := a.wallet.client.GetUtxosByAddresses(ctx, []string{a.descriptor.ReceiveAddress.String()})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch account utxos")
	}
	return utxos, nil
}

// Balance sums the account's UTXOs as reported by the node
func (a *Account) Balance(ctx context.Context) (uint64, error) {
	utxos, err := a.utxos(ctx)
	if err != nil {
		return 0, err
	}
	return sumUtxos(utxos), nil
}

func sumUtxos(utxos []types.UtxoEntryReference) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Entry.Amount
	}
	return total
}

func (a *Account) feeRate(ctx context.Context) float64 {
	estimate, err := a.wallet.client.GetFeeEstimate(ctx)
	if err != nil {
		a.wallet.logger.Sugar().Warnw("Fee estimate unavailable, using default feerate",
			"feerate", DefaultFeeRate,
			"error", err,
		)
		return DefaultFeeRate
	}
	rate := estimate.NormalFeerate()
	if rate < DefaultFeeRate {
		rate = DefaultFeeRate
	}
	return rate
}

// Send builds a transaction paying destination from the account's UTXOs,
// signs it with the key unlocked by walletSecret and submits it. A nil or
// empty payload produces a transaction without a payload. Change returns
// to the receive address.
func (a *Account) Send(
	ctx context.Context,
	destination PaymentOutput,
	fees Fees,
	payload []byte,
	walletSecret secret.Secret,
) (*GeneratorSummary, error) {
	w := a.wallet
	if destination.Address == nil {
		return nil, errors.New("destination address is required")
	}
	if destination.Address.Prefix != w.network.AddressPrefix() {
		return nil, errors.Wrapf(address.ErrWrongNetwork, "destination %s on %s", destination.Address, w.network)
	}

	utxos, err := a.utxos(ctx)
	if err != nil {
		return nil, err
	}
	balance := sumUtxos(utxos)
	w.logger.Sugar().Debugw("Account balance",
		"address", a.descriptor.ReceiveAddress.String(),
		"balance", balance,
		"utxos", len(utxos),
	)

	generator, err := transaction.NewGenerator(&transaction.GeneratorSettings{
		ChangeAddress:   a.descriptor.ReceiveAddress,
		UtxoEntries:     utxos,
		Outputs:         []transaction.PaymentOutput{destination},
		PriorityFee:     fees,
		FeeRate:         a.feeRate(ctx),
		Payload:         payload,
		CurrentDaaScore: w.CurrentDaaScore(),
	}, w.logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure transaction generator")
	}
	pending, err := generator.Generate()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to generate transaction from a balance of %d sompi", balance)
	}

	signer, err := a.signer(walletSecret)
	if err != nil {
		return nil, err
	}
	defer signer.Close()

	if err := signer.SignTransaction(pending.Tx, pending.Entries); err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	localId := transaction.ID(pending.Tx)
	w.logger.Sugar().Debugw("Submitting transaction",
		"transactionId", localId.String(),
		"inputs", len(pending.Tx.Inputs),
		"outputs", len(pending.Tx.Outputs),
		"mass", pending.Mass,
		"fee", pending.Fee,
	)

	txId, err := w.client.SubmitTransaction(ctx, pending.Tx, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to submit transaction")
	}
	if txId != localId {
		w.logger.Sugar().Warnw("Node returned a different transaction id than computed locally",
			"node", txId.String(),
			"local", localId.String(),
		)
	}

	summary := &GeneratorSummary{
		NetworkId:       w.network.String(),
		AggregatedUtxos: len(pending.Tx.Inputs),
		AggregatedFees:  pending.Fee,
		Mass:            pending.Mass,
		FinalAmount:     pending.Tx.Outputs[0].Value,
		ChangeAmount:    pending.ChangeValue,
	}
	if !txId.IsZero() {
		summary.TransactionId = &txId
	}

	w.emit(Event{Kind: EventTransactionSubmitted, TransactionId: txId.String(), AccountIds: []AccountId{a.Id()}})
	return summary, nil
}

// signer unlocks the account's private key
func (a *Account) signer(walletSecret secret.Secret) (transactionSigner.ITransactionSigner, error) {
	w := a.wallet
	enc, err := w.store.LoadKeychain()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load keychain")
	}
	if enc == nil {
		return nil, errors.Wrap(ErrWalletNotInitialized, "keychain missing")
	}
	kc, err := enc.Open(walletSecret)
	if err != nil {
		return nil, err
	}
	defer kc.Wipe()

	key, ok := kc.Key(a.descriptor.AccountId)
	if !ok {
		return nil, errors.Errorf("account %s has no key in the keychain", a.descriptor.AccountId)
	}
	signer, err := transactionSigner.NewPrivateKeySigner(key, w.network, w.logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signer")
	}
	if !signer.Address().Equal(a.descriptor.ReceiveAddress) {
		signer.Close()
		return nil, errors.Errorf("keychain key does not match account %s", a.descriptor.AccountId)
	}
	return signer, nil
}
