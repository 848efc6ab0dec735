package transaction

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"go.uber.org/zap"
)

const (
	// MinimumFeeRate is the relay floor in sompi per gram of mass.
	MinimumFeeRate = 1.0

	// MinimumChangeValue is the smallest change output kept. Smaller change
	// is added to the fee since its storage mass would dominate.
	MinimumChangeValue uint64 = 10_000_000

	// CoinbaseMaturity is the DAA score distance before a coinbase output
	// can be spent.
	CoinbaseMaturity uint64 = 1000

	defaultSequence   uint64 = 0
	defaultSigOpCount uint8  = 1
)

// maxFeeIterations bounds the fee and storage mass fixpoint search
var maxFeeIterations = 4

var (
	ErrNoOutputs         = errors.New("no payment outputs")
	ErrNoSpendableUtxos  = errors.New("no spendable utxos")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMassTooLarge      = errors.New("transaction mass exceeds the standard limit")
	ErrAmountBelowFee    = errors.New("output amount does not cover the fee")
	ErrFeeNotConverged   = errors.New("fee did not converge on the transaction mass")

	errChangeTooSmall = errors.New("change below minimum")
)

// PaymentOutput pays Amount sompi to Address.
type PaymentOutput struct {
	Address *address.Address
	Amount  uint64
}

type GeneratorSettings struct {
	ChangeAddress   *address.Address
	UtxoEntries     []types.UtxoEntryReference
	Outputs         []PaymentOutput
	PriorityFee     Fees
	FeeRate         float64
	Payload         []byte
	CurrentDaaScore uint64
}

// PendingTransaction is a fully built, unsigned transaction together with
// the utxo entries its inputs spend.
type PendingTransaction struct {
	Tx          *types.Transaction
	Entries     []types.UtxoEntry
	Fee         uint64
	Mass        uint64
	ChangeValue uint64
}

type Generator struct {
	settings *GeneratorSettings
	logger   *zap.Logger
}

func NewGenerator(settings *GeneratorSettings, logger *zap.Logger) (*Generator, error) {
	if settings == nil {
		return nil, fmt.Errorf("generator settings are required")
	}
	if len(settings.Outputs) == 0 {
		return nil, ErrNoOutputs
	}
	for i, o := range settings.Outputs {
		if o.Address == nil {
			return nil, fmt.Errorf("output %d has no address", i)
		}
	}
	if settings.ChangeAddress == nil {
		return nil, fmt.Errorf("change address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{settings: settings, logger: logger}, nil
}

// Generate selects inputs largest first until the outputs and fees are
// covered and returns the unsigned transaction.
func (g *Generator) Generate() (*PendingTransaction, error) {
	s := g.settings
	utxos := g.spendable()
	if len(utxos) == 0 {
		return nil, ErrNoSpendableUtxos
	}

	var paymentTotal uint64
	for _, o := range s.Outputs {
		paymentTotal += o.Amount
	}

	var (
		selected []types.UtxoEntryReference
		totalIn  uint64
	)
	for _, u := range utxos {
		selected = append(selected, u)
		totalIn += u.Entry.Amount

		pending, err := g.build(selected, totalIn, paymentTotal)
		if errors.Is(err, ErrInsufficientFunds) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return pending, nil
	}
	return nil, fmt.Errorf("%w: have %d sompi in %d utxos, need %d plus fees", ErrInsufficientFunds, totalIn, len(selected), paymentTotal)
}

func (g *Generator) spendable() []types.UtxoEntryReference {
	s := g.settings
	out := make([]types.UtxoEntryReference, 0, len(s.UtxoEntries))
	for _, u := range s.UtxoEntries {
		if u.Entry.IsCoinbase && s.CurrentDaaScore > 0 && u.Entry.BlockDaaScore+CoinbaseMaturity > s.CurrentDaaScore {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Entry.Amount != out[j].Entry.Amount {
			return out[i].Entry.Amount > out[j].Entry.Amount
		}
		return out[i].Outpoint.String() < out[j].Outpoint.String()
	})
	return out
}

func (g *Generator) build(selected []types.UtxoEntryReference, totalIn, paymentTotal uint64) (*PendingTransaction, error) {
	s := g.settings
	receiverPays := s.PriorityFee.ReceiverPays()
	priority := s.PriorityFee.Amount
	if s.PriorityFee.Source == FeeSourceNone {
		priority = 0
	}

	if totalIn < paymentTotal {
		return nil, ErrInsufficientFunds
	}

	tx, entries, err := g.draft(selected, 1)
	if err != nil {
		return nil, err
	}
	fee, mass, err := g.fee(tx, entries, totalIn, paymentTotal, priority, receiverPays, true)
	switch {
	case err == nil:
		change := totalIn - paymentTotal
		if !receiverPays {
			change -= fee
		}
		if err := g.finalize(tx, fee, change, receiverPays); err != nil {
			return nil, err
		}
		tx.Mass = mass
		return &PendingTransaction{Tx: tx, Entries: entries, Fee: fee, Mass: mass, ChangeValue: change}, nil
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrMassTooLarge), errors.Is(err, errChangeTooSmall):
	default:
		return nil, err
	}

	// no change output, the remainder goes to the fee
	tx, entries, err = g.draft(selected, 0)
	if err != nil {
		return nil, err
	}
	fee, mass, err = g.fee(tx, entries, totalIn, paymentTotal, priority, receiverPays, false)
	if err != nil {
		return nil, err
	}
	remainder := totalIn - paymentTotal
	if !receiverPays {
		remainder -= fee
	}
	if remainder > 0 {
		g.logger.Sugar().Warnw("Change below minimum, adding it to the fee",
			"change", remainder,
			"minimumChange", MinimumChangeValue,
		)
	}
	if err := g.finalize(tx, fee, 0, receiverPays); err != nil {
		return nil, err
	}
	tx.Mass = mass
	return &PendingTransaction{Tx: tx, Entries: entries, Fee: fee + remainder, Mass: mass}, nil
}

// draft builds the transaction skeleton with placeholder values. changeOutputs
// is 0 or 1.
func (g *Generator) draft(selected []types.UtxoEntryReference, changeOutputs int) (*types.Transaction, []types.UtxoEntry, error) {
	s := g.settings
	tx := &types.Transaction{
		Version:      0,
		Inputs:       make([]types.TransactionInput, 0, len(selected)),
		Outputs:      make([]types.TransactionOutput, 0, len(s.Outputs)+changeOutputs),
		SubnetworkId: types.SubnetworkIdNative,
	}
	if len(s.Payload) > 0 {
		tx.Payload = append(types.HexBytes{}, s.Payload...)
	}
	entries := make([]types.UtxoEntry, 0, len(selected))
	for _, u := range selected {
		tx.Inputs = append(tx.Inputs, types.TransactionInput{
			PreviousOutpoint: u.Outpoint,
			SignatureScript:  make(types.HexBytes, SchnorrSignatureScriptSize),
			Sequence:         defaultSequence,
			SigOpCount:       defaultSigOpCount,
		})
		entries = append(entries, u.Entry)
	}
	for _, o := range s.Outputs {
		spk, err := o.Address.ScriptPublicKey()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build script for %s: %w", o.Address, err)
		}
		tx.Outputs = append(tx.Outputs, types.TransactionOutput{Value: o.Amount, ScriptPublicKey: spk})
	}
	if changeOutputs > 0 {
		spk, err := s.ChangeAddress.ScriptPublicKey()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build change script: %w", err)
		}
		tx.Outputs = append(tx.Outputs, types.TransactionOutput{Value: 0, ScriptPublicKey: spk})
	}
	return tx, entries, nil
}

// fee sets provisional output values on tx so storage mass can be computed
// and returns the network fee plus priority fee, and the mass.
func (g *Generator) fee(tx *types.Transaction, entries []types.UtxoEntry, totalIn, paymentTotal, priority uint64, receiverPays, withChange bool) (uint64, uint64, error) {
	computeMass := ComputeMass(tx)
	if computeMass > MaximumStandardTransactionMass {
		return 0, 0, fmt.Errorf("%w: compute mass %d with %d inputs", ErrMassTooLarge, computeMass, len(tx.Inputs))
	}
	estimate := FeeForMass(computeMass, g.settings.FeeRate) + priority
	if !receiverPays && totalIn < paymentTotal+estimate {
		return 0, 0, ErrInsufficientFunds
	}

	// Storage mass depends on the change value, which depends on the fee.
	// Iterate until the fee covers the mass of the final values.
	fee := estimate
	var mass uint64
	converged := false
	for i := 0; i < maxFeeIterations; i++ {
		var change uint64
		if withChange {
			change = totalIn - paymentTotal
			if !receiverPays {
				change -= fee
			}
			if change < MinimumChangeValue {
				return 0, 0, errChangeTooSmall
			}
		}
		if err := g.finalize(tx, fee, change, receiverPays); err != nil {
			return 0, 0, err
		}
		m, ok := TransactionMass(tx, entries)
		if !ok {
			return 0, 0, fmt.Errorf("%w: zero value output", ErrAmountBelowFee)
		}
		if m > MaximumStandardTransactionMass {
			return 0, 0, fmt.Errorf("%w: mass %d", ErrMassTooLarge, m)
		}
		mass = m
		next := FeeForMass(m, g.settings.FeeRate) + priority
		if next <= fee {
			converged = true
			break
		}
		fee = next
		if !receiverPays && totalIn < paymentTotal+fee {
			return 0, 0, ErrInsufficientFunds
		}
	}
	if !converged {
		return 0, 0, fmt.Errorf("%w: fee %d sompi after %d iterations", ErrFeeNotConverged, fee, maxFeeIterations)
	}
	return fee, mass, nil
}

// finalize writes payment and change values. When the receiver pays, the fee
// is deducted from the first payment output.
func (g *Generator) finalize(tx *types.Transaction, fee, change uint64, receiverPays bool) error {
	s := g.settings
	for i, o := range s.Outputs {
		tx.Outputs[i].Value = o.Amount
	}
	if receiverPays {
		if tx.Outputs[0].Value <= fee {
			return fmt.Errorf("%w: output %d sompi, fee %d sompi", ErrAmountBelowFee, tx.Outputs[0].Value, fee)
		}
		tx.Outputs[0].Value -= fee
	}
	if len(tx.Outputs) > len(s.Outputs) {
		tx.Outputs[len(s.Outputs)].Value = change
	}
	return nil
}
