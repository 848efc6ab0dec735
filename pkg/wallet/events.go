package wallet

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/event"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc"
)

type EventKind string

const (
	EventConnect              EventKind = "connect"
	EventDisconnect           EventKind = "disconnect"
	EventOpen                 EventKind = "open"
	EventClose                EventKind = "close"
	EventAccountSelection     EventKind = "account-selection"
	EventAccountActivation    EventKind = "account-activation"
	EventDaaScoreChange       EventKind = "daa-score-change"
	EventTransactionSubmitted EventKind = "transaction-submitted"
)

const notificationVirtualDaaScoreChanged = "virtualDaaScoreChangedNotification"

// Event is published to subscribers of a Wallet. Fields not relevant to
// Kind are left zero.
type Event struct {
	Kind          EventKind
	Url           string
	NetworkId     string
	AccountIds    []AccountId
	DaaScore      uint64
	TransactionId string
}

// SubscribeEvents delivers wallet events to ch until the subscription is
// cancelled. Slow subscribers block the sender, so ch should be buffered.
func (w *Wallet) SubscribeEvents(ch chan<- Event) event.Subscription {
	return w.feed.Subscribe(ch)
}

func (w *Wallet) emit(ev Event) {
	w.feed.Send(ev)
}

// eventLoop consumes node notifications until ctx is done.
func (w *Wallet) eventLoop(ctx context.Context, notifications <-chan rpc.Notification) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-notifications:
			w.handleNotification(n)
		}
	}
}

func (w *Wallet) handleNotification(n rpc.Notification) {
	switch n.Method {
	case notificationVirtualDaaScoreChanged:
		var body struct {
			VirtualDaaScore uint64 `json:"virtualDaaScore"`
		}
		if err := json.Unmarshal(n.Params, &body); err != nil {
			w.logger.Sugar().Debugw("Ignoring malformed DAA score notification", "error", err)
			return
		}
		w.daaScore.Store(body.VirtualDaaScore)
		w.emit(Event{Kind: EventDaaScoreChange, DaaScore: body.VirtualDaaScore})
	default:
		w.logger.Sugar().Debugw("Unhandled node notification", "method", n.Method)
	}
}
