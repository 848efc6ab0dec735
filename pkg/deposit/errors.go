package deposit

import (
	"errors"
	"fmt"
)

// Kind classifies a deposit failure by the step that failed
type Kind int

const (
	KindInput Kind = iota + 1
	KindConfiguration
	KindStore
	KindInitialization
	KindConnection
	KindAuthentication
	KindEnumeration
	KindEmptyWallet
	KindSelection
	KindActivation
	KindNoActiveAccount
	KindSubmission
	KindMissingIdentifier
)

var kindNames = map[Kind]string{
	KindInput:             "InputError",
	KindConfiguration:     "ConfigurationError",
	KindStore:             "StoreError",
	KindInitialization:    "InitializationError",
	KindConnection:        "ConnectionError",
	KindAuthentication:    "AuthenticationError",
	KindEnumeration:       "EnumerationError",
	KindEmptyWallet:       "EmptyWalletError",
	KindSelection:         "SelectionError",
	KindActivation:        "ActivationError",
	KindNoActiveAccount:   "NoActiveAccountError",
	KindSubmission:        "SubmissionError",
	KindMissingIdentifier: "MissingIdentifierError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInput             = &Error{Kind: KindInput}
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrStore             = &Error{Kind: KindStore}
	ErrInitialization    = &Error{Kind: KindInitialization}
	ErrConnection        = &Error{Kind: KindConnection}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrEnumeration       = &Error{Kind: KindEnumeration}
	ErrEmptyWallet       = &Error{Kind: KindEmptyWallet}
	ErrSelection         = &Error{Kind: KindSelection}
	ErrActivation        = &Error{Kind: KindActivation}
	ErrNoActiveAccount   = &Error{Kind: KindNoActiveAccount}
	ErrSubmission        = &Error{Kind: KindSubmission}
	ErrMissingIdentifier = &Error{Kind: KindMissingIdentifier}
)

var (
	// ErrReportedConnectedButNot marks a connect call that returned success
	// while the client still reports no connection.
	ErrReportedConnectedButNot = errors.New("connect succeeded but client reports not connected")

	errNoAccounts         = errors.New("wallet has no accounts")
	errNoTxId             = errors.New("transaction did not produce a transaction id; a transaction may have been broadcast")
	errNilSummary         = errors.New("no submission summary")
	errNilSession         = errors.New("no session")
	errNilIntent          = errors.New("no deposit intent")
	errNilEscrow          = errors.New("deposit intent has no escrow address")
	errUnsupportedNetwork = errors.New("unsupported network")
)

// Error is returned by every deposit step. Op names the operation that
// failed and Err is the underlying cause. Messages never contain the wallet
// secret.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Op != "":
		return e.Op
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
