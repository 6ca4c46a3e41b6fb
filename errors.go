package recur

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/types"
)

// Error kinds. Every failure recur returns matches exactly one of these
// through errors.Is, in addition to its specific sentinel.
var (
	ErrNotFound                  = errors.New("recur: not found")
	ErrNotActive                 = errors.New("recur: not active")
	ErrAlreadyActive             = errors.New("recur: already active")
	ErrUnauthorized              = errors.New("recur: unauthorized")
	ErrInvalidInput              = errors.New("recur: invalid input")
	ErrInsufficientAuthorization = errors.New("recur: insufficient authorization")
	ErrTimingNotElapsed          = errors.New("recur: timing not elapsed")
	ErrSelfDealing               = errors.New("recur: self dealing")
)

// Sentinel errors for specific failure scenarios.
var (
	// Offering errors
	ErrOfferingNotFound  = kindError(ErrNotFound, "offering not found")
	ErrOfferingNotActive = kindError(ErrNotActive, "offering not active")
	ErrInvalidServiceID  = kindError(ErrInvalidInput, "invalid service id")
	ErrInvalidAddress    = kindError(ErrInvalidInput, "invalid address")
	ErrInvalidAmount     = kindError(ErrInvalidInput, "invalid amount")
	ErrInvalidPeriod     = kindError(ErrInvalidInput, "invalid period")

	// Subscription errors
	ErrSubscriptionNotFound      = kindError(ErrNotFound, "subscription not found")
	ErrSubscriptionNotActive     = kindError(ErrNotActive, "subscription not active")
	ErrSubscriptionAlreadyActive = kindError(ErrAlreadyActive, "subscription already active")
	ErrOwnerCannotSubscribe      = kindError(ErrSelfDealing, "owner cannot subscribe")
	ErrRecipientCannotSubscribe  = kindError(ErrSelfDealing, "recipient cannot subscribe")
	ErrInvalidTargetTime         = kindError(ErrInvalidInput, "invalid target time")
	ErrInvalidSchedule           = kindError(ErrInvalidInput, "invalid schedule")

	// Charge errors
	ErrUnauthorizedCaller      = kindError(ErrUnauthorized, "unauthorized caller")
	ErrInsufficientAllowance   = kindError(ErrInsufficientAuthorization, "insufficient allowance")
	ErrInsufficientBalance     = kindError(ErrInsufficientAuthorization, "insufficient balance")
	ErrTransferFailed          = kindError(ErrInsufficientAuthorization, "transfer failed")
	ErrBillingPeriodNotElapsed = kindError(ErrTimingNotElapsed, "billing period not elapsed")
	ErrChargeNotFound          = kindError(ErrNotFound, "charge not found")

	// Engine errors
	ErrHalted         = errors.New("recur: emergency halt engaged")
	ErrReentrantCall  = errors.New("recur: reentrant call")
	ErrNilTokenLedger = errors.New("recur: token ledger not configured")

	// Store errors
	ErrAlreadyExists = errors.New("recur: already exists")
	ErrStoreNotReady = errors.New("recur: store not ready")
)

// sentinel is a specific error that also matches its kind.
type sentinel struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) error {
	return &sentinel{kind: kind, msg: msg}
}

func (e *sentinel) Error() string { return "recur: " + e.msg }

func (e *sentinel) Unwrap() error { return e.kind }

// ValidationError names the offending field of a rejected input.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recur: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CallerError reports a caller outside an operation's allow-set.
type CallerError struct {
	Op         string
	Caller     types.Address
	OfferingID offering.ID
}

func (e *CallerError) Error() string {
	if e.OfferingID == 0 {
		return fmt.Sprintf("recur: %s: caller %q not permitted", e.Op, e.Caller)
	}
	return fmt.Sprintf("recur: %s: caller %q not permitted on offering %s", e.Op, e.Caller, e.OfferingID)
}

func (e *CallerError) Unwrap() error { return ErrUnauthorizedCaller }

// AllowanceError reports a spending authorization below what is required.
type AllowanceError struct {
	Owner    types.Address
	Required types.Amount
	Actual   types.Amount
}

func (e *AllowanceError) Error() string {
	return fmt.Sprintf("recur: insufficient allowance for %q: required %s, actual %s", e.Owner, e.Required, e.Actual)
}

func (e *AllowanceError) Unwrap() error { return ErrInsufficientAllowance }

// BalanceError reports a token balance below what is required.
type BalanceError struct {
	Owner    types.Address
	Required types.Amount
	Actual   types.Amount
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("recur: insufficient balance for %q: required %s, actual %s", e.Owner, e.Required, e.Actual)
}

func (e *BalanceError) Unwrap() error { return ErrInsufficientBalance }

// PeriodNotElapsedError reports a charge attempted before it was due.
type PeriodNotElapsedError struct {
	OfferingID     offering.ID
	Subscriber     types.Address
	NextChargeTime time.Time
	Remaining      time.Duration
}

func (e *PeriodNotElapsedError) Error() string {
	return fmt.Sprintf("recur: billing period not elapsed for %q on offering %s: %s remaining (due %s)",
		e.Subscriber, e.OfferingID, e.Remaining, e.NextChargeTime.Format(time.RFC3339))
}

func (e *PeriodNotElapsedError) Unwrap() error { return ErrBillingPeriodNotElapsed }

// TransferError wraps a failed debit on the token ledger.
type TransferError struct {
	From   types.Address
	To     types.Address
	Amount types.Amount
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("recur: transfer of %s from %q to %q failed: %v", e.Amount, e.From, e.To, e.Err)
}

// Unwrap exposes both ErrTransferFailed and the ledger's own error.
func (e *TransferError) Unwrap() []error { return []error{ErrTransferFailed, e.Err} }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "recur: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("recur: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (e MultiError) Unwrap() []error { return e.Errors }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsNotActive returns true for paused/canceled offerings and canceled or
// never-started subscriptions.
func IsNotActive(err error) bool { return errors.Is(err, ErrNotActive) }

// IsAlreadyActive returns true for a double subscribe.
func IsAlreadyActive(err error) bool { return errors.Is(err, ErrAlreadyActive) }

// IsUnauthorized returns true if the caller was outside the allow-set.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsInvalidInput returns true for malformed parameters.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsInsufficientAuthorization returns true for allowance or balance shortfalls.
func IsInsufficientAuthorization(err error) bool {
	return errors.Is(err, ErrInsufficientAuthorization)
}

// IsTimingNotElapsed returns true if a charge was attempted before it was due.
func IsTimingNotElapsed(err error) bool { return errors.Is(err, ErrTimingNotElapsed) }

// IsSelfDealing returns true if an owner or recipient tried to subscribe.
func IsSelfDealing(err error) bool { return errors.Is(err, ErrSelfDealing) }

// IsRetryable returns true if the error is temporary and the operation can
// be retried without changing its inputs.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimingNotElapsed) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrHalted)
}

// Kind names an error class.
type Kind string

const (
	KindUnknown                   Kind = "unknown"
	KindNotFound                  Kind = "not_found"
	KindNotActive                 Kind = "not_active"
	KindAlreadyActive             Kind = "already_active"
	KindUnauthorized              Kind = "unauthorized"
	KindInvalidInput              Kind = "invalid_input"
	KindInsufficientAuthorization Kind = "insufficient_authorization"
	KindTimingNotElapsed          Kind = "timing_not_elapsed"
	KindSelfDealing               Kind = "self_dealing"
	KindHalted                    Kind = "halted"
	KindReentrant                 Kind = "reentrant"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrNotActive, KindNotActive},
	{ErrAlreadyActive, KindAlreadyActive},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidInput, KindInvalidInput},
	{ErrInsufficientAuthorization, KindInsufficientAuthorization},
	{ErrTimingNotElapsed, KindTimingNotElapsed},
	{ErrSelfDealing, KindSelfDealing},
	{ErrHalted, KindHalted},
	{ErrReentrantCall, KindReentrant},
}

// KindOf classifies err. It returns "" for nil and KindUnknown for errors
// that did not originate in recur.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
