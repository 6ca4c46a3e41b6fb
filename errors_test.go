package recur_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/xraph/recur"
	"github.com/xraph/recur/token"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind recur.Kind
		is   func(error) bool
	}{
		{"offering not found", recur.ErrOfferingNotFound, recur.KindNotFound, recur.IsNotFound},
		{"subscription not found", recur.ErrSubscriptionNotFound, recur.KindNotFound, recur.IsNotFound},
		{"charge not found", recur.ErrChargeNotFound, recur.KindNotFound, recur.IsNotFound},
		{"offering not active", recur.ErrOfferingNotActive, recur.KindNotActive, recur.IsNotActive},
		{"subscription not active", recur.ErrSubscriptionNotActive, recur.KindNotActive, recur.IsNotActive},
		{"already active", recur.ErrSubscriptionAlreadyActive, recur.KindAlreadyActive, recur.IsAlreadyActive},
		{"unauthorized", recur.ErrUnauthorizedCaller, recur.KindUnauthorized, recur.IsUnauthorized},
		{"invalid amount", recur.ErrInvalidAmount, recur.KindInvalidInput, recur.IsInvalidInput},
		{"invalid schedule", recur.ErrInvalidSchedule, recur.KindInvalidInput, recur.IsInvalidInput},
		{"allowance", recur.ErrInsufficientAllowance, recur.KindInsufficientAuthorization, recur.IsInsufficientAuthorization},
		{"balance", recur.ErrInsufficientBalance, recur.KindInsufficientAuthorization, recur.IsInsufficientAuthorization},
		{"period", recur.ErrBillingPeriodNotElapsed, recur.KindTimingNotElapsed, recur.IsTimingNotElapsed},
		{"owner", recur.ErrOwnerCannotSubscribe, recur.KindSelfDealing, recur.IsSelfDealing},
		{"recipient", recur.ErrRecipientCannotSubscribe, recur.KindSelfDealing, recur.IsSelfDealing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			if got := recur.KindOf(wrapped); got != tt.kind {
				t.Errorf("KindOf: got %s, want %s", got, tt.kind)
			}
			if !tt.is(wrapped) {
				t.Error("classifier did not match wrapped error")
			}
			if !errors.Is(wrapped, tt.err) {
				t.Error("wrapped error lost its sentinel")
			}
			if !strings.HasPrefix(tt.err.Error(), "recur: ") {
				t.Errorf("message %q missing package prefix", tt.err.Error())
			}
		})
	}
}

func TestKindOfUnknown(t *testing.T) {
	if got := recur.KindOf(nil); got != "" {
		t.Errorf("KindOf(nil): got %q", got)
	}
	if got := recur.KindOf(errors.New("boom")); got != recur.KindUnknown {
		t.Errorf("KindOf(foreign): got %q", got)
	}
	if got := recur.KindOf(recur.ErrReentrantCall); got != recur.KindReentrant {
		t.Errorf("KindOf(reentrant): got %q", got)
	}
}

func TestTypedErrors(t *testing.T) {
	t.Run("CallerError", func(t *testing.T) {
		err := &recur.CallerError{Op: "charge", Caller: "mallory", OfferingID: 7}
		if !errors.Is(err, recur.ErrUnauthorizedCaller) {
			t.Error("expected ErrUnauthorizedCaller")
		}
		if !strings.Contains(err.Error(), "offering 7") {
			t.Errorf("message %q missing offering", err.Error())
		}

		noOffering := &recur.CallerError{Op: "engage_halt", Caller: "mallory"}
		if strings.Contains(noOffering.Error(), "offering") {
			t.Errorf("message %q should not name an offering", noOffering.Error())
		}
	})

	t.Run("PeriodNotElapsedError", func(t *testing.T) {
		err := &recur.PeriodNotElapsedError{OfferingID: 1, Subscriber: "alice", Remaining: 90 * time.Second}
		if !recur.IsRetryable(err) {
			t.Error("expected retryable")
		}
		if !strings.Contains(err.Error(), "1m30s") {
			t.Errorf("message %q missing remaining time", err.Error())
		}
	})

	t.Run("TransferError", func(t *testing.T) {
		err := &recur.TransferError{From: "alice", To: "treasury", Amount: recur.Tokens(1), Err: token.ErrInsufficientBalance}
		if !errors.Is(err, recur.ErrTransferFailed) {
			t.Error("expected ErrTransferFailed")
		}
		if !errors.Is(err, token.ErrInsufficientBalance) {
			t.Error("expected ledger cause")
		}
		if recur.KindOf(err) != recur.KindInsufficientAuthorization {
			t.Errorf("KindOf: got %s", recur.KindOf(err))
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := &recur.ValidationError{Field: "period_seconds", Message: "too short", Err: recur.ErrInvalidPeriod}
		if !errors.Is(err, recur.ErrInvalidInput) {
			t.Error("expected ErrInvalidInput")
		}
		if recur.IsRetryable(err) {
			t.Error("validation errors are not retryable")
		}
	})
}

func TestMultiError(t *testing.T) {
	var m recur.MultiError
	if m.HasErrors() {
		t.Fatal("empty MultiError reports errors")
	}
	if m.First() != nil {
		t.Fatal("empty MultiError has a first error")
	}

	m.Add(nil)
	m.Add(recur.ErrInsufficientBalance)
	m.Add(recur.ErrSubscriptionNotActive)

	if len(m.Errors) != 2 {
		t.Fatalf("got %d errors, want 2", len(m.Errors))
	}
	if !errors.Is(m, recur.ErrSubscriptionNotActive) {
		t.Error("expected errors.Is to search every error")
	}
	if !errors.Is(m.First(), recur.ErrInsufficientBalance) {
		t.Errorf("First: got %v", m.First())
	}
}
