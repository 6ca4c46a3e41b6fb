package recur_test

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/recur"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/store/memory"
	tokenmem "github.com/xraph/recur/token/memory"
	"github.com/xraph/recur/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package doc
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create stores (memory for demo, use PostgreSQL in production)
		tokens := tokenmem.New()
		clock := recur.NewManualClock(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))

		engine := recur.New(memory.New(), tokens,
			recur.WithLogger(slog.Default()),
			recur.WithClock(clock),
		)

		// Start the engine
		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		// Create an offering
		o, err := engine.CreateOffering(ctx, "provider", offering.Params{
			ServiceID:       "pro-plan",
			Recipient:       "provider-treasury",
			AmountPerPeriod: recur.Tokens(10),
			PeriodSeconds:   7 * 24 * 3600,
		})
		if err != nil {
			t.Fatal(err)
		}

		// Authorize and subscribe
		tokens.Mint("alice", recur.Tokens(100))
		tokens.Approve("alice", engine.Spender(), recur.Tokens(100))

		if _, err := engine.Subscribe(ctx, "alice", o.ID); err != nil {
			t.Fatal(err)
		}

		// Not due yet
		_, err = engine.Charge(ctx, "provider", o.ID, "alice")
		var pe *recur.PeriodNotElapsedError
		if !errors.As(err, &pe) {
			t.Fatalf("expected PeriodNotElapsedError, got %v", err)
		}
		log.Printf("next charge in %s\n", pe.Remaining)

		// One period later
		clock.Advance(o.Period())
		if !engine.CanCharge(ctx, o.ID, "alice") {
			t.Fatal("expected subscription to be chargeable")
		}

		receipt, err := engine.Charge(ctx, "provider", o.ID, "alice")
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("charged %s (receipt %s)\n", receipt.Amount, receipt.ID)

		// Batch charge
		clock.Advance(o.Period())
		result, err := engine.ChargeAll(ctx, o.ID)
		if err != nil {
			t.Fatal(err)
		}
		if result.Succeeded != 1 {
			t.Fatalf("expected 1 batch success, got %d", result.Succeeded)
		}
	})

	// Test Amount type examples
	t.Run("AmountExamples", func(t *testing.T) {
		// Constructors
		_ = types.Tokens(10) // 10.000000
		_ = types.Micro(1)   // 0.000001

		// Arithmetic
		a := types.Tokens(1)
		b := types.Tokens(2)
		if _, err := a.Add(b); err != nil {
			t.Fatal(err)
		}
		_ = b.Sub(a) // 1.000000

		// Comparison
		if !b.Covers(a) {
			t.Fatal("expected 2 tokens to cover 1")
		}

		// Formatting
		if got := a.String(); got != "1.000000" {
			t.Fatalf("expected 1.000000, got %s", got)
		}
	})
}
