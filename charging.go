package recur

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/event"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// ──────────────────────────────────────────────────
// Charge Engine
// ──────────────────────────────────────────────────

// Charge debits one period's amount from subscriber to the offering
// recipient. Caller must be the offering owner, its recipient or the
// subscriber. State changes only after the token ledger accepts the debit.
func (e *Engine) Charge(ctx context.Context, caller types.Address, offeringID offering.ID, subscriber types.Address) (*charge.Charge, error) {
	var receipt *charge.Charge
	err := e.mutate(ctx, "charge", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		o, err := e.getOffering(ctx, offeringID)
		if err != nil {
			return nil, err
		}
		if !o.Active {
			return nil, fmt.Errorf("%w: offering %s", ErrOfferingNotActive, offeringID)
		}
		sub, err := e.activeSubscription(ctx, offeringID, subscriber)
		if err != nil {
			return nil, err
		}
		if !CanTrigger(caller, o, subscriber) {
			return nil, &CallerError{Op: "charge", Caller: caller, OfferingID: offeringID}
		}
		if !sub.Due(now, o.Period()) {
			return nil, &PeriodNotElapsedError{
				OfferingID:     offeringID,
				Subscriber:     subscriber,
				NextChargeTime: sub.NextChargeTime(o.Period()),
				Remaining:      sub.Remaining(now, o.Period()),
			}
		}

		c, _, err := e.debit(ctx, o, sub, now, id.Nil)
		if err != nil {
			return nil, err
		}
		receipt = c
		return []event.Event{chargedEvent(c)}, nil
	})
	return receipt, err
}

// BatchOption configures ChargeAll.
type BatchOption func(*batchConfig)

type batchConfig struct {
	offset int
	limit  int
}

// WithBatchWindow restricts ChargeAll to limit subscribers of the
// offering's membership index starting at offset. The default is the whole
// index.
func WithBatchWindow(offset, limit int) BatchOption {
	return func(c *batchConfig) {
		if offset > 0 {
			c.offset = offset
		}
		if limit > 0 {
			c.limit = limit
		}
	}
}

// ChargeAll charges every active, due subscriber of an active offering.
// Anyone may call it. Inactive and not-yet-due subscribers are skipped.
// A subscriber whose allowance or balance is short is counted as failed
// without a debit attempt, and so is one whose debit the token ledger
// rejects despite passing that pre-check. Individual failures never fail
// the batch; it fails only when the offering is missing or inactive, or
// when the store rejects a write after a debit went through.
func (e *Engine) ChargeAll(ctx context.Context, offeringID offering.ID, opts ...BatchOption) (*charge.BatchResult, error) {
	cfg := batchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var result *charge.BatchResult
	err := e.mutate(ctx, "charge_all", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		o, err := e.getOffering(ctx, offeringID)
		if err != nil {
			return nil, err
		}
		if !o.Active {
			return nil, fmt.Errorf("%w: offering %s", ErrOfferingNotActive, offeringID)
		}

		subs, err := e.store.ListOfferingSubscriptions(ctx, offeringID, subscription.ListOpts{
			Offset: cfg.offset,
			Limit:  cfg.limit,
		})
		if err != nil {
			return nil, fmt.Errorf("recur: charge all on offering %s: list subscriptions: %w", offeringID, err)
		}

		result = &charge.BatchResult{
			ID:         id.NewBatchID(),
			OfferingID: offeringID,
			StartedAt:  now,
		}

		var events []event.Event
		for _, sub := range subs {
			if !sub.Active || !sub.Due(now, o.Period()) {
				result.Skipped++
				continue
			}

			if reason := e.precheck(ctx, o, sub); reason != nil {
				result.Failed++
				result.Failures = append(result.Failures, charge.Failure{Subscriber: sub.Subscriber, Reason: reason})
				e.logger.Debug("batch charge precheck failed",
					"offering_id", offeringID,
					"subscriber", sub.Subscriber,
					"error", reason,
				)
				continue
			}

			c, debited, err := e.debit(ctx, o, sub, now, result.ID)
			if err != nil {
				if debited {
					return events, fmt.Errorf("recur: charge all on offering %s aborted: %w", offeringID, err)
				}
				result.Failed++
				result.Failures = append(result.Failures, charge.Failure{Subscriber: sub.Subscriber, Reason: err})
				e.logger.Warn("batch charge debit failed after precheck",
					"offering_id", offeringID,
					"subscriber", sub.Subscriber,
					"error", err,
				)
				continue
			}

			result.Succeeded++
			result.Charges = append(result.Charges, c)
			events = append(events, chargedEvent(c))
		}

		result.CompletedAt = e.now()
		e.logger.Info("batch charge completed",
			"offering_id", offeringID,
			"batch_id", result.ID,
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)

		return append(events, &event.BatchChargeCompleted{
			Meta:         event.NewMeta(now),
			OfferingID:   offeringID,
			BatchID:      result.ID,
			SuccessCount: result.Succeeded,
			FailCount:    result.Failed,
		}), nil
	})
	return result, err
}

// precheck reads allowance and balance without debiting. A nil return does
// not guarantee the debit will succeed.
func (e *Engine) precheck(ctx context.Context, o *offering.Offering, sub *subscription.Subscription) error {
	var allowance types.Amount
	err := e.callout(o.ID, func() (err error) {
		allowance, err = e.tokens.Allowance(ctx, sub.Subscriber, e.spender)
		return err
	})
	if err != nil {
		return fmt.Errorf("recur: query allowance of %q: %w", sub.Subscriber, err)
	}
	if !allowance.Covers(o.AmountPerPeriod) {
		return &AllowanceError{Owner: sub.Subscriber, Required: o.AmountPerPeriod, Actual: allowance}
	}

	var balance types.Amount
	err = e.callout(o.ID, func() (err error) {
		balance, err = e.tokens.BalanceOf(ctx, sub.Subscriber)
		return err
	})
	if err != nil {
		return fmt.Errorf("recur: query balance of %q: %w", sub.Subscriber, err)
	}
	if !balance.Covers(o.AmountPerPeriod) {
		return &BalanceError{Owner: sub.Subscriber, Required: o.AmountPerPeriod, Actual: balance}
	}
	return nil
}

// debit moves one period's amount and then persists the charged state. The
// next state is computed before the transfer so nothing that could fail
// stands between a successful transfer and the write. debited reports
// whether funds moved; an error with debited set means the store is now
// behind the token ledger.
func (e *Engine) debit(ctx context.Context, o *offering.Offering, sub *subscription.Subscription, now time.Time, batchID id.BatchID) (c *charge.Charge, debited bool, err error) {
	period := o.Period()
	due := sub.NextChargeTime(period)

	next := *sub
	if err := next.ApplyCharge(now, o.AmountPerPeriod, period); err != nil {
		return nil, false, fmt.Errorf("recur: charge %q on offering %s: %w", sub.Subscriber, o.ID, err)
	}

	if err := e.callout(o.ID, func() error {
		return e.tokens.TransferFrom(ctx, e.spender, sub.Subscriber, o.Recipient, o.AmountPerPeriod)
	}); err != nil {
		return nil, false, &TransferError{From: sub.Subscriber, To: o.Recipient, Amount: o.AmountPerPeriod, Err: err}
	}

	if err := e.store.UpdateSubscription(ctx, &next); err != nil {
		e.logger.Error("subscription write failed after debit",
			"offering_id", o.ID,
			"subscriber", sub.Subscriber,
			"amount", o.AmountPerPeriod,
			"error", err,
		)
		return nil, true, fmt.Errorf("recur: record charge of %q on offering %s: %w", sub.Subscriber, o.ID, err)
	}
	*sub = next

	c = &charge.Charge{
		ID:         id.NewChargeID(),
		OfferingID: o.ID,
		Subscriber: sub.Subscriber,
		Recipient:  o.Recipient,
		Amount:     o.AmountPerPeriod,
		Sequence:   sub.ChargeCount,
		DueAt:      due,
		ChargedAt:  now,
		BatchID:    batchID,
	}
	if err := e.store.RecordCharge(ctx, c); err != nil {
		// The subscription is authoritative; a missing receipt only
		// affects history queries.
		e.logger.Error("charge receipt write failed",
			"offering_id", o.ID,
			"subscriber", sub.Subscriber,
			"charge_id", c.ID,
			"error", err,
		)
	}

	e.logger.Info("subscription charged",
		"offering_id", o.ID,
		"subscriber", sub.Subscriber,
		"amount", o.AmountPerPeriod,
		"charge_count", sub.ChargeCount,
	)
	return c, true, nil
}

func chargedEvent(c *charge.Charge) *event.SubscriptionCharged {
	return &event.SubscriptionCharged{
		Meta:       event.NewMeta(c.ChargedAt),
		OfferingID: c.OfferingID,
		Subscriber: c.Subscriber,
		Recipient:  c.Recipient,
		Amount:     c.Amount,
		ChargeID:   c.ID,
	}
}

// BatchError collects the per-subscriber failures of a batch into a
// MultiError. It returns nil when every attempted charge succeeded.
func BatchError(r *charge.BatchResult) error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	var m MultiError
	for _, f := range r.Failures {
		m.Add(fmt.Errorf("%s: %w", f.Subscriber, f.Reason))
	}
	return m
}
