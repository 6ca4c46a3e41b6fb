package recur

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/recur/event"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// MonthlyApproximation is the step SetMonthlySchedule uses for "next
// month". It is not calendar-aware.
const MonthlyApproximation = 30 * 24 * time.Hour

// ──────────────────────────────────────────────────
// Subscription Ledger
// ──────────────────────────────────────────────────

// Subscribe starts (or restarts) caller's subscription to an active
// offering. Caller must already have authorized the engine's spender for at
// least one period's amount. Lifetime metrics survive re-subscription; the
// next charge becomes due one full period from now.
func (e *Engine) Subscribe(ctx context.Context, caller types.Address, offeringID offering.ID) (*subscription.Subscription, error) {
	var result *subscription.Subscription
	err := e.mutate(ctx, "subscribe", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		o, err := e.getOffering(ctx, offeringID)
		if err != nil {
			return nil, err
		}
		if !o.Active {
			return nil, fmt.Errorf("%w: offering %s", ErrOfferingNotActive, offeringID)
		}
		if caller.IsZero() {
			return nil, &ValidationError{Field: "subscriber", Message: "must not be empty", Err: ErrInvalidAddress}
		}

		sub, err := e.loadSubscription(ctx, offeringID, caller)
		if err != nil {
			return nil, err
		}
		if sub.Active {
			return nil, fmt.Errorf("%w: %q on offering %s", ErrSubscriptionAlreadyActive, caller, offeringID)
		}
		if caller == o.Owner {
			return nil, fmt.Errorf("%w: %q owns offering %s", ErrOwnerCannotSubscribe, caller, offeringID)
		}
		if caller == o.Recipient {
			return nil, fmt.Errorf("%w: %q receives offering %s", ErrRecipientCannotSubscribe, caller, offeringID)
		}

		var allowance types.Amount
		err = e.callout(offeringID, func() (err error) {
			allowance, err = e.tokens.Allowance(ctx, caller, e.spender)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("recur: query allowance of %q: %w", caller, err)
		}
		if !allowance.Covers(o.AmountPerPeriod) {
			return nil, &AllowanceError{Owner: caller, Required: o.AmountPerPeriod, Actual: allowance}
		}

		first := !sub.Exists()
		if first {
			sub = &subscription.Subscription{
				OfferingID:        offeringID,
				Subscriber:        caller,
				FirstSubscribedAt: now,
				Position:          o.LifetimeSubscribers,
			}
			o.LifetimeSubscribers++
		}
		sub.Activate(now)
		o.SubscriberCount++
		o.Touch(now)

		if first {
			err = e.store.CreateSubscription(ctx, sub)
		} else {
			err = e.store.UpdateSubscription(ctx, sub)
		}
		if err != nil {
			return nil, fmt.Errorf("recur: subscribe %q to offering %s: %w", caller, offeringID, err)
		}
		if err := e.store.UpdateOffering(ctx, o); err != nil {
			return nil, fmt.Errorf("recur: subscribe %q to offering %s: update offering: %w", caller, offeringID, err)
		}

		e.logger.Info("user subscribed",
			"offering_id", offeringID,
			"subscriber", caller,
			"first", first,
			"charge_count", sub.ChargeCount,
		)

		result = sub
		return []event.Event{&event.UserSubscribed{
			Meta:       event.NewMeta(now),
			OfferingID: offeringID,
			Subscriber: caller,
		}}, nil
	})
	return result, err
}

// CancelSubscription ends caller's active subscription. Metrics and
// membership are untouched.
func (e *Engine) CancelSubscription(ctx context.Context, caller types.Address, offeringID offering.ID) error {
	return e.mutate(ctx, "cancel_subscription", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		sub, err := e.activeSubscription(ctx, offeringID, caller)
		if err != nil {
			return nil, err
		}
		o, err := e.getOffering(ctx, offeringID)
		if err != nil {
			return nil, err
		}

		sub.Deactivate(now)
		if o.SubscriberCount > 0 {
			o.SubscriberCount--
		}
		o.Touch(now)

		if err := e.store.UpdateSubscription(ctx, sub); err != nil {
			return nil, fmt.Errorf("recur: cancel subscription %q on offering %s: %w", caller, offeringID, err)
		}
		if err := e.store.UpdateOffering(ctx, o); err != nil {
			return nil, fmt.Errorf("recur: cancel subscription %q on offering %s: update offering: %w", caller, offeringID, err)
		}

		e.logger.Info("subscription canceled", "offering_id", offeringID, "subscriber", caller)
		return []event.Event{&event.SubscriptionCanceled{
			Meta:       event.NewMeta(now),
			OfferingID: offeringID,
			Subscriber: caller,
		}}, nil
	})
}

// SetTargetChargeTime fixes the next due instant of caller's subscription.
// The zero time clears the schedule; any other value must be in the future.
func (e *Engine) SetTargetChargeTime(ctx context.Context, caller types.Address, offeringID offering.ID, target time.Time) error {
	return e.mutate(ctx, "set_target_charge_time", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		sub, err := e.activeSubscription(ctx, offeringID, caller)
		if err != nil {
			return nil, err
		}
		if !target.IsZero() && !target.After(now) {
			return nil, &ValidationError{
				Field:   "target_charge_time",
				Message: fmt.Sprintf("%s is not after %s", target.Format(time.RFC3339), now.Format(time.RFC3339)),
				Err:     ErrInvalidTargetTime,
			}
		}
		return e.storeTarget(ctx, sub, target, now)
	})
}

// SetMonthlySchedule targets the next charge at dayOfMonth (1-31) and
// hourUTC (0-23). The occurrence is this month's day and hour, normalized by
// time.Date when the month is shorter, pushed forward by
// MonthlyApproximation if it is not in the future. Later charges roll the
// target forward by the offering period, not by calendar months.
func (e *Engine) SetMonthlySchedule(ctx context.Context, caller types.Address, offeringID offering.ID, dayOfMonth, hourUTC int) (time.Time, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return time.Time{}, &ValidationError{Field: "day_of_month", Message: fmt.Sprintf("%d outside [1, 31]", dayOfMonth), Err: ErrInvalidSchedule}
	}
	if hourUTC < 0 || hourUTC > 23 {
		return time.Time{}, &ValidationError{Field: "hour_utc", Message: fmt.Sprintf("%d outside [0, 23]", hourUTC), Err: ErrInvalidSchedule}
	}

	var target time.Time
	err := e.mutate(ctx, "set_monthly_schedule", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		sub, err := e.activeSubscription(ctx, offeringID, caller)
		if err != nil {
			return nil, err
		}
		target = NextMonthlyOccurrence(now, dayOfMonth, hourUTC)
		return e.storeTarget(ctx, sub, target, now)
	})
	if err != nil {
		return time.Time{}, err
	}
	return target, nil
}

// NextMonthlyOccurrence computes the approximate next (day, hour) instant
// strictly after now.
func NextMonthlyOccurrence(now time.Time, dayOfMonth, hourUTC int) time.Time {
	now = now.UTC()
	candidate := time.Date(now.Year(), now.Month(), dayOfMonth, hourUTC, 0, 0, 0, time.UTC)
	if !candidate.After(now) {
		candidate = candidate.Add(MonthlyApproximation)
	}
	return candidate
}

func (e *Engine) storeTarget(ctx context.Context, sub *subscription.Subscription, target, now time.Time) ([]event.Event, error) {
	sub.TargetChargeTime = target
	sub.UpdatedAt = now
	if err := e.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("recur: set target for %q on offering %s: %w", sub.Subscriber, sub.OfferingID, err)
	}

	e.logger.Debug("target charge time updated",
		"offering_id", sub.OfferingID,
		"subscriber", sub.Subscriber,
		"target", target,
	)
	return []event.Event{&event.TargetChargeTimeUpdated{
		Meta:       event.NewMeta(now),
		OfferingID: sub.OfferingID,
		Subscriber: sub.Subscriber,
		Target:     target,
	}}, nil
}

// loadSubscription returns the pair's record, or a zero-valued record when
// the pair never subscribed.
func (e *Engine) loadSubscription(ctx context.Context, offeringID offering.ID, subscriber types.Address) (*subscription.Subscription, error) {
	sub, err := e.store.GetSubscription(ctx, offeringID, subscriber)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return &subscription.Subscription{OfferingID: offeringID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recur: load subscription %q on offering %s: %w", subscriber, offeringID, err)
	}
	return sub, nil
}

// activeSubscription loads the pair's record and requires it to be active.
func (e *Engine) activeSubscription(ctx context.Context, offeringID offering.ID, subscriber types.Address) (*subscription.Subscription, error) {
	sub, err := e.loadSubscription(ctx, offeringID, subscriber)
	if err != nil {
		return nil, err
	}
	if !sub.Active {
		return nil, fmt.Errorf("%w: %q on offering %s (%s)", ErrSubscriptionNotActive, subscriber, offeringID, sub.State())
	}
	return sub, nil
}
