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

// ──────────────────────────────────────────────────
// Offering Registry
// ──────────────────────────────────────────────────

// CreateOffering publishes a new offering owned by caller and returns it
// with its sequential id allocated.
func (e *Engine) CreateOffering(ctx context.Context, caller types.Address, p offering.Params) (*offering.Offering, error) {
	if err := e.enter(ctx, "create_offering"); err != nil {
		return nil, err
	}
	if err := validateOffering(caller, p); err != nil {
		return nil, err
	}

	offeringID, err := e.store.NextOfferingID(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur: allocate offering id: %w", err)
	}

	now := e.now()
	o := &offering.Offering{
		Entity:          types.NewEntity(now),
		ID:              offeringID,
		ServiceID:       p.ServiceID,
		Owner:           caller,
		Recipient:       p.Recipient,
		AmountPerPeriod: p.AmountPerPeriod,
		PeriodSeconds:   p.PeriodSeconds,
		Active:          true,
	}

	if err := e.store.CreateOffering(ctx, o); err != nil {
		return nil, fmt.Errorf("recur: create offering: %w", err)
	}

	e.logger.Info("offering created",
		"offering_id", o.ID,
		"service_id", o.ServiceID,
		"owner", o.Owner,
		"amount", o.AmountPerPeriod,
		"period_seconds", o.PeriodSeconds,
	)

	e.emit(ctx, &event.OfferingCreated{
		Meta:          event.NewMeta(now),
		OfferingID:    o.ID,
		ServiceID:     o.ServiceID,
		Owner:         o.Owner,
		Recipient:     o.Recipient,
		Amount:        o.AmountPerPeriod,
		PeriodSeconds: o.PeriodSeconds,
	})
	return o, nil
}

// PauseOffering stops new subscriptions and charges on an active offering.
func (e *Engine) PauseOffering(ctx context.Context, caller types.Address, offeringID offering.ID) error {
	return e.mutate(ctx, "pause_offering", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		o, err := e.adminOffering(ctx, "pause_offering", caller, offeringID)
		if err != nil {
			return nil, err
		}
		if !o.Active {
			return nil, fmt.Errorf("%w: offering %s", ErrOfferingNotActive, offeringID)
		}

		o.Active = false
		o.Touch(now)
		if err := e.store.UpdateOffering(ctx, o); err != nil {
			return nil, fmt.Errorf("recur: pause offering %s: %w", offeringID, err)
		}

		e.logger.Info("offering paused", "offering_id", offeringID)
		return []event.Event{&event.OfferingPaused{Meta: event.NewMeta(now), OfferingID: offeringID}}, nil
	})
}

// UnpauseOffering reactivates an offering. It is a no-op on an offering
// that is already active.
func (e *Engine) UnpauseOffering(ctx context.Context, caller types.Address, offeringID offering.ID) error {
	return e.mutate(ctx, "unpause_offering", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		o, err := e.adminOffering(ctx, "unpause_offering", caller, offeringID)
		if err != nil {
			return nil, err
		}
		if o.Active {
			return nil, nil
		}

		o.Active = true
		o.Touch(now)
		if err := e.store.UpdateOffering(ctx, o); err != nil {
			return nil, fmt.Errorf("recur: unpause offering %s: %w", offeringID, err)
		}

		e.logger.Info("offering unpaused", "offering_id", offeringID)
		return []event.Event{&event.OfferingUnpaused{Meta: event.NewMeta(now), OfferingID: offeringID}}, nil
	})
}

// CancelOffering deactivates the offering and cancels every active
// subscription under it. It returns the number of subscriptions canceled.
// Cost is linear in the offering's all-time subscriber count.
func (e *Engine) CancelOffering(ctx context.Context, caller types.Address, offeringID offering.ID) (int, error) {
	var canceled int
	err := e.mutate(ctx, "cancel_offering", offeringID, func(ctx context.Context, now time.Time) ([]event.Event, error) {
		o, err := e.adminOffering(ctx, "cancel_offering", caller, offeringID)
		if err != nil {
			return nil, err
		}

		subs, err := e.store.ListOfferingSubscriptions(ctx, offeringID, subscription.ListOpts{})
		if err != nil {
			return nil, fmt.Errorf("recur: cancel offering %s: list subscriptions: %w", offeringID, err)
		}

		var events []event.Event
		for _, sub := range subs {
			if !sub.Active {
				continue
			}
			sub.Deactivate(now)
			if err := e.store.UpdateSubscription(ctx, sub); err != nil {
				return events, fmt.Errorf("recur: cancel offering %s: cancel %q: %w", offeringID, sub.Subscriber, err)
			}
			canceled++
			events = append(events, &event.SubscriptionCanceled{
				Meta:       event.NewMeta(now),
				OfferingID: offeringID,
				Subscriber: sub.Subscriber,
			})
		}

		o.Active = false
		o.SubscriberCount = 0
		o.Touch(now)
		if err := e.store.UpdateOffering(ctx, o); err != nil {
			return events, fmt.Errorf("recur: cancel offering %s: %w", offeringID, err)
		}

		e.logger.Info("offering canceled",
			"offering_id", offeringID,
			"canceled_subscriptions", canceled,
		)
		return append(events, &event.OfferingCanceled{
			Meta:          event.NewMeta(now),
			OfferingID:    offeringID,
			Owner:         o.Owner,
			CanceledCount: canceled,
		}), nil
	})
	return canceled, err
}

// adminOffering loads an offering and checks caller owns it.
func (e *Engine) adminOffering(ctx context.Context, op string, caller types.Address, offeringID offering.ID) (*offering.Offering, error) {
	o, err := e.getOffering(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if !CanAdminister(caller, o) {
		return nil, &CallerError{Op: op, Caller: caller, OfferingID: offeringID}
	}
	return o, nil
}

// getOffering loads an offering, mapping absence to ErrOfferingNotFound.
func (e *Engine) getOffering(ctx context.Context, offeringID offering.ID) (*offering.Offering, error) {
	o, err := e.store.GetOffering(ctx, offeringID)
	if errors.Is(err, ErrOfferingNotFound) || (err == nil && !o.Exists()) {
		return nil, fmt.Errorf("%w: id %s", ErrOfferingNotFound, offeringID)
	}
	if err != nil {
		return nil, fmt.Errorf("recur: load offering %s: %w", offeringID, err)
	}
	return o, nil
}

// ──────────────────────────────────────────────────
// Validation
// ──────────────────────────────────────────────────

func validateOffering(owner types.Address, p offering.Params) error {
	switch {
	case owner.IsZero():
		return &ValidationError{Field: "owner", Message: "must not be empty", Err: ErrInvalidAddress}
	case p.ServiceID == "":
		return &ValidationError{Field: "service_id", Message: "must not be empty", Err: ErrInvalidServiceID}
	case len(p.ServiceID) > offering.MaxServiceIDLength:
		return &ValidationError{
			Field:   "service_id",
			Message: fmt.Sprintf("%d bytes exceeds %d", len(p.ServiceID), offering.MaxServiceIDLength),
			Err:     ErrInvalidServiceID,
		}
	case p.Recipient.IsZero():
		return &ValidationError{Field: "recipient", Message: "must not be empty", Err: ErrInvalidAddress}
	case p.AmountPerPeriod < offering.MinAmountPerPeriod || p.AmountPerPeriod > offering.MaxAmountPerPeriod:
		return &ValidationError{
			Field:   "amount_per_period",
			Message: fmt.Sprintf("%d outside [%d, %d]", p.AmountPerPeriod, offering.MinAmountPerPeriod, offering.MaxAmountPerPeriod),
			Err:     ErrInvalidAmount,
		}
	case p.PeriodSeconds < offering.MinPeriodSeconds || p.PeriodSeconds > offering.MaxPeriodSeconds:
		return &ValidationError{
			Field:   "period_seconds",
			Message: fmt.Sprintf("%d outside [%d, %d]", p.PeriodSeconds, offering.MinPeriodSeconds, offering.MaxPeriodSeconds),
			Err:     ErrInvalidPeriod,
		}
	}
	return nil
}
