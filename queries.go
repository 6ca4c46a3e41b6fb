package recur

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetOffering returns the offering or ErrOfferingNotFound.
func (e *Engine) GetOffering(ctx context.Context, offeringID offering.ID) (*offering.Offering, error) {
	return e.getOffering(ctx, offeringID)
}

// ListOfferings pages through offerings ordered by id.
func (e *Engine) ListOfferings(ctx context.Context, opts offering.ListOpts) ([]*offering.Offering, error) {
	return e.store.ListOfferings(ctx, opts)
}

// GetUserSubscription returns the pair's subscription. A pair that never
// subscribed yields a zero record with State() == StateNeverSubscribed,
// not an error.
func (e *Engine) GetUserSubscription(ctx context.Context, offeringID offering.ID, subscriber types.Address) (*subscription.Subscription, error) {
	return e.loadSubscription(ctx, offeringID, subscriber)
}

// GetUserOfferingIDs lists every offering subscriber has ever subscribed
// to, in first-subscription order. Canceled subscriptions are included.
func (e *Engine) GetUserOfferingIDs(ctx context.Context, subscriber types.Address) ([]offering.ID, error) {
	subs, err := e.store.ListSubscriberSubscriptions(ctx, subscriber, subscription.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("recur: list offerings of %q: %w", subscriber, err)
	}
	ids := make([]offering.ID, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.OfferingID)
	}
	return ids, nil
}

// GetOfferingSubscribers lists every address that has ever subscribed to
// the offering, in first-subscription order. Canceled subscribers are
// included.
func (e *Engine) GetOfferingSubscribers(ctx context.Context, offeringID offering.ID) ([]types.Address, error) {
	subs, err := e.store.ListOfferingSubscriptions(ctx, offeringID, subscription.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("recur: list subscribers of offering %s: %w", offeringID, err)
	}
	addrs := make([]types.Address, 0, len(subs))
	for _, s := range subs {
		addrs = append(addrs, s.Subscriber)
	}
	return addrs, nil
}

// GetOfferingSubscriberCount returns the number of currently active
// subscriptions.
func (e *Engine) GetOfferingSubscriberCount(ctx context.Context, offeringID offering.ID) (uint64, error) {
	o, err := e.getOffering(ctx, offeringID)
	if err != nil {
		return 0, err
	}
	return o.SubscriberCount, nil
}

// CanCharge reports whether Charge would pass its state and timing checks
// now. It never fails; store errors are logged and yield false. Caller
// identity and the token ledger are not consulted.
func (e *Engine) CanCharge(ctx context.Context, offeringID offering.ID, subscriber types.Address) bool {
	o, sub, ok := e.chargeable(ctx, offeringID, subscriber)
	if !ok {
		return false
	}
	return sub.Due(e.now(), o.Period())
}

func (e *Engine) chargeable(ctx context.Context, offeringID offering.ID, subscriber types.Address) (*offering.Offering, *subscription.Subscription, bool) {
	o, err := e.getOffering(ctx, offeringID)
	if err != nil {
		if !IsNotFound(err) {
			e.logger.Warn("can charge lookup failed", "offering_id", offeringID, "error", err)
		}
		return nil, nil, false
	}
	if !o.Active {
		return nil, nil, false
	}
	sub, err := e.loadSubscription(ctx, offeringID, subscriber)
	if err != nil {
		e.logger.Warn("can charge lookup failed", "offering_id", offeringID, "subscriber", subscriber, "error", err)
		return nil, nil, false
	}
	if !sub.Active {
		return nil, nil, false
	}
	return o, sub, true
}

// TimeUntilNextCharge returns how long until the subscription may be
// charged, or zero if it already may.
func (e *Engine) TimeUntilNextCharge(ctx context.Context, offeringID offering.ID, subscriber types.Address) (time.Duration, error) {
	o, sub, err := e.activePair(ctx, offeringID, subscriber)
	if err != nil {
		return 0, err
	}
	return sub.Remaining(e.now(), o.Period()), nil
}

// NextChargeTime returns the earliest instant the subscription may be
// charged.
func (e *Engine) NextChargeTime(ctx context.Context, offeringID offering.ID, subscriber types.Address) (time.Time, error) {
	o, sub, err := e.activePair(ctx, offeringID, subscriber)
	if err != nil {
		return time.Time{}, err
	}
	return sub.NextChargeTime(o.Period()), nil
}

func (e *Engine) activePair(ctx context.Context, offeringID offering.ID, subscriber types.Address) (*offering.Offering, *subscription.Subscription, error) {
	o, err := e.getOffering(ctx, offeringID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := e.activeSubscription(ctx, offeringID, subscriber)
	if err != nil {
		return nil, nil, err
	}
	return o, sub, nil
}

// GetChargeableSubscribers returns the subscribers ChargeAll would attempt
// right now, in membership order. An inactive offering has none.
func (e *Engine) GetChargeableSubscribers(ctx context.Context, offeringID offering.ID) ([]types.Address, error) {
	o, err := e.getOffering(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if !o.Active {
		return []types.Address{}, nil
	}

	subs, err := e.store.ListOfferingSubscriptions(ctx, offeringID, subscription.ListOpts{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("recur: list subscribers of offering %s: %w", offeringID, err)
	}

	now := e.now()
	addrs := make([]types.Address, 0, len(subs))
	for _, s := range subs {
		if s.Active && s.Due(now, o.Period()) {
			addrs = append(addrs, s.Subscriber)
		}
	}
	return addrs, nil
}

// GetCharge returns one charge receipt.
func (e *Engine) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	return e.store.GetCharge(ctx, chargeID)
}

// ListCharges pages through charge receipts, newest first.
func (e *Engine) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	return e.store.ListCharges(ctx, opts)
}
