package store

import (
	"context"

	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// Store is the unified storage interface for all recur records. Every
// driver (memory, postgres, sqlite, mongo) implements it directly.
type Store interface {
	// Offering methods
	NextOfferingID(ctx context.Context) (offering.ID, error)
	CreateOffering(ctx context.Context, o *offering.Offering) error
	GetOffering(ctx context.Context, offeringID offering.ID) (*offering.Offering, error)
	UpdateOffering(ctx context.Context, o *offering.Offering) error
	ListOfferings(ctx context.Context, opts offering.ListOpts) ([]*offering.Offering, error)

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, offeringID offering.ID, subscriber types.Address) (*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	// ListOfferingSubscriptions orders by Position.
	ListOfferingSubscriptions(ctx context.Context, offeringID offering.ID, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	// ListSubscriberSubscriptions orders by FirstSubscribedAt, then OfferingID.
	ListSubscriberSubscriptions(ctx context.Context, subscriber types.Address, opts subscription.ListOpts) ([]*subscription.Subscription, error)

	// Charge methods
	RecordCharge(ctx context.Context, c *charge.Charge) error
	GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error)
	ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
