package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// Collection name constants.
const (
	colOfferings     = "recur_offerings"
	colSubscriptions = "recur_subscriptions"
	colCharges       = "recur_charges"
	colCounters      = "recur_counters"
)

const offeringCounter = "offering"

// compile-time interface check
var _ recurstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all recur collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}

		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("recur/mongo: migrate %s indexes: %w", col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Offering Store ====================

// NextOfferingID increments the offering counter document, creating it on
// first use.
func (s *Store) NextOfferingID(ctx context.Context) (offering.ID, error) {
	var c counterModel
	err := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": offeringCounter},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("recur/mongo: next offering id: %w", err)
	}
	return offering.ID(c.Value), nil
}

func (s *Store) CreateOffering(ctx context.Context, o *offering.Offering) error {
	_, err := s.mdb.NewInsert(toOfferingModel(o)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("recur/mongo: offering %s: %w", o.ID, recur.ErrAlreadyExists)
		}
		return fmt.Errorf("recur/mongo: create offering: %w", err)
	}
	return nil
}

func (s *Store) GetOffering(ctx context.Context, offeringID offering.ID) (*offering.Offering, error) {
	var m offeringModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(offeringID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrOfferingNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get offering: %w", err)
	}
	return fromOfferingModel(&m), nil
}

func (s *Store) UpdateOffering(ctx context.Context, o *offering.Offering) error {
	m := toOfferingModel(o)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: update offering: %w", err)
	}
	if res.MatchedCount() == 0 {
		return recur.ErrOfferingNotFound
	}
	return nil
}

func (s *Store) ListOfferings(ctx context.Context, opts offering.ListOpts) ([]*offering.Offering, error) {
	var models []offeringModel

	filter := bson.M{}
	if !opts.Owner.IsZero() {
		filter["owner"] = string(opts.Owner)
	}
	if opts.ActiveOnly {
		filter["active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("recur/mongo: list offerings: %w", err)
	}

	result := make([]*offering.Offering, len(models))
	for i := range models {
		result[i] = fromOfferingModel(&models[i])
	}
	return result, nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.mdb.NewInsert(toSubscriptionModel(sub)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("recur/mongo: subscription %s/%s: %w", sub.OfferingID, sub.Subscriber, recur.ErrAlreadyExists)
		}
		return fmt.Errorf("recur/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, offeringID offering.ID, subscriber types.Address) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subscriptionKey(offeringID, subscriber)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m), nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return recur.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) ListOfferingSubscriptions(ctx context.Context, offeringID offering.ID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	filter := bson.M{"offering_id": int64(offeringID)}
	return s.listSubscriptions(ctx, filter, bson.D{{Key: "position", Value: 1}}, opts)
}

func (s *Store) ListSubscriberSubscriptions(ctx context.Context, subscriber types.Address, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	filter := bson.M{"subscriber": string(subscriber)}
	sort := bson.D{{Key: "first_subscribed_at", Value: 1}, {Key: "offering_id", Value: 1}}
	return s.listSubscriptions(ctx, filter, sort, opts)
}

func (s *Store) listSubscriptions(ctx context.Context, filter bson.M, sort bson.D, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	if opts.ActiveOnly {
		filter["active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(sort)

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("recur/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		result[i] = fromSubscriptionModel(&models[i])
	}
	return result, nil
}

// ==================== Charge Store ====================

func (s *Store) RecordCharge(ctx context.Context, c *charge.Charge) error {
	_, err := s.mdb.NewInsert(toChargeModel(c)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: record charge: %w", err)
	}
	return nil
}

func (s *Store) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	var m chargeModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": chargeID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrChargeNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get charge: %w", err)
	}
	return fromChargeModel(&m)
}

func (s *Store) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	var models []chargeModel

	filter := bson.M{}
	if opts.OfferingID != 0 {
		filter["offering_id"] = int64(opts.OfferingID)
	}
	if !opts.Subscriber.IsZero() {
		filter["subscriber"] = string(opts.Subscriber)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "charged_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("recur/mongo: list charges: %w", err)
	}

	result := make([]*charge.Charge, len(models))
	for i := range models {
		c, err := fromChargeModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all recur collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colOfferings: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "active", Value: 1}}},
		},
		colSubscriptions: {
			{
				Keys:    bson.D{{Key: "offering_id", Value: 1}, {Key: "subscriber", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "offering_id", Value: 1}, {Key: "position", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "first_subscribed_at", Value: 1}, {Key: "offering_id", Value: 1}}},
		},
		colCharges: {
			{Keys: bson.D{{Key: "offering_id", Value: 1}, {Key: "charged_at", Value: -1}}},
			{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "charged_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "batch_id", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
	}
}
