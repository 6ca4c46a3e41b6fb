package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// compile-time interface check
var _ recurstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("recur/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("recur/sqlite: migration failed: %w", err)
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

func (s *Store) NextOfferingID(ctx context.Context) (offering.ID, error) {
	var next int64
	err := s.sdb.NewRaw(`
		UPDATE recur_counters SET value = value + 1 WHERE name = 'offering' RETURNING value
	`).Scan(ctx, &next)
	if err != nil {
		return 0, err
	}
	return offering.ID(next), nil
}

func (s *Store) CreateOffering(ctx context.Context, o *offering.Offering) error {
	_, err := s.sdb.NewInsert(toOfferingModel(o)).Exec(ctx)
	return err
}

func (s *Store) GetOffering(ctx context.Context, offeringID offering.ID) (*offering.Offering, error) {
	m := new(offeringModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", int64(offeringID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrOfferingNotFound
		}
		return nil, err
	}
	return fromOfferingModel(m), nil
}

func (s *Store) UpdateOffering(ctx context.Context, o *offering.Offering) error {
	res, err := s.sdb.NewUpdate(toOfferingModel(o)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrOfferingNotFound
	}
	return nil
}

func (s *Store) ListOfferings(ctx context.Context, opts offering.ListOpts) ([]*offering.Offering, error) {
	var models []offeringModel
	q := s.sdb.NewSelect(&models)

	if !opts.Owner.IsZero() {
		q = q.Where("owner = ?", string(opts.Owner))
	}
	if opts.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*offering.Offering, len(models))
	for i := range models {
		result[i] = fromOfferingModel(&models[i])
	}
	return result, nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.sdb.NewInsert(toSubscriptionModel(sub)).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, offeringID offering.ID, subscriber types.Address) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", subscriptionKey(offeringID, subscriber)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m), nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	res, err := s.sdb.NewUpdate(toSubscriptionModel(sub)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) ListOfferingSubscriptions(ctx context.Context, offeringID offering.ID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.sdb.NewSelect(&models).Where("offering_id = ?", int64(offeringID))
	if opts.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("position ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromSubscriptionModels(models), nil
}

func (s *Store) ListSubscriberSubscriptions(ctx context.Context, subscriber types.Address, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.sdb.NewSelect(&models).Where("subscriber = ?", string(subscriber))
	if opts.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("first_subscribed_at ASC, offering_id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromSubscriptionModels(models), nil
}

// ==================== Charge Store ====================

func (s *Store) RecordCharge(ctx context.Context, c *charge.Charge) error {
	_, err := s.sdb.NewInsert(toChargeModel(c)).Exec(ctx)
	return err
}

func (s *Store) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	m := new(chargeModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", chargeID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrChargeNotFound
		}
		return nil, err
	}
	return fromChargeModel(m)
}

func (s *Store) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	var models []chargeModel
	q := s.sdb.NewSelect(&models)

	if opts.OfferingID != 0 {
		q = q.Where("offering_id = ?", int64(opts.OfferingID))
	}
	if !opts.Subscriber.IsZero() {
		q = q.Where("subscriber = ?", string(opts.Subscriber))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("charged_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
