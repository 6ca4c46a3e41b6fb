// Package memory provides a map-backed store for tests and development.
// Records are copied on the way in and out so callers never share state
// with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/recur"
	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type pairKey struct {
	offeringID offering.ID
	subscriber types.Address
}

type Store struct {
	mu sync.RWMutex

	// Offering storage
	lastOfferingID offering.ID
	offerings      map[offering.ID]*offering.Offering

	// Subscription storage plus the two append-only membership indexes
	subscriptions map[pairKey]*subscription.Subscription
	byOffering    map[offering.ID][]types.Address
	bySubscriber  map[types.Address][]offering.ID

	// Charge receipts in insertion order
	charges    []*charge.Charge
	chargeByID map[string]*charge.Charge

	closed bool
}

func New() *Store {
	return &Store{
		offerings:     make(map[offering.ID]*offering.Offering),
		subscriptions: make(map[pairKey]*subscription.Subscription),
		byOffering:    make(map[offering.ID][]types.Address),
		bySubscriber:  make(map[types.Address][]offering.ID),
		chargeByID:    make(map[string]*charge.Charge),
	}
}

// Offering Store implementation

func (s *Store) NextOfferingID(_ context.Context) (offering.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastOfferingID++
	return s.lastOfferingID, nil
}

func (s *Store) CreateOffering(_ context.Context, o *offering.Offering) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.offerings[o.ID]; exists {
		return fmt.Errorf("%w: offering %s", recur.ErrAlreadyExists, o.ID)
	}
	cp := *o
	s.offerings[o.ID] = &cp
	if o.ID > s.lastOfferingID {
		s.lastOfferingID = o.ID
	}
	return nil
}

func (s *Store) GetOffering(_ context.Context, offeringID offering.ID) (*offering.Offering, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o, ok := s.offerings[offeringID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, recur.ErrOfferingNotFound
}

func (s *Store) UpdateOffering(_ context.Context, o *offering.Offering) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.offerings[o.ID]; !exists {
		return recur.ErrOfferingNotFound
	}
	cp := *o
	s.offerings[o.ID] = &cp
	return nil
}

func (s *Store) ListOfferings(_ context.Context, opts offering.ListOpts) ([]*offering.Offering, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*offering.Offering
	for _, o := range s.offerings {
		if !opts.Owner.IsZero() && o.Owner != opts.Owner {
			continue
		}
		if opts.ActiveOnly && !o.Active {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return page(result, opts.Offset, opts.Limit), nil
}

// Subscription Store implementation

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{sub.OfferingID, sub.Subscriber}
	if _, exists := s.subscriptions[key]; exists {
		return fmt.Errorf("%w: subscription %q on offering %s", recur.ErrAlreadyExists, sub.Subscriber, sub.OfferingID)
	}
	cp := *sub
	s.subscriptions[key] = &cp
	s.byOffering[sub.OfferingID] = append(s.byOffering[sub.OfferingID], sub.Subscriber)
	s.bySubscriber[sub.Subscriber] = append(s.bySubscriber[sub.Subscriber], sub.OfferingID)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, offeringID offering.ID, subscriber types.Address) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[pairKey{offeringID, subscriber}]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, recur.ErrSubscriptionNotFound
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{sub.OfferingID, sub.Subscriber}
	if _, exists := s.subscriptions[key]; !exists {
		return recur.ErrSubscriptionNotFound
	}
	cp := *sub
	s.subscriptions[key] = &cp
	return nil
}

func (s *Store) ListOfferingSubscriptions(_ context.Context, offeringID offering.ID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, addr := range s.byOffering[offeringID] {
		sub := s.subscriptions[pairKey{offeringID, addr}]
		if opts.ActiveOnly && !sub.Active {
			continue
		}
		cp := *sub
		result = append(result, &cp)
	}
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListSubscriberSubscriptions(_ context.Context, subscriber types.Address, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, offeringID := range s.bySubscriber[subscriber] {
		sub := s.subscriptions[pairKey{offeringID, subscriber}]
		if opts.ActiveOnly && !sub.Active {
			continue
		}
		cp := *sub
		result = append(result, &cp)
	}
	return page(result, opts.Offset, opts.Limit), nil
}

// Charge Store implementation

func (s *Store) RecordCharge(_ context.Context, c *charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chargeByID[c.ID.String()]; exists {
		return fmt.Errorf("%w: charge %s", recur.ErrAlreadyExists, c.ID)
	}
	cp := *c
	s.charges = append(s.charges, &cp)
	s.chargeByID[c.ID.String()] = &cp
	return nil
}

func (s *Store) GetCharge(_ context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.chargeByID[chargeID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, recur.ErrChargeNotFound
}

func (s *Store) ListCharges(_ context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*charge.Charge
	for i := len(s.charges) - 1; i >= 0; i-- {
		c := s.charges[i]
		if opts.OfferingID != 0 && c.OfferingID != opts.OfferingID {
			continue
		}
		if !opts.Subscriber.IsZero() && c.Subscriber != opts.Subscriber {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	return page(result, opts.Offset, opts.Limit), nil
}

// Lifecycle methods

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return recur.ErrStoreNotReady
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
