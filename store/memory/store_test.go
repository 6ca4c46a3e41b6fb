package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/recur"
	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

func TestOfferingIDsAreSequential(t *testing.T) {
	ctx := context.Background()
	s := New()

	for want := offering.ID(1); want <= 3; want++ {
		got, err := s.NextOfferingID(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	}
}

func TestOfferingCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	o := &offering.Offering{ID: 1, Owner: "owner", Active: true}
	if err := s.CreateOffering(ctx, o); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateOffering(ctx, o); !errors.Is(err, recur.ErrAlreadyExists) {
		t.Errorf("duplicate create: got %v", err)
	}

	o.Active = false
	got, err := s.GetOffering(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Active {
		t.Error("caller mutation leaked into the store")
	}

	if _, err := s.GetOffering(ctx, 2); !errors.Is(err, recur.ErrOfferingNotFound) {
		t.Errorf("missing offering: got %v", err)
	}
	if err := s.UpdateOffering(ctx, &offering.Offering{ID: 2}); !errors.Is(err, recur.ErrOfferingNotFound) {
		t.Errorf("update missing offering: got %v", err)
	}
}

func TestListOfferings(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i, owner := range []types.Address{"a", "b", "a", "a"} {
		o := &offering.Offering{ID: offering.ID(i + 1), Owner: owner, Active: i != 2}
		if err := s.CreateOffering(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts offering.ListOpts
		want []offering.ID
	}{
		{"all", offering.ListOpts{}, []offering.ID{1, 2, 3, 4}},
		{"by owner", offering.ListOpts{Owner: "a"}, []offering.ID{1, 3, 4}},
		{"active by owner", offering.ListOpts{Owner: "a", ActiveOnly: true}, []offering.ID{1, 4}},
		{"paged", offering.ListOpts{Offset: 1, Limit: 2}, []offering.ID{2, 3}},
		{"offset past end", offering.ListOpts{Offset: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListOfferings(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d offerings, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("index %d: got %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestMembershipIndexes(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	pairs := []struct {
		offeringID offering.ID
		subscriber types.Address
	}{
		{1, "alice"}, {1, "bob"}, {2, "alice"}, {1, "carol"},
	}
	for i, p := range pairs {
		sub := &subscription.Subscription{
			OfferingID:        p.offeringID,
			Subscriber:        p.subscriber,
			Active:            true,
			FirstSubscribedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateSubscription(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}

	bob, err := s.GetSubscription(ctx, 1, "bob")
	if err != nil {
		t.Fatal(err)
	}
	bob.Active = false
	if err := s.UpdateSubscription(ctx, bob); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListOfferingSubscriptions(ctx, 1, subscription.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if got := addresses(all); !equal(got, []types.Address{"alice", "bob", "carol"}) {
		t.Errorf("offering index: got %v", got)
	}

	active, err := s.ListOfferingSubscriptions(ctx, 1, subscription.ListOpts{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := addresses(active); !equal(got, []types.Address{"alice", "carol"}) {
		t.Errorf("active offering index: got %v", got)
	}

	mine, err := s.ListSubscriberSubscriptions(ctx, "alice", subscription.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[0].OfferingID != 1 || mine[1].OfferingID != 2 {
		t.Errorf("subscriber index: got %+v", mine)
	}

	if err := s.CreateSubscription(ctx, &subscription.Subscription{OfferingID: 1, Subscriber: "alice"}); !errors.Is(err, recur.ErrAlreadyExists) {
		t.Errorf("duplicate subscription: got %v", err)
	}
	if _, err := s.GetSubscription(ctx, 2, "bob"); !errors.Is(err, recur.ErrSubscriptionNotFound) {
		t.Errorf("missing subscription: got %v", err)
	}
}

func TestChargesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	var ids []id.ChargeID
	for i, who := range []types.Address{"alice", "bob", "alice"} {
		c := &charge.Charge{ID: id.NewChargeID(), OfferingID: 1, Subscriber: who, Sequence: uint64(i + 1)}
		if err := s.RecordCharge(ctx, c); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, c.ID)
	}

	got, err := s.ListCharges(ctx, charge.ListOpts{Subscriber: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID.String() != ids[2].String() || got[1].ID.String() != ids[0].String() {
		t.Errorf("alice's charges: got %+v", got)
	}

	if _, err := s.GetCharge(ctx, ids[1]); err != nil {
		t.Errorf("GetCharge: %v", err)
	}
	if _, err := s.GetCharge(ctx, id.NewChargeID()); !errors.Is(err, recur.ErrChargeNotFound) {
		t.Errorf("missing charge: got %v", err)
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); !errors.Is(err, recur.ErrStoreNotReady) {
		t.Errorf("Ping after Close: got %v", err)
	}
}

func addresses(subs []*subscription.Subscription) []types.Address {
	out := make([]types.Address, len(subs))
	for i, s := range subs {
		out[i] = s.Subscriber
	}
	return out
}

func equal(a, b []types.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
