package mongo

import (
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// ==================== Offering models ====================

type offeringModel struct {
	grove.BaseModel `grove:"table:recur_offerings"`

	ID                  int64     `grove:"id,pk"                bson:"_id"`
	ServiceID           string    `grove:"service_id"           bson:"service_id"`
	Owner               string    `grove:"owner"                bson:"owner"`
	Recipient           string    `grove:"recipient"            bson:"recipient"`
	AmountPerPeriod     int64     `grove:"amount_per_period"    bson:"amount_per_period"`
	PeriodSeconds       int64     `grove:"period_seconds"       bson:"period_seconds"`
	Active              bool      `grove:"active"               bson:"active"`
	SubscriberCount     int64     `grove:"subscriber_count"     bson:"subscriber_count"`
	LifetimeSubscribers int64     `grove:"lifetime_subscribers" bson:"lifetime_subscribers"`
	CreatedAt           time.Time `grove:"created_at"           bson:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"           bson:"updated_at"`
}

func toOfferingModel(o *offering.Offering) *offeringModel {
	return &offeringModel{
		ID:                  int64(o.ID),
		ServiceID:           o.ServiceID,
		Owner:               string(o.Owner),
		Recipient:           string(o.Recipient),
		AmountPerPeriod:     int64(o.AmountPerPeriod),
		PeriodSeconds:       o.PeriodSeconds,
		Active:              o.Active,
		SubscriberCount:     int64(o.SubscriberCount),
		LifetimeSubscribers: int64(o.LifetimeSubscribers),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func fromOfferingModel(m *offeringModel) *offering.Offering {
	return &offering.Offering{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                  offering.ID(m.ID),
		ServiceID:           m.ServiceID,
		Owner:               types.Address(m.Owner),
		Recipient:           types.Address(m.Recipient),
		AmountPerPeriod:     types.Amount(m.AmountPerPeriod),
		PeriodSeconds:       m.PeriodSeconds,
		Active:              m.Active,
		SubscriberCount:     uint64(m.SubscriberCount),
		LifetimeSubscribers: uint64(m.LifetimeSubscribers),
	}
}

// ==================== Subscription models ====================

// Optional times are stored as BSON null rather than the zero date.
type subscriptionModel struct {
	grove.BaseModel `grove:"table:recur_subscriptions"`

	ID                string     `grove:"id,pk"               bson:"_id"`
	OfferingID        int64      `grove:"offering_id"         bson:"offering_id"`
	Subscriber        string     `grove:"subscriber"          bson:"subscriber"`
	StartTime         time.Time  `grove:"start_time"          bson:"start_time"`
	LastChargeTime    time.Time  `grove:"last_charge_time"    bson:"last_charge_time"`
	Active            bool       `grove:"active"              bson:"active"`
	TotalPaid         int64      `grove:"total_paid"          bson:"total_paid"`
	ChargeCount       int64      `grove:"charge_count"        bson:"charge_count"`
	TargetChargeTime  *time.Time `grove:"target_charge_time"  bson:"target_charge_time"`
	FirstSubscribedAt time.Time  `grove:"first_subscribed_at" bson:"first_subscribed_at"`
	CanceledAt        *time.Time `grove:"canceled_at"         bson:"canceled_at"`
	Position          int64      `grove:"position"            bson:"position"`
	UpdatedAt         time.Time  `grove:"updated_at"          bson:"updated_at"`
}

func subscriptionKey(offeringID offering.ID, subscriber types.Address) string {
	return strconv.FormatUint(uint64(offeringID), 10) + ":" + string(subscriber)
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                subscriptionKey(s.OfferingID, s.Subscriber),
		OfferingID:        int64(s.OfferingID),
		Subscriber:        string(s.Subscriber),
		StartTime:         s.StartTime,
		LastChargeTime:    s.LastChargeTime,
		Active:            s.Active,
		TotalPaid:         int64(s.TotalPaid),
		ChargeCount:       int64(s.ChargeCount),
		TargetChargeTime:  optTime(s.TargetChargeTime),
		FirstSubscribedAt: s.FirstSubscribedAt,
		CanceledAt:        optTime(s.CanceledAt),
		Position:          int64(s.Position),
		UpdatedAt:         s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) *subscription.Subscription {
	return &subscription.Subscription{
		OfferingID:        offering.ID(m.OfferingID),
		Subscriber:        types.Address(m.Subscriber),
		StartTime:         m.StartTime.UTC(),
		LastChargeTime:    m.LastChargeTime.UTC(),
		Active:            m.Active,
		TotalPaid:         types.Amount(m.TotalPaid),
		ChargeCount:       uint64(m.ChargeCount),
		TargetChargeTime:  derefTime(m.TargetChargeTime),
		FirstSubscribedAt: m.FirstSubscribedAt.UTC(),
		CanceledAt:        derefTime(m.CanceledAt),
		Position:          uint64(m.Position),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

// ==================== Charge models ====================

type chargeModel struct {
	grove.BaseModel `grove:"table:recur_charges"`

	ID         string    `grove:"id,pk"       bson:"_id"`
	OfferingID int64     `grove:"offering_id" bson:"offering_id"`
	Subscriber string    `grove:"subscriber"  bson:"subscriber"`
	Recipient  string    `grove:"recipient"   bson:"recipient"`
	Amount     int64     `grove:"amount"      bson:"amount"`
	Sequence   int64     `grove:"sequence"    bson:"sequence"`
	DueAt      time.Time `grove:"due_at"      bson:"due_at"`
	ChargedAt  time.Time `grove:"charged_at"  bson:"charged_at"`
	BatchID    string    `grove:"batch_id"    bson:"batch_id,omitempty"`
}

func toChargeModel(c *charge.Charge) *chargeModel {
	m := &chargeModel{
		ID:         c.ID.String(),
		OfferingID: int64(c.OfferingID),
		Subscriber: string(c.Subscriber),
		Recipient:  string(c.Recipient),
		Amount:     int64(c.Amount),
		Sequence:   int64(c.Sequence),
		DueAt:      c.DueAt,
		ChargedAt:  c.ChargedAt,
	}
	if !c.BatchID.IsNil() {
		m.BatchID = c.BatchID.String()
	}
	return m
}

func fromChargeModel(m *chargeModel) (*charge.Charge, error) {
	chargeID, err := id.ParseChargeID(m.ID)
	if err != nil {
		return nil, err
	}

	var batchID id.BatchID
	if m.BatchID != "" {
		batchID, err = id.ParseBatchID(m.BatchID)
		if err != nil {
			return nil, err
		}
	}

	return &charge.Charge{
		ID:         chargeID,
		OfferingID: offering.ID(m.OfferingID),
		Subscriber: types.Address(m.Subscriber),
		Recipient:  types.Address(m.Recipient),
		Amount:     types.Amount(m.Amount),
		Sequence:   uint64(m.Sequence),
		DueAt:      m.DueAt.UTC(),
		ChargedAt:  m.ChargedAt.UTC(),
		BatchID:    batchID,
	}, nil
}

// counterModel holds a named monotonic sequence.
type counterModel struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}

// ==================== Helpers ====================

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
