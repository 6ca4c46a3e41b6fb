package postgres

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

// Amounts and counters are stored as BIGINT. The largest offering amount
// times any realistic charge count stays far below math.MaxInt64.

// ==================== Offering models ====================

type offeringModel struct {
	grove.BaseModel `grove:"table:recur_offerings"`

	ID                  int64     `grove:"id,pk"`
	ServiceID           string    `grove:"service_id"`
	Owner               string    `grove:"owner"`
	Recipient           string    `grove:"recipient"`
	AmountPerPeriod     int64     `grove:"amount_per_period"`
	PeriodSeconds       int64     `grove:"period_seconds"`
	Active              bool      `grove:"active"`
	SubscriberCount     int64     `grove:"subscriber_count"`
	LifetimeSubscribers int64     `grove:"lifetime_subscribers"`
	CreatedAt           time.Time `grove:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"`
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
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
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

type subscriptionModel struct {
	grove.BaseModel `grove:"table:recur_subscriptions"`

	ID                string     `grove:"id,pk"`
	OfferingID        int64      `grove:"offering_id"`
	Subscriber        string     `grove:"subscriber"`
	StartTime         time.Time  `grove:"start_time"`
	LastChargeTime    time.Time  `grove:"last_charge_time"`
	Active            bool       `grove:"active"`
	TotalPaid         int64      `grove:"total_paid"`
	ChargeCount       int64      `grove:"charge_count"`
	TargetChargeTime  *time.Time `grove:"target_charge_time"`
	FirstSubscribedAt time.Time  `grove:"first_subscribed_at"`
	CanceledAt        *time.Time `grove:"canceled_at"`
	Position          int64      `grove:"position"`
	UpdatedAt         time.Time  `grove:"updated_at"`
}

// subscriptionKey is the primary key of a pair's row.
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

func fromSubscriptionModels(models []subscriptionModel) []*subscription.Subscription {
	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		result[i] = fromSubscriptionModel(&models[i])
	}
	return result
}

// ==================== Charge models ====================

type chargeModel struct {
	grove.BaseModel `grove:"table:recur_charges"`

	ID         string    `grove:"id,pk"`
	OfferingID int64     `grove:"offering_id"`
	Subscriber string    `grove:"subscriber"`
	Recipient  string    `grove:"recipient"`
	Amount     int64     `grove:"amount"`
	Sequence   int64     `grove:"sequence"`
	DueAt      time.Time `grove:"due_at"`
	ChargedAt  time.Time `grove:"charged_at"`
	BatchID    string    `grove:"batch_id"`
}

func toChargeModel(c *charge.Charge) *chargeModel {
	return &chargeModel{
		ID:         c.ID.String(),
		OfferingID: int64(c.OfferingID),
		Subscriber: string(c.Subscriber),
		Recipient:  string(c.Recipient),
		Amount:     int64(c.Amount),
		Sequence:   int64(c.Sequence),
		DueAt:      c.DueAt,
		ChargedAt:  c.ChargedAt,
		BatchID:    c.BatchID.String(),
	}
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
