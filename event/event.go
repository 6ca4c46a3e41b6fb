// Package event defines the notifications recur emits. Every event carries
// a TypeID and the engine-clock instant it occurred at; the engine hands
// them to plugins in the order the underlying state changes happened.
package event

import (
	"time"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/types"
)

// Name is the topic of an event, usable as a message routing key.
type Name string

const (
	NameOfferingCreated         Name = "offering.created"
	NameOfferingPaused          Name = "offering.paused"
	NameOfferingUnpaused        Name = "offering.unpaused"
	NameOfferingCanceled        Name = "offering.canceled"
	NameUserSubscribed          Name = "subscription.subscribed"
	NameSubscriptionCanceled    Name = "subscription.canceled"
	NameSubscriptionCharged     Name = "subscription.charged"
	NameTargetChargeTimeUpdated Name = "subscription.target_updated"
	NameBatchChargeCompleted    Name = "charge.batch_completed"
)

// Event is implemented by every notification type.
type Event interface {
	EventName() Name
	EventID() id.EventID
	OccurredAt() time.Time
}

// Meta is embedded in every event.
type Meta struct {
	ID   id.EventID `json:"id"`
	Time time.Time  `json:"time"`
}

// NewMeta stamps a fresh event at now.
func NewMeta(now time.Time) Meta {
	return Meta{ID: id.NewEventID(), Time: now}
}

func (m Meta) EventID() id.EventID   { return m.ID }
func (m Meta) OccurredAt() time.Time { return m.Time }

type OfferingCreated struct {
	Meta
	OfferingID    offering.ID   `json:"offering_id"`
	ServiceID     string        `json:"service_id"`
	Owner         types.Address `json:"owner"`
	Recipient     types.Address `json:"recipient"`
	Amount        types.Amount  `json:"amount"`
	PeriodSeconds int64         `json:"period_seconds"`
}

type OfferingPaused struct {
	Meta
	OfferingID offering.ID `json:"offering_id"`
}

type OfferingUnpaused struct {
	Meta
	OfferingID offering.ID `json:"offering_id"`
}

// OfferingCanceled carries the number of subscriptions the cancellation
// actually flipped from active to canceled.
type OfferingCanceled struct {
	Meta
	OfferingID    offering.ID   `json:"offering_id"`
	Owner         types.Address `json:"owner"`
	CanceledCount int           `json:"canceled_count"`
}

type UserSubscribed struct {
	Meta
	OfferingID offering.ID   `json:"offering_id"`
	Subscriber types.Address `json:"subscriber"`
}

type SubscriptionCanceled struct {
	Meta
	OfferingID offering.ID   `json:"offering_id"`
	Subscriber types.Address `json:"subscriber"`
}

type SubscriptionCharged struct {
	Meta
	OfferingID offering.ID   `json:"offering_id"`
	Subscriber types.Address `json:"subscriber"`
	Recipient  types.Address `json:"recipient"`
	Amount     types.Amount  `json:"amount"`
	ChargeID   id.ChargeID   `json:"charge_id"`
}

type BatchChargeCompleted struct {
	Meta
	OfferingID   offering.ID `json:"offering_id"`
	BatchID      id.BatchID  `json:"batch_id"`
	SuccessCount int         `json:"success_count"`
	FailCount    int         `json:"fail_count"`
}

// TargetChargeTimeUpdated carries the stored target; the zero time means
// the schedule was cleared.
type TargetChargeTimeUpdated struct {
	Meta
	OfferingID offering.ID   `json:"offering_id"`
	Subscriber types.Address `json:"subscriber"`
	Target     time.Time     `json:"target"`
}

func (*OfferingCreated) EventName() Name         { return NameOfferingCreated }
func (*OfferingPaused) EventName() Name          { return NameOfferingPaused }
func (*OfferingUnpaused) EventName() Name        { return NameOfferingUnpaused }
func (*OfferingCanceled) EventName() Name        { return NameOfferingCanceled }
func (*UserSubscribed) EventName() Name          { return NameUserSubscribed }
func (*SubscriptionCanceled) EventName() Name    { return NameSubscriptionCanceled }
func (*SubscriptionCharged) EventName() Name     { return NameSubscriptionCharged }
func (*BatchChargeCompleted) EventName() Name    { return NameBatchChargeCompleted }
func (*TargetChargeTimeUpdated) EventName() Name { return NameTargetChargeTimeUpdated }
