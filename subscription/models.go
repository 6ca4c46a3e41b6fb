package subscription

import (
	"time"

	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/types"
)

type State string

const (
	StateNeverSubscribed State = "never_subscribed"
	StateActive          State = "active"
	StateCanceled        State = "canceled"
)

// Subscription is one subscriber's state against one offering, keyed by
// (OfferingID, Subscriber). TotalPaid and ChargeCount are lifetime metrics
// of the pair and survive cancel and re-subscribe.
type Subscription struct {
	OfferingID        offering.ID   `json:"offering_id"`
	Subscriber        types.Address `json:"subscriber"`
	StartTime         time.Time     `json:"start_time"`
	LastChargeTime    time.Time     `json:"last_charge_time"`
	Active            bool          `json:"active"`
	TotalPaid         types.Amount  `json:"total_paid"`
	ChargeCount       uint64        `json:"charge_count"`
	TargetChargeTime  time.Time     `json:"target_charge_time,omitzero"`
	FirstSubscribedAt time.Time     `json:"first_subscribed_at"`
	CanceledAt        time.Time     `json:"canceled_at,omitzero"`
	Position          uint64        `json:"position"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Exists reports whether the pair has ever subscribed.
func (s *Subscription) Exists() bool {
	return s != nil && !s.Subscriber.IsZero()
}

// State derives the lifecycle state.
func (s *Subscription) State() State {
	switch {
	case !s.Exists():
		return StateNeverSubscribed
	case s.Active:
		return StateActive
	default:
		return StateCanceled
	}
}

// HasTarget reports whether a target charge time overrides the naive
// last-charge-plus-period schedule.
func (s *Subscription) HasTarget() bool {
	return !s.TargetChargeTime.IsZero()
}

// NextChargeTime is the earliest instant the next charge is permitted.
func (s *Subscription) NextChargeTime(period time.Duration) time.Time {
	if s.HasTarget() {
		return s.TargetChargeTime
	}
	return s.LastChargeTime.Add(period)
}

// Due reports whether a charge is permitted at now.
func (s *Subscription) Due(now time.Time, period time.Duration) bool {
	return !now.Before(s.NextChargeTime(period))
}

// Remaining returns how long until the next charge is permitted, or zero
// if it is already due.
func (s *Subscription) Remaining(now time.Time, period time.Duration) time.Duration {
	next := s.NextChargeTime(period)
	if !now.Before(next) {
		return 0
	}
	return next.Sub(now)
}

// ApplyCharge records a successful debit of amount at now. A set target
// rolls forward by exactly one period so the cadence stays on its grid even
// when the charge runs late.
func (s *Subscription) ApplyCharge(now time.Time, amount types.Amount, period time.Duration) error {
	total, err := s.TotalPaid.Add(amount)
	if err != nil {
		return err
	}
	s.TotalPaid = total
	s.ChargeCount++
	s.LastChargeTime = now
	if s.HasTarget() {
		s.TargetChargeTime = s.TargetChargeTime.Add(period)
	}
	s.UpdatedAt = now
	return nil
}

// Activate starts a new active interval at now. Metrics are untouched and
// any previous schedule is cleared so the next charge is a full period away.
func (s *Subscription) Activate(now time.Time) {
	s.Active = true
	s.StartTime = now
	s.LastChargeTime = now
	s.TargetChargeTime = time.Time{}
	s.CanceledAt = time.Time{}
	s.UpdatedAt = now
}

// Deactivate ends the active interval at now.
func (s *Subscription) Deactivate(now time.Time) {
	s.Active = false
	s.CanceledAt = now
	s.UpdatedAt = now
}
