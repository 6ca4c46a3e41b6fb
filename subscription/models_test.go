package subscription

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/xraph/recur/types"
)

var (
	t0   = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	week = 7 * 24 * time.Hour
)

func TestState(t *testing.T) {
	tests := []struct {
		name string
		sub  *Subscription
		want State
	}{
		{"nil", nil, StateNeverSubscribed},
		{"zero", &Subscription{}, StateNeverSubscribed},
		{"active", &Subscription{Subscriber: "alice", Active: true}, StateActive},
		{"canceled", &Subscription{Subscriber: "alice"}, StateCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.State(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextChargeTime(t *testing.T) {
	tests := []struct {
		name    string
		sub     Subscription
		now     time.Time
		next    time.Time
		due     bool
		remains time.Duration
	}{
		{"fresh", Subscription{LastChargeTime: t0}, t0, t0.Add(week), false, week},
		{"one second early", Subscription{LastChargeTime: t0}, t0.Add(week - time.Second), t0.Add(week), false, time.Second},
		{"exactly due", Subscription{LastChargeTime: t0}, t0.Add(week), t0.Add(week), true, 0},
		{"overdue", Subscription{LastChargeTime: t0}, t0.Add(3 * week), t0.Add(week), true, 0},
		{"target earlier than period", Subscription{LastChargeTime: t0, TargetChargeTime: t0.Add(time.Hour)}, t0.Add(time.Hour), t0.Add(time.Hour), true, 0},
		{"target later than period", Subscription{LastChargeTime: t0, TargetChargeTime: t0.Add(2 * week)}, t0.Add(week), t0.Add(2 * week), false, week},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.NextChargeTime(week); !got.Equal(tt.next) {
				t.Errorf("NextChargeTime: got %s, want %s", got, tt.next)
			}
			if got := tt.sub.Due(tt.now, week); got != tt.due {
				t.Errorf("Due: got %v, want %v", got, tt.due)
			}
			if got := tt.sub.Remaining(tt.now, week); got != tt.remains {
				t.Errorf("Remaining: got %s, want %s", got, tt.remains)
			}
		})
	}
}

func TestApplyCharge(t *testing.T) {
	t.Run("without target", func(t *testing.T) {
		s := Subscription{Subscriber: "alice", Active: true, LastChargeTime: t0}
		now := t0.Add(week + time.Hour)

		if err := s.ApplyCharge(now, types.Tokens(1), week); err != nil {
			t.Fatal(err)
		}
		if s.ChargeCount != 1 || s.TotalPaid != types.Tokens(1) {
			t.Errorf("metrics: got count %d paid %s", s.ChargeCount, s.TotalPaid)
		}
		if !s.LastChargeTime.Equal(now) {
			t.Errorf("LastChargeTime: got %s", s.LastChargeTime)
		}
		if s.HasTarget() {
			t.Error("charge should not set a target")
		}
	})

	t.Run("target rolls by one period", func(t *testing.T) {
		target := t0.Add(2 * 24 * time.Hour)
		s := Subscription{Subscriber: "alice", Active: true, LastChargeTime: t0, TargetChargeTime: target}

		if err := s.ApplyCharge(target.Add(5*time.Hour), types.Tokens(1), week); err != nil {
			t.Fatal(err)
		}
		if want := target.Add(week); !s.TargetChargeTime.Equal(want) {
			t.Errorf("TargetChargeTime: got %s, want %s", s.TargetChargeTime, want)
		}
	})

	t.Run("overflow leaves record untouched", func(t *testing.T) {
		s := Subscription{Subscriber: "alice", Active: true, TotalPaid: types.Amount(math.MaxUint64), ChargeCount: 9}
		before := s

		err := s.ApplyCharge(t0, types.Tokens(1), week)
		if !errors.Is(err, types.ErrAmountOverflow) {
			t.Fatalf("got %v, want ErrAmountOverflow", err)
		}
		if s != before {
			t.Error("record changed on overflow")
		}
	})
}

func TestActivateDeactivate(t *testing.T) {
	s := Subscription{
		Subscriber:       "alice",
		TotalPaid:        types.Tokens(3),
		ChargeCount:      3,
		TargetChargeTime: t0.Add(time.Hour),
	}

	s.Deactivate(t0)
	if s.Active || !s.CanceledAt.Equal(t0) {
		t.Errorf("Deactivate: active=%v canceled_at=%s", s.Active, s.CanceledAt)
	}

	later := t0.Add(48 * time.Hour)
	s.Activate(later)
	if !s.Active || !s.StartTime.Equal(later) || !s.LastChargeTime.Equal(later) {
		t.Errorf("Activate: %+v", s)
	}
	if s.HasTarget() || !s.CanceledAt.IsZero() {
		t.Error("Activate should clear the schedule and cancellation time")
	}
	if s.ChargeCount != 3 || s.TotalPaid != types.Tokens(3) {
		t.Error("Activate must not reset lifetime metrics")
	}
}
