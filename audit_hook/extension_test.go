package audithook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	audithook "github.com/xraph/recur/audit_hook"
	"github.com/xraph/recur/event"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/types"
)

type captured struct {
	events []*audithook.AuditEvent
}

func (c *captured) recorder() audithook.RecorderFunc {
	return func(_ context.Context, e *audithook.AuditEvent) error {
		c.events = append(c.events, e)
		return nil
	}
}

func TestBatchOutcome(t *testing.T) {
	tests := []struct {
		name             string
		success, fail    int
		severity, result string
	}{
		{"clean", 3, 0, audithook.SeverityInfo, audithook.OutcomeSuccess},
		{"partial", 2, 1, audithook.SeverityWarning, audithook.OutcomePartial},
		{"all failed", 0, 2, audithook.SeverityError, audithook.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c captured
			ext := audithook.New(c.recorder())

			err := ext.OnBatchChargeCompleted(context.Background(), &event.BatchChargeCompleted{
				Meta:         event.NewMeta(time.Now()),
				OfferingID:   7,
				BatchID:      id.NewBatchID(),
				SuccessCount: tt.success,
				FailCount:    tt.fail,
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(c.events) != 1 {
				t.Fatalf("got %d audit events, want 1", len(c.events))
			}
			got := c.events[0]
			if got.Severity != tt.severity || got.Outcome != tt.result {
				t.Errorf("got %s/%s, want %s/%s", got.Severity, got.Outcome, tt.severity, tt.result)
			}
			if got.Metadata["offering_id"] != "7" {
				t.Errorf("offering_id metadata: got %v", got.Metadata["offering_id"])
			}
			if (tt.fail > 0) != (got.Reason != "") {
				t.Errorf("reason: got %q", got.Reason)
			}
		})
	}
}

func TestChargeRecord(t *testing.T) {
	var c captured
	ext := audithook.New(c.recorder())

	evt := &event.SubscriptionCharged{
		Meta:       event.NewMeta(time.Now()),
		OfferingID: 1,
		Subscriber: "alice",
		Recipient:  "treasury",
		Amount:     types.Tokens(10),
		ChargeID:   id.NewChargeID(),
	}
	if err := ext.OnSubscriptionCharged(context.Background(), evt); err != nil {
		t.Fatal(err)
	}

	got := c.events[0]
	if got.Action != audithook.ActionSubscriptionCharged || got.ResourceID != evt.ChargeID.String() {
		t.Errorf("got %s %s", got.Action, got.ResourceID)
	}
	if got.Metadata["amount"] != "10.000000" {
		t.Errorf("amount metadata: got %v", got.Metadata["amount"])
	}
	if got.Metadata["event_id"] != evt.ID.String() {
		t.Errorf("event_id metadata: got %v", got.Metadata["event_id"])
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	paused := &event.OfferingPaused{Meta: event.NewMeta(time.Now()), OfferingID: 1}
	subscribed := &event.UserSubscribed{Meta: event.NewMeta(time.Now()), OfferingID: 1, Subscriber: "bob"}

	tests := []struct {
		name string
		opts []audithook.Option
		want int
	}{
		{"all", nil, 2},
		{"enabled", []audithook.Option{audithook.WithEnabledActions(audithook.ActionOfferingPaused)}, 1},
		{"disabled", []audithook.Option{audithook.WithDisabledActions(audithook.ActionOfferingPaused, audithook.ActionUserSubscribed)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c captured
			ext := audithook.New(c.recorder(), tt.opts...)
			_ = ext.OnOfferingPaused(ctx, paused)
			_ = ext.OnUserSubscribed(ctx, subscribed)
			if len(c.events) != tt.want {
				t.Errorf("got %d audit events, want %d", len(c.events), tt.want)
			}
		})
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	ext := audithook.New(failing, audithook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	err := ext.OnOfferingUnpaused(context.Background(), &event.OfferingUnpaused{Meta: event.NewMeta(time.Now()), OfferingID: 1})
	if err != nil {
		t.Errorf("recorder failure should not propagate: %v", err)
	}
}
