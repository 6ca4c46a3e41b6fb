// Package audithook bridges recur lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/recur/event"
	"github.com/xraph/recur/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                    = (*Extension)(nil)
	_ plugin.OnOfferingCreated         = (*Extension)(nil)
	_ plugin.OnOfferingPaused          = (*Extension)(nil)
	_ plugin.OnOfferingUnpaused        = (*Extension)(nil)
	_ plugin.OnOfferingCanceled        = (*Extension)(nil)
	_ plugin.OnUserSubscribed          = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled    = (*Extension)(nil)
	_ plugin.OnTargetChargeTimeUpdated = (*Extension)(nil)
	_ plugin.OnSubscriptionCharged     = (*Extension)(nil)
	_ plugin.OnBatchChargeCompleted    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges recur lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Offering hooks
// ──────────────────────────────────────────────────

// OnOfferingCreated implements plugin.OnOfferingCreated.
func (e *Extension) OnOfferingCreated(ctx context.Context, evt *event.OfferingCreated) error {
	return e.record(ctx, evt, ActionOfferingCreated, SeverityInfo, OutcomeSuccess,
		ResourceOffering, evt.OfferingID.String(), CategoryBilling, "",
		"service_id", evt.ServiceID,
		"owner", string(evt.Owner),
		"recipient", string(evt.Recipient),
		"amount", evt.Amount.String(),
		"period_seconds", evt.PeriodSeconds,
	)
}

// OnOfferingPaused implements plugin.OnOfferingPaused.
func (e *Extension) OnOfferingPaused(ctx context.Context, evt *event.OfferingPaused) error {
	return e.record(ctx, evt, ActionOfferingPaused, SeverityWarning, OutcomeSuccess,
		ResourceOffering, evt.OfferingID.String(), CategoryBilling, "",
	)
}

// OnOfferingUnpaused implements plugin.OnOfferingUnpaused.
func (e *Extension) OnOfferingUnpaused(ctx context.Context, evt *event.OfferingUnpaused) error {
	return e.record(ctx, evt, ActionOfferingUnpaused, SeverityInfo, OutcomeSuccess,
		ResourceOffering, evt.OfferingID.String(), CategoryBilling, "",
	)
}

// OnOfferingCanceled implements plugin.OnOfferingCanceled.
func (e *Extension) OnOfferingCanceled(ctx context.Context, evt *event.OfferingCanceled) error {
	return e.record(ctx, evt, ActionOfferingCanceled, SeverityWarning, OutcomeSuccess,
		ResourceOffering, evt.OfferingID.String(), CategoryBilling, "",
		"owner", string(evt.Owner),
		"canceled_count", evt.CanceledCount,
	)
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnUserSubscribed implements plugin.OnUserSubscribed.
func (e *Extension) OnUserSubscribed(ctx context.Context, evt *event.UserSubscribed) error {
	return e.record(ctx, evt, ActionUserSubscribed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.OfferingID.String(), CategorySubscription, "",
		"subscriber", string(evt.Subscriber),
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, evt *event.SubscriptionCanceled) error {
	return e.record(ctx, evt, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.OfferingID.String(), CategorySubscription, "",
		"subscriber", string(evt.Subscriber),
	)
}

// OnTargetChargeTimeUpdated implements plugin.OnTargetChargeTimeUpdated.
func (e *Extension) OnTargetChargeTimeUpdated(ctx context.Context, evt *event.TargetChargeTimeUpdated) error {
	target := "cleared"
	if !evt.Target.IsZero() {
		target = evt.Target.UTC().Format("2006-01-02T15:04:05Z")
	}
	return e.record(ctx, evt, ActionTargetChargeTimeUpdated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.OfferingID.String(), CategorySubscription, "",
		"subscriber", string(evt.Subscriber),
		"target", target,
	)
}

// ──────────────────────────────────────────────────
// Charge hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCharged implements plugin.OnSubscriptionCharged.
func (e *Extension) OnSubscriptionCharged(ctx context.Context, evt *event.SubscriptionCharged) error {
	return e.record(ctx, evt, ActionSubscriptionCharged, SeverityInfo, OutcomeSuccess,
		ResourceCharge, evt.ChargeID.String(), CategoryPayment, "",
		"offering_id", evt.OfferingID.String(),
		"subscriber", string(evt.Subscriber),
		"recipient", string(evt.Recipient),
		"amount", evt.Amount.String(),
	)
}

// OnBatchChargeCompleted implements plugin.OnBatchChargeCompleted. A batch
// with failures is recorded as a partial outcome.
func (e *Extension) OnBatchChargeCompleted(ctx context.Context, evt *event.BatchChargeCompleted) error {
	severity, outcome, reason := SeverityInfo, OutcomeSuccess, ""
	if evt.FailCount > 0 {
		reason = fmt.Sprintf("%d of %d charges failed", evt.FailCount, evt.FailCount+evt.SuccessCount)
	}
	switch {
	case evt.FailCount > 0 && evt.SuccessCount == 0:
		severity, outcome = SeverityError, OutcomeFailure
	case evt.FailCount > 0:
		severity, outcome = SeverityWarning, OutcomePartial
	}
	return e.record(ctx, evt, ActionBatchChargeCompleted, severity, outcome,
		ResourceBatch, evt.BatchID.String(), CategoryPayment, reason,
		"offering_id", evt.OfferingID.String(),
		"success_count", evt.SuccessCount,
		"fail_count", evt.FailCount,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	evt event.Event,
	action, severity, outcome string,
	resource, resourceID, category string,
	reason string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}
	meta["event_id"] = evt.EventID().String()
	meta["occurred_at"] = evt.OccurredAt()

	ae := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, ae); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
