// Package observability provides a metrics extension for recur that records
// lifecycle event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/recur/event"
	"github.com/xraph/recur/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                    = (*MetricsExtension)(nil)
	_ plugin.OnInit                    = (*MetricsExtension)(nil)
	_ plugin.OnOfferingCreated         = (*MetricsExtension)(nil)
	_ plugin.OnOfferingPaused          = (*MetricsExtension)(nil)
	_ plugin.OnOfferingUnpaused        = (*MetricsExtension)(nil)
	_ plugin.OnOfferingCanceled        = (*MetricsExtension)(nil)
	_ plugin.OnUserSubscribed          = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled    = (*MetricsExtension)(nil)
	_ plugin.OnTargetChargeTimeUpdated = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCharged     = (*MetricsExtension)(nil)
	_ plugin.OnBatchChargeCompleted    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a recur plugin to track billing activity.
type MetricsExtension struct {
	factory MetricFactory

	// Offering metrics
	OfferingCreated  Counter
	OfferingPaused   Counter
	OfferingUnpaused Counter
	OfferingCanceled Counter

	// Subscription metrics
	UserSubscribed          Counter
	SubscriptionCanceled    Counter
	TargetChargeTimeUpdated Counter

	// Charge metrics
	SubscriptionCharged Counter
	ChargedTokens       Counter
	ChargeAmount        Histogram

	// Batch metrics
	BatchCompleted Counter
	BatchCharged   Counter
	BatchFailed    Counter
	BatchSize      Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		OfferingCreated:  factory.Counter("recur.offering.created"),
		OfferingPaused:   factory.Counter("recur.offering.paused"),
		OfferingUnpaused: factory.Counter("recur.offering.unpaused"),
		OfferingCanceled: factory.Counter("recur.offering.canceled"),

		UserSubscribed:          factory.Counter("recur.subscription.subscribed"),
		SubscriptionCanceled:    factory.Counter("recur.subscription.canceled"),
		TargetChargeTimeUpdated: factory.Counter("recur.subscription.target_updated"),

		SubscriptionCharged: factory.Counter("recur.charge.succeeded"),
		ChargedTokens:       factory.Counter("recur.charge.tokens"),
		ChargeAmount:        factory.Histogram("recur.charge.amount_tokens"),

		BatchCompleted: factory.Counter("recur.batch.completed"),
		BatchCharged:   factory.Counter("recur.batch.charged"),
		BatchFailed:    factory.Counter("recur.batch.failed"),
		BatchSize:      factory.Histogram("recur.batch.size"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Offering hooks
// ──────────────────────────────────────────────────

// OnOfferingCreated implements plugin.OnOfferingCreated.
func (m *MetricsExtension) OnOfferingCreated(_ context.Context, _ *event.OfferingCreated) error {
	m.OfferingCreated.Inc()
	return nil
}

// OnOfferingPaused implements plugin.OnOfferingPaused.
func (m *MetricsExtension) OnOfferingPaused(_ context.Context, _ *event.OfferingPaused) error {
	m.OfferingPaused.Inc()
	return nil
}

// OnOfferingUnpaused implements plugin.OnOfferingUnpaused.
func (m *MetricsExtension) OnOfferingUnpaused(_ context.Context, _ *event.OfferingUnpaused) error {
	m.OfferingUnpaused.Inc()
	return nil
}

// OnOfferingCanceled implements plugin.OnOfferingCanceled. The cascaded
// subscription cancellations arrive as their own events.
func (m *MetricsExtension) OnOfferingCanceled(_ context.Context, _ *event.OfferingCanceled) error {
	m.OfferingCanceled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnUserSubscribed implements plugin.OnUserSubscribed.
func (m *MetricsExtension) OnUserSubscribed(_ context.Context, _ *event.UserSubscribed) error {
	m.UserSubscribed.Inc()
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _ *event.SubscriptionCanceled) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnTargetChargeTimeUpdated implements plugin.OnTargetChargeTimeUpdated.
func (m *MetricsExtension) OnTargetChargeTimeUpdated(_ context.Context, _ *event.TargetChargeTimeUpdated) error {
	m.TargetChargeTimeUpdated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Charge hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCharged implements plugin.OnSubscriptionCharged.
func (m *MetricsExtension) OnSubscriptionCharged(_ context.Context, e *event.SubscriptionCharged) error {
	tokens := e.Amount.Float()
	m.SubscriptionCharged.Inc()
	m.ChargedTokens.Add(tokens)
	m.ChargeAmount.Observe(tokens)
	return nil
}

// OnBatchChargeCompleted implements plugin.OnBatchChargeCompleted.
func (m *MetricsExtension) OnBatchChargeCompleted(_ context.Context, e *event.BatchChargeCompleted) error {
	m.BatchCompleted.Inc()
	m.BatchCharged.Add(float64(e.SuccessCount))
	m.BatchFailed.Add(float64(e.FailCount))
	m.BatchSize.Observe(float64(e.SuccessCount + e.FailCount))
	return nil
}
