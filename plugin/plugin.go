// Package plugin provides an extensible plugin system for recur.
// Plugins can hook into lifecycle and billing events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/recur/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Offering hooks
// ──────────────────────────────────────────────────

// OnOfferingCreated is called when a new offering is created.
type OnOfferingCreated interface {
	Plugin
	OnOfferingCreated(ctx context.Context, e *event.OfferingCreated) error
}

// OnOfferingPaused is called when an owner pauses an offering.
type OnOfferingPaused interface {
	Plugin
	OnOfferingPaused(ctx context.Context, e *event.OfferingPaused) error
}

// OnOfferingUnpaused is called when an owner reactivates an offering.
type OnOfferingUnpaused interface {
	Plugin
	OnOfferingUnpaused(ctx context.Context, e *event.OfferingUnpaused) error
}

// OnOfferingCanceled is called once per offering cancellation, after the
// per-subscriber cancellations.
type OnOfferingCanceled interface {
	Plugin
	OnOfferingCanceled(ctx context.Context, e *event.OfferingCanceled) error
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnUserSubscribed is called on every subscribe, including re-subscribes.
type OnUserSubscribed interface {
	Plugin
	OnUserSubscribed(ctx context.Context, e *event.UserSubscribed) error
}

// OnSubscriptionCanceled is called when a subscription is canceled by its
// subscriber or by an offering cancellation.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, e *event.SubscriptionCanceled) error
}

// OnTargetChargeTimeUpdated is called when a subscriber sets or clears a
// charge schedule.
type OnTargetChargeTimeUpdated interface {
	Plugin
	OnTargetChargeTimeUpdated(ctx context.Context, e *event.TargetChargeTimeUpdated) error
}

// ──────────────────────────────────────────────────
// Charge hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCharged is called for every successful debit.
type OnSubscriptionCharged interface {
	Plugin
	OnSubscriptionCharged(ctx context.Context, e *event.SubscriptionCharged) error
}

// OnBatchChargeCompleted is called at the end of every ChargeAll run.
type OnBatchChargeCompleted interface {
	Plugin
	OnBatchChargeCompleted(ctx context.Context, e *event.BatchChargeCompleted) error
}

// ──────────────────────────────────────────────────
// Catch-all
// ──────────────────────────────────────────────────

// EventHandler receives every event after the typed hooks have run.
// Publishers implement this instead of each typed hook.
type EventHandler interface {
	Plugin
	HandleEvent(ctx context.Context, e event.Event) error
}
