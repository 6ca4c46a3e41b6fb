package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/recur/event"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                    []OnInit
	onShutdown                []OnShutdown
	onOfferingCreated         []OnOfferingCreated
	onOfferingPaused          []OnOfferingPaused
	onOfferingUnpaused        []OnOfferingUnpaused
	onOfferingCanceled        []OnOfferingCanceled
	onUserSubscribed          []OnUserSubscribed
	onSubscriptionCanceled    []OnSubscriptionCanceled
	onTargetChargeTimeUpdated []OnTargetChargeTimeUpdated
	onSubscriptionCharged     []OnSubscriptionCharged
	onBatchChargeCompleted    []OnBatchChargeCompleted
	eventHandlers             []EventHandler
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnOfferingCreated); ok {
		r.onOfferingCreated = append(r.onOfferingCreated, v)
	}
	if v, ok := p.(OnOfferingPaused); ok {
		r.onOfferingPaused = append(r.onOfferingPaused, v)
	}
	if v, ok := p.(OnOfferingUnpaused); ok {
		r.onOfferingUnpaused = append(r.onOfferingUnpaused, v)
	}
	if v, ok := p.(OnOfferingCanceled); ok {
		r.onOfferingCanceled = append(r.onOfferingCanceled, v)
	}
	if v, ok := p.(OnUserSubscribed); ok {
		r.onUserSubscribed = append(r.onUserSubscribed, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnTargetChargeTimeUpdated); ok {
		r.onTargetChargeTimeUpdated = append(r.onTargetChargeTimeUpdated, v)
	}
	if v, ok := p.(OnSubscriptionCharged); ok {
		r.onSubscriptionCharged = append(r.onSubscriptionCharged, v)
	}
	if v, ok := p.(OnBatchChargeCompleted); ok {
		r.onBatchChargeCompleted = append(r.onBatchChargeCompleted, v)
	}
	if v, ok := p.(EventHandler); ok {
		r.eventHandlers = append(r.eventHandlers, v)
	}

	r.logger.Debug("plugin registered", "plugin", p.Name())
	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	dispatch(r, ctx, "OnInit", plugins, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	dispatch(r, ctx, "OnShutdown", plugins, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// Emit delivers e to the typed hooks for its type and then to every
// EventHandler. Plugin failures are logged and never returned.
func (r *Registry) Emit(ctx context.Context, e event.Event) {
	var typed func()

	r.mu.RLock()
	handlers := r.eventHandlers
	switch ev := e.(type) {
	case *event.OfferingCreated:
		plugins := r.onOfferingCreated
		typed = func() {
			dispatch(r, ctx, "OnOfferingCreated", plugins, func(p OnOfferingCreated) error {
				return p.OnOfferingCreated(ctx, ev)
			})
		}
	case *event.OfferingPaused:
		plugins := r.onOfferingPaused
		typed = func() {
			dispatch(r, ctx, "OnOfferingPaused", plugins, func(p OnOfferingPaused) error {
				return p.OnOfferingPaused(ctx, ev)
			})
		}
	case *event.OfferingUnpaused:
		plugins := r.onOfferingUnpaused
		typed = func() {
			dispatch(r, ctx, "OnOfferingUnpaused", plugins, func(p OnOfferingUnpaused) error {
				return p.OnOfferingUnpaused(ctx, ev)
			})
		}
	case *event.OfferingCanceled:
		plugins := r.onOfferingCanceled
		typed = func() {
			dispatch(r, ctx, "OnOfferingCanceled", plugins, func(p OnOfferingCanceled) error {
				return p.OnOfferingCanceled(ctx, ev)
			})
		}
	case *event.UserSubscribed:
		plugins := r.onUserSubscribed
		typed = func() {
			dispatch(r, ctx, "OnUserSubscribed", plugins, func(p OnUserSubscribed) error {
				return p.OnUserSubscribed(ctx, ev)
			})
		}
	case *event.SubscriptionCanceled:
		plugins := r.onSubscriptionCanceled
		typed = func() {
			dispatch(r, ctx, "OnSubscriptionCanceled", plugins, func(p OnSubscriptionCanceled) error {
				return p.OnSubscriptionCanceled(ctx, ev)
			})
		}
	case *event.TargetChargeTimeUpdated:
		plugins := r.onTargetChargeTimeUpdated
		typed = func() {
			dispatch(r, ctx, "OnTargetChargeTimeUpdated", plugins, func(p OnTargetChargeTimeUpdated) error {
				return p.OnTargetChargeTimeUpdated(ctx, ev)
			})
		}
	case *event.SubscriptionCharged:
		plugins := r.onSubscriptionCharged
		typed = func() {
			dispatch(r, ctx, "OnSubscriptionCharged", plugins, func(p OnSubscriptionCharged) error {
				return p.OnSubscriptionCharged(ctx, ev)
			})
		}
	case *event.BatchChargeCompleted:
		plugins := r.onBatchChargeCompleted
		typed = func() {
			dispatch(r, ctx, "OnBatchChargeCompleted", plugins, func(p OnBatchChargeCompleted) error {
				return p.OnBatchChargeCompleted(ctx, ev)
			})
		}
	}
	r.mu.RUnlock()

	if typed != nil {
		typed()
	}
	dispatch(r, ctx, "HandleEvent", handlers, func(p EventHandler) error {
		return p.HandleEvent(ctx, e)
	})
}

// dispatch calls fn for each plugin in order, logging failures.
func dispatch[T Plugin](r *Registry, ctx context.Context, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
