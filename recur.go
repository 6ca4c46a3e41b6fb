package recur

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/recur/event"
	"github.com/xraph/recur/lock"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// DefaultSpender is the identity subscribers authorize on the token ledger
// when no other spender is configured.
const DefaultSpender types.Address = "recur"

// Engine is the recurring-billing engine: offering registry, subscription
// ledger and charge engine over one injected store and token ledger.
type Engine struct {
	store   store.Store
	tokens  token.Ledger
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock
	locker  lock.Locker
	halter  Halter
	spender types.Address

	// callouts holds the lock keys of offerings with a token-ledger call
	// in flight.
	callouts sync.Map
}

// New creates a new Engine.
func New(s store.Store, tokens token.Ledger, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		tokens:  tokens,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   SystemClock{},
		locker:  lock.NewLocal(),
		halter:  neverHalted{},
		spender: DefaultSpender,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLocker sets the per-offering lock implementation.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithHalter wires an externally owned emergency halt.
func WithHalter(h Halter) Option {
	return func(e *Engine) {
		if h != nil {
			e.halter = h
		}
	}
}

// WithSpender sets the identity subscribers authorize on the token ledger.
func WithSpender(spender types.Address) Option {
	return func(e *Engine) {
		if !spender.IsZero() {
			e.spender = spender
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if e.tokens == nil {
		return ErrNilTokenLedger
	}
	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("recur: migrate: %w", err)
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("recur engine started",
		"spender", e.spender,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Health pings the store.
func (e *Engine) Health(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Spender returns the identity subscribers must authorize.
func (e *Engine) Spender() types.Address { return e.spender }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// ──────────────────────────────────────────────────
// Guarding
// ──────────────────────────────────────────────────

type guardKey struct{}

// now returns the engine clock truncated to whole seconds.
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC().Truncate(time.Second)
}

// guarded marks ctx as running inside one of this engine's mutating
// operations. Every callout to the token ledger receives a guarded context.
func (e *Engine) guarded(ctx context.Context) context.Context {
	return context.WithValue(ctx, guardKey{}, e)
}

func (e *Engine) reentered(ctx context.Context) bool {
	owner, _ := ctx.Value(guardKey{}).(*Engine)
	return owner == e
}

// enter runs the checks every mutating operation starts with.
func (e *Engine) enter(ctx context.Context, op string) error {
	if e.reentered(ctx) {
		e.logger.Warn("reentrant call rejected", "op", op)
		return fmt.Errorf("%w: %s", ErrReentrantCall, op)
	}
	if e.halter.Halted() {
		return fmt.Errorf("%w: %s", ErrHalted, op)
	}
	if e.tokens == nil {
		return ErrNilTokenLedger
	}
	return nil
}

// mutation is the body of a state-mutating operation. It runs under the
// offering lock with a guarded context and returns the events to emit.
type mutation func(ctx context.Context, now time.Time) ([]event.Event, error)

// mutate serializes fn against every other mutation of offeringID. Events
// returned by fn are emitted after the lock is released, in order, even
// when fn also returns an error.
func (e *Engine) mutate(ctx context.Context, op string, offeringID offering.ID, fn mutation) error {
	if err := e.enter(ctx, op); err != nil {
		return err
	}

	if _, busy := e.callouts.Load(lockKey(offeringID)); busy {
		e.logger.Warn("reentrant call rejected", "op", op, "offering_id", offeringID)
		return fmt.Errorf("%w: %s: offering %s has a token call in flight", ErrReentrantCall, op, offeringID)
	}
	release, err := e.locker.Lock(ctx, lockKey(offeringID))
	if err != nil {
		return fmt.Errorf("recur: %s: lock offering %s: %w", op, offeringID, err)
	}

	events, err := func() ([]event.Event, error) {
		defer release()
		return fn(e.guarded(ctx), e.now())
	}()

	e.emit(ctx, events...)
	return err
}

func (e *Engine) emit(ctx context.Context, events ...event.Event) {
	for _, ev := range events {
		e.plugins.Emit(ctx, ev)
	}
}

func lockKey(offeringID offering.ID) string {
	return "offering:" + offeringID.String()
}

// callout runs fn, a token-ledger call made under the offering's lock, with
// the offering marked busy. A mutation of that offering arriving without the
// guarded context would otherwise block on the held lock.
func (e *Engine) callout(offeringID offering.ID, fn func() error) error {
	key := lockKey(offeringID)
	e.callouts.Store(key, struct{}{})
	defer e.callouts.Delete(key)
	return fn()
}
