// Package amqp publishes recur events to RabbitMQ. Each event is sent as a
// JSON envelope to a topic exchange with the event name as routing key, so
// consumers can bind to patterns such as "subscription.*".
package amqp

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/recur/event"
	"github.com/xraph/recur/plugin"
)

// DefaultExchange is the exchange events go to unless WithExchange is set.
const DefaultExchange = "recur.events"

var (
	_ plugin.EventHandler = (*Plugin)(nil)
	_ plugin.OnShutdown   = (*Plugin)(nil)
)

// Envelope is the message body.
type Envelope struct {
	ID         string      `json:"id"`
	Name       event.Name  `json:"name"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       event.Event `json:"data"`
}

// Plugin is a recur plugin forwarding every event to a Publisher.
type Plugin struct {
	pub      Publisher
	exchange string
	prefix   string
	logger   *slog.Logger
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithExchange sets the destination exchange.
func WithExchange(exchange string) Option {
	return func(p *Plugin) { p.exchange = exchange }
}

// WithRoutingPrefix prepends prefix and a dot to every routing key.
func WithRoutingPrefix(prefix string) Option {
	return func(p *Plugin) { p.prefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) { p.logger = logger }
}

// New creates a publishing plugin. A nil pub falls back to a no-op
// publisher.
func New(pub Publisher, opts ...Option) *Plugin {
	p := &Plugin{
		pub:      pub,
		exchange: DefaultExchange,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.pub == nil {
		p.pub = Fallback{Logger: p.logger}
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "amqp-publisher" }

// HandleEvent implements plugin.EventHandler.
func (p *Plugin) HandleEvent(ctx context.Context, e event.Event) error {
	return p.pub.Publish(ctx, p.exchange, p.RoutingKey(e), Envelope{
		ID:         e.EventID().String(),
		Name:       e.EventName(),
		OccurredAt: e.OccurredAt(),
		Data:       e,
	})
}

// RoutingKey returns the key an event is published under.
func (p *Plugin) RoutingKey(e event.Event) string {
	if p.prefix == "" {
		return string(e.EventName())
	}
	return p.prefix + "." + string(e.EventName())
}

// OnShutdown implements plugin.OnShutdown.
func (p *Plugin) OnShutdown(_ context.Context) error {
	p.pub.Close()
	return nil
}
