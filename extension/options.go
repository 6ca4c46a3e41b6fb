package extension

import (
	"time"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/token"
)

// Option configures the recur Forge extension.
type Option func(*Extension)

// WithStore sets the store for the recur engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTokenLedger sets the token ledger charges are debited through.
func WithTokenLedger(l token.Ledger) Option {
	return func(e *Extension) {
		e.tokens = l
	}
}

// WithEngineOption passes a recur.Option through to the underlying engine.
func WithEngineOption(opt recur.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a recur plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, recur.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSpender sets the identity subscribers authorize.
func WithSpender(spender string) Option {
	return func(e *Extension) { e.config.Spender = spender }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithRedisURL enables the Redis offering lock.
func WithRedisURL(url string) Option {
	return func(e *Extension) { e.config.RedisURL = url }
}

// WithAMQP enables event publishing to exchange on the broker at url.
func WithAMQP(url, exchange string) Option {
	return func(e *Extension) {
		e.config.AMQPURL = url
		e.config.AMQPExchange = exchange
	}
}

// WithMetrics registers the Prometheus metrics plugin.
func WithMetrics() Option {
	return func(e *Extension) { e.config.EnableMetrics = true }
}

// WithSchedule charges offeringID on the cron spec. A positive limit caps
// the subscribers examined per run.
func WithSchedule(offeringID uint64, spec string, limit int) Option {
	return func(e *Extension) {
		e.config.Schedules = append(e.config.Schedules, ScheduleConfig{
			OfferingID: offeringID,
			Cron:       spec,
			Limit:      limit,
		})
	}
}
