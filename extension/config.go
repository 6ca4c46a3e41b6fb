package extension

import "time"

// Config holds the recur extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.recur" or "recur" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Spender is the identity subscribers authorize on the token ledger
	// (default: "recur").
	Spender string `json:"spender" mapstructure:"spender" yaml:"spender"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RedisURL enables the Redis offering lock for multi-process
	// deployments. Empty keeps the in-process lock.
	RedisURL string `json:"redis_url" mapstructure:"redis_url" yaml:"redis_url"`

	// LockTTL is how long a Redis offering lock survives without release
	// (default: 1m).
	LockTTL time.Duration `json:"lock_ttl" mapstructure:"lock_ttl" yaml:"lock_ttl"`

	// AMQPURL enables event publishing to RabbitMQ.
	AMQPURL string `json:"amqp_url" mapstructure:"amqp_url" yaml:"amqp_url"`

	// AMQPExchange is the topic exchange events are published to
	// (default: "recur.events").
	AMQPExchange string `json:"amqp_exchange" mapstructure:"amqp_exchange" yaml:"amqp_exchange"`

	// EnableMetrics registers the Prometheus metrics plugin on the default
	// registerer.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// Schedules lists offerings charged automatically on a cron schedule.
	Schedules []ScheduleConfig `json:"schedules" mapstructure:"schedules" yaml:"schedules"`

	// ScheduleTimeout bounds each scheduled ChargeAll run (default: 5m).
	ScheduleTimeout time.Duration `json:"schedule_timeout" mapstructure:"schedule_timeout" yaml:"schedule_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// ScheduleConfig is one scheduled batch charge.
type ScheduleConfig struct {
	OfferingID uint64 `json:"offering_id" mapstructure:"offering_id" yaml:"offering_id"`

	// Cron is a five-field cron spec or a descriptor such as "@hourly".
	Cron string `json:"cron" mapstructure:"cron" yaml:"cron"`

	// Limit caps the subscribers examined per run; zero means all.
	Limit int `json:"limit" mapstructure:"limit" yaml:"limit"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Spender:         "recur",
		PluginTimeout:   5 * time.Second,
		LockTTL:         time.Minute,
		AMQPExchange:    "recur.events",
		ScheduleTimeout: 5 * time.Minute,
	}
}
