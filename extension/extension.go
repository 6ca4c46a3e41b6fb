// Package extension provides the Forge extension adapter for recur.
//
// It implements the forge.Extension interface to integrate the recur
// engine into a Forge application with DI registration, lifecycle
// management and optional infrastructure: a Redis offering lock, RabbitMQ
// event publishing, Prometheus metrics and cron-scheduled batch charging.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.recur" or "recur" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/lock/redislock"
	"github.com/xraph/recur/observability"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/publisher/amqp"
	"github.com/xraph/recur/scheduler"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/token"
	tokenmem "github.com/xraph/recur/token/memory"
	"github.com/xraph/recur/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "recur"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Recurring-billing ledger engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts recur as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *recur.Engine
	store      store.Store
	tokens     token.Ledger
	scheduler  *scheduler.Scheduler
	redis      *redis.Client
	engineOpts []recur.Option
}

// New creates a new recur Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying recur engine.
// This is nil until Register is called.
func (e *Extension) Engine() *recur.Engine { return e.engine }

// Scheduler returns the batch charge scheduler.
// This is nil until Register is called.
func (e *Extension) Scheduler() *scheduler.Scheduler { return e.scheduler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the recur engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory backends if none were provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}
	if e.tokens == nil {
		e.Logger().Warn("recur: no token ledger configured; using in-memory ledger")
		e.tokens = tokenmem.New()
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}

	e.engine = recur.New(e.store, e.tokens, opts...)
	e.scheduler = scheduler.New(e.engine,
		scheduler.WithLogger(slog.Default()),
		scheduler.WithRunTimeout(e.config.ScheduleTimeout),
	)

	if err := vessel.Provide(fapp.Container(), func() (*recur.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*scheduler.Scheduler, error) {
		return e.scheduler, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("recur: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	for _, sc := range e.config.Schedules {
		var opts []recur.BatchOption
		if sc.Limit > 0 {
			opts = append(opts, recur.WithBatchWindow(0, sc.Limit))
		}
		if err := e.scheduler.Add(offering.ID(sc.OfferingID), sc.Cron, opts...); err != nil {
			return err
		}
	}
	e.scheduler.Start()

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	defer e.MarkStopped()

	if e.scheduler != nil {
		select {
		case <-e.scheduler.Stop().Done():
		case <-ctx.Done():
		}
	}

	var errs []error
	if e.engine != nil {
		errs = append(errs, e.engine.Stop())
	}
	if e.redis != nil {
		errs = append(errs, e.redis.Close())
	}
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("recur: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs recur.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]recur.Option, error) {
	opts := make([]recur.Option, 0, len(e.engineOpts)+5)

	opts = append(opts,
		recur.WithSpender(types.Address(e.config.Spender)),
		recur.WithPluginTimeout(e.config.PluginTimeout),
	)

	if e.config.RedisURL != "" {
		redisOpts, err := redis.ParseURL(e.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("recur: redis url: %w", err)
		}
		e.redis = redis.NewClient(redisOpts)
		opts = append(opts, recur.WithLocker(redislock.New(e.redis, "recur:lock",
			redislock.WithTTL(e.config.LockTTL),
		)))
	}

	if e.config.AMQPURL != "" {
		var pub amqp.Publisher
		producer, err := amqp.Dial(e.config.AMQPURL, slog.Default())
		if err != nil {
			e.Logger().Warn("recur: amqp unavailable; events will not be published",
				forge.F("error", err.Error()),
			)
		} else {
			pub = producer
		}
		opts = append(opts, recur.WithPlugin(amqp.New(pub, amqp.WithExchange(e.config.AMQPExchange))))
	}

	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(nil)
		opts = append(opts, recur.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("recur: configuration is required but not found in config files; " +
				"ensure 'extensions.recur' or 'recur' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("recur: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("spender", e.config.Spender),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("redis_lock", e.config.RedisURL != ""),
		forge.F("amqp", e.config.AMQPURL != ""),
		forge.F("metrics", e.config.EnableMetrics),
		forge.F("schedules", len(e.config.Schedules)),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.recur" first (namespaced pattern).
	if cm.IsSet("extensions.recur") {
		if err := cm.Bind("extensions.recur", &cfg); err == nil {
			e.Logger().Debug("recur: loaded config from file",
				forge.F("key", "extensions.recur"),
			)
			return cfg, true
		}
		e.Logger().Warn("recur: failed to bind extensions.recur config",
			forge.F("error", "bind failed"),
		)
	}

	// Try top-level "recur" key.
	if cm.IsSet("recur") {
		if err := cm.Bind("recur", &cfg); err == nil {
			e.Logger().Debug("recur: loaded config from file",
				forge.F("key", "recur"),
			)
			return cfg, true
		}
		e.Logger().Warn("recur: failed to bind recur config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Spender == "" {
		cfg.Spender = defaults.Spender
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = defaults.AMQPExchange
	}
	if cfg.ScheduleTimeout == 0 {
		cfg.ScheduleTimeout = defaults.ScheduleTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Spender == "" {
		yamlConfig.Spender = programmaticConfig.Spender
	}
	if yamlConfig.RedisURL == "" {
		yamlConfig.RedisURL = programmaticConfig.RedisURL
	}
	if yamlConfig.AMQPURL == "" {
		yamlConfig.AMQPURL = programmaticConfig.AMQPURL
	}
	if yamlConfig.AMQPExchange == "" {
		yamlConfig.AMQPExchange = programmaticConfig.AMQPExchange
	}

	// Durations: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	if yamlConfig.LockTTL == 0 {
		yamlConfig.LockTTL = programmaticConfig.LockTTL
	}
	if yamlConfig.ScheduleTimeout == 0 {
		yamlConfig.ScheduleTimeout = programmaticConfig.ScheduleTimeout
	}

	// Schedules from both sources run.
	yamlConfig.Schedules = append(yamlConfig.Schedules, programmaticConfig.Schedules...)

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
