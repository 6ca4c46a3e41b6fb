// Package recur provides a recurring-billing ledger engine for Go
// applications.
//
// Recur is designed as a library, not a service. Service providers publish
// offerings (a fixed amount per fixed period), subscribers opt in after
// authorizing the engine to debit them on an external token ledger, and any
// authorized party triggers charges once a billing period has elapsed.
//
//   - Offering registry with pause, unpause and cascading cancel
//   - Subscription ledger with lifetime metrics that survive re-subscription
//   - Charge engine with single and batch charging, and scheduled due times
//   - Read-only eligibility queries for external schedulers
//   - Pluggable persistence (memory, PostgreSQL, SQLite, MongoDB)
//   - Plugins for metrics, audit trail and event publishing
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/recur"
//	    "github.com/xraph/recur/store/memory"
//	    tokenmem "github.com/xraph/recur/token/memory"
//	)
//
//	tokens := tokenmem.New()
//	engine := recur.New(memory.New(), tokens)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// An offering is created by its owner:
//
//	o, err := engine.CreateOffering(ctx, "provider", offering.Params{
//	    ServiceID:       "pro-plan",
//	    Recipient:       "provider-treasury",
//	    AmountPerPeriod: recur.Tokens(10),
//	    PeriodSeconds:   7 * 24 * 3600,
//	})
//
// A subscriber authorizes the engine's spender on the token ledger, then
// subscribes. The first charge is due one full period later:
//
//	tokens.Approve("alice", engine.Spender(), recur.Tokens(100))
//	sub, err := engine.Subscribe(ctx, "alice", o.ID)
//
// Charges are triggered by the owner, the recipient or the subscriber:
//
//	if engine.CanCharge(ctx, o.ID, "alice") {
//	    receipt, err := engine.Charge(ctx, "provider", o.ID, "alice")
//	}
//
// or for every due subscriber at once by anyone:
//
//	result, err := engine.ChargeAll(ctx, o.ID)
//
// # Amounts
//
// Amounts are unsigned integers in micro-units (6 decimals). Tokens(1) is
// 1_000_000 micro-units.
//
// # Errors
//
// Every error matches one kind sentinel (ErrNotFound, ErrNotActive,
// ErrUnauthorized, ...) as well as its specific sentinel, and typed errors
// such as PeriodNotElapsedError carry the context needed to act on them:
//
//	var pe *recur.PeriodNotElapsedError
//	if errors.As(err, &pe) {
//	    retryIn(pe.Remaining)
//	}
//
// # TypeID
//
// Offerings use sequential numeric ids. Charge receipts, events and batch
// runs use TypeIDs:
//
//	chg_01h2xcejqtf2nbrexx3vqjhp41    // Charge receipt
//	evt_01h2xcejqtf2nbrexx3vqjhp41    // Event
//	batch_01h455vb4pex5vsknk084sn02q  // ChargeAll run
//
// # Packages
//
// Stores live under store/ (memory, postgres, sqlite, mongo). lock/redislock
// serializes offerings across processes. scheduler runs ChargeAll on cron
// schedules, publisher/amqp forwards events to RabbitMQ, observability and
// audit_hook are plugins, and extension wires all of it into a Forge app.
package recur
