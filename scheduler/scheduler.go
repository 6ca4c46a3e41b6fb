// Package scheduler runs ChargeAll for registered offerings on cron
// schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/offering"
)

// Charger is the part of the engine the scheduler drives.
type Charger interface {
	ChargeAll(ctx context.Context, offeringID offering.ID, opts ...recur.BatchOption) (*charge.BatchResult, error)
}

// Scheduler manages one cron job per offering.
type Scheduler struct {
	cron    *cron.Cron
	engine  Charger
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	entries map[offering.ID]cron.EntryID
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithRunTimeout bounds each ChargeAll run. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New creates a scheduler over engine. Jobs run in the cron's local time
// zone unless a spec carries CRON_TZ.
func New(engine Charger, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine:  engine,
		logger:  slog.Default(),
		timeout: 5 * time.Minute,
		entries: make(map[offering.ID]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo))
	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	return s
}

// Add schedules ChargeAll for offeringID on a standard five-field cron spec,
// replacing any earlier schedule for the same offering.
func (s *Scheduler) Add(offeringID offering.ID, spec string, opts ...recur.BatchOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(spec, func() {
		_, _ = s.Run(context.Background(), offeringID, opts...)
	})
	if err != nil {
		return fmt.Errorf("scheduler: offering %s: %w", offeringID, err)
	}

	if prev, ok := s.entries[offeringID]; ok {
		s.cron.Remove(prev)
	}
	s.entries[offeringID] = entryID

	s.logger.Info("scheduled batch charge", "offering_id", offeringID, "schedule", spec)
	return nil
}

// Remove unschedules offeringID. It reports whether a schedule existed.
func (s *Scheduler) Remove(offeringID offering.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[offeringID]
	if !ok {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.entries, offeringID)
	return true
}

// Scheduled returns the offerings that currently have a schedule.
func (s *Scheduler) Scheduled() []offering.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]offering.ID, 0, len(s.entries))
	for offeringID := range s.entries {
		ids = append(ids, offeringID)
	}
	return ids
}

// Run executes one batch for offeringID immediately. It is the body of
// every scheduled job. An inactive offering is skipped quietly and a
// missing one drops its schedule.
func (s *Scheduler) Run(ctx context.Context, offeringID offering.ID, opts ...recur.BatchOption) (*charge.BatchResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.engine.ChargeAll(ctx, offeringID, opts...)
	switch {
	case err == nil:
	case errors.Is(err, recur.ErrOfferingNotActive):
		s.logger.Debug("batch charge skipped: offering not active", "offering_id", offeringID)
		return nil, err
	case errors.Is(err, recur.ErrOfferingNotFound):
		s.logger.Warn("batch charge: offering not found, removing schedule", "offering_id", offeringID)
		s.Remove(offeringID)
		return nil, err
	default:
		s.logger.Error("batch charge failed", "offering_id", offeringID, "error", err)
		return nil, err
	}

	s.logger.Info("batch charge completed",
		"offering_id", offeringID,
		"batch_id", result.ID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"collected", result.Collected(),
	)
	if batchErr := recur.BatchError(result); batchErr != nil {
		s.logger.Warn("batch charge had failures", "offering_id", offeringID, "error", batchErr)
	}
	return result, nil
}

// Start starts the cron scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
