// Package jobs hosts the vault's background work, currently the sync
// tombstone cleaner.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arlenn/secvault/internal/events"
	"github.com/arlenn/secvault/internal/storage"
)

// TombstoneStore is the slice of the relational store the cleaner
// needs.
type TombstoneStore interface {
	DeleteTombstones(ctx context.Context) (int64, error)
}

// Config holds the cleaner's tunables.
type Config struct {
	Schedule    time.Duration // how often the timer fires
	MaxAttempts int           // bound on busy/locked retries per pass
}

// DefaultConfig runs daily with five attempts per pass.
func DefaultConfig() Config {
	return Config{
		Schedule:    24 * time.Hour,
		MaxAttempts: 5,
	}
}

type trigger struct {
	manual bool
}

// TombstoneCleaner purges sync metadata rows pending deletion. Manual
// and timer triggers merge into one serialized stream: at most one pass
// runs at a time, and a trigger arriving mid-pass coalesces instead of
// queueing. An in-flight pass always runs to completion.
type TombstoneCleaner struct {
	store       TombstoneStore
	syncActive  func() bool
	reporter    events.Reporter
	schedule    time.Duration
	maxAttempts int

	triggerCh chan trigger
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewTombstoneCleaner creates a cleaner. syncActive is consulted before
// timer-triggered passes; manual triggers bypass it.
func NewTombstoneCleaner(store TombstoneStore, syncActive func() bool, reporter events.Reporter, cfg Config) *TombstoneCleaner {
	if reporter == nil {
		reporter = events.NopReporter{}
	}
	if syncActive == nil {
		syncActive = func() bool { return false }
	}
	return &TombstoneCleaner{
		store:       store,
		syncActive:  syncActive,
		reporter:    reporter,
		schedule:    cfg.Schedule,
		maxAttempts: cfg.MaxAttempts,
		triggerCh:   make(chan trigger, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the background loop.
func (tc *TombstoneCleaner) Start() {
	zap.L().Info("starting tombstone cleaner",
		zap.Duration("schedule", tc.schedule))
	go tc.loop()
}

// Stop cancels the recurring timer and waits for the loop to exit. A
// pass already underway finishes first; it is never cancelled mid-run.
func (tc *TombstoneCleaner) Stop() {
	close(tc.stopCh)
	<-tc.doneCh
	zap.L().Info("tombstone cleaner stopped")
}

// Trigger requests a manual cleanup pass. If a trigger is already
// pending the request coalesces with it.
func (tc *TombstoneCleaner) Trigger() {
	select {
	case tc.triggerCh <- trigger{manual: true}:
	default:
	}
}

func (tc *TombstoneCleaner) loop() {
	defer close(tc.doneCh)

	ticker := time.NewTicker(tc.schedule)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tc.RunPass(context.Background(), false)
		case tr := <-tc.triggerCh:
			tc.RunPass(context.Background(), tr.manual)
		case <-tc.stopCh:
			return
		}
	}
}

// RunPass executes one cleanup pass: a single transaction deleting all
// tombstoned sync metadata rows, retried on transient busy/locked
// errors up to the attempt bound with no delay between attempts.
// Returns the number of rows removed.
func (tc *TombstoneCleaner) RunPass(ctx context.Context, manual bool) int64 {
	if !manual && tc.syncActive() {
		zap.L().Info("skipping tombstone cleanup, sync in progress")
		tc.reporter.Report(events.CleanupSkipped{Reason: "syncActive"})
		return 0
	}

	var lastErr error
	for attempt := 1; attempt <= tc.maxAttempts; attempt++ {
		count, err := tc.store.DeleteTombstones(ctx)
		if err == nil {
			zap.L().Info("tombstone cleanup complete", zap.Int64("removed", count))
			return count
		}

		lastErr = err
		if !storage.IsTransient(err) {
			tc.reporter.Report(events.CleanupFailed{Err: err, Attempts: attempt})
			zap.L().Error("tombstone cleanup failed", zap.Error(err),
				zap.Int("attempts", attempt))
			return 0
		}
	}

	tc.reporter.Report(events.CleanupFailed{Err: lastErr, Attempts: tc.maxAttempts})
	zap.L().Error("tombstone cleanup exhausted retries", zap.Error(lastErr),
		zap.Int("attempts", tc.maxAttempts))
	return 0
}
