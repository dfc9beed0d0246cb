// Package worker schedules the month rollover and runs the startup
// reconciliation passes.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RolloverService is the slice of the ledger service the worker drives.
type RolloverService interface {
	OnScheduledTick(ctx context.Context, now time.Time)
	OnStartupCatchUp(ctx context.Context, now time.Time)
	SyncRecurring(ctx context.Context, now time.Time)
}

// RolloverWorker fires the rollover at 00:00:00 on day 1 of each month,
// wall clock. On Start it first runs the startup catch-up and the
// recurring reconciliation synchronously, so commands served afterwards
// see a consistent month.
type RolloverWorker struct {
	svc RolloverService
	now func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRolloverWorker(svc RolloverService) *RolloverWorker {
	return &RolloverWorker{
		svc: svc,
		now: time.Now,
	}
}

// Start runs the startup passes and begins the scheduling loop.
// Returns an error if already running.
func (w *RolloverWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("rollover worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	now := w.now()
	w.svc.OnStartupCatchUp(ctx, now)
	w.svc.SyncRecurring(ctx, now)

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Rollover worker started",
		"next_rollover", NextRollover(now))
	return nil
}

// Stop gracefully stops the worker and waits for the loop to exit.
func (w *RolloverWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Rollover worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Rollover worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the worker loop is active.
func (w *RolloverWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *RolloverWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		now := w.now()
		timer := time.NewTimer(time.Until(NextRollover(now)))

		select {
		case <-w.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.svc.OnScheduledTick(ctx, w.now())
		}
	}
}

// NextRollover returns the next first-of-month midnight strictly after
// now, in now's location.
func NextRollover(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	return next
}
