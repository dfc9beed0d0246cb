package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/MendoxIta/haos-budget/internal/core"
	"github.com/MendoxIta/haos-budget/internal/ledger"
)

// OnScheduledTick runs the month rollover when the scheduler fires at
// 00:00 on day 1. It is idempotent per month: a second tick in the same
// month is a logged no-op.
func (s *Service) OnScheduledTick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastReset.IsZero() && core.SameMonth(s.lastReset, now) {
		slog.DebugContext(ctx, "Rollover already done for this month",
			"last_reset", s.lastReset)
		return
	}
	slog.InfoContext(ctx, "New month detected, archiving budget data and resetting")
	s.rolloverLocked(ctx, now)
}

// OnStartupCatchUp runs once at process start. If the month changed
// while the process was down it performs the missed rollover, unless the
// current moment is itself the scheduled rollover instant (the tick will
// handle that one).
func (s *Service) OnStartupCatchUp(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastReset.IsZero() {
		slog.DebugContext(ctx, "No previous reset recorded, skipping startup catch-up")
		return
	}
	if core.SameMonth(s.lastReset, now) {
		return
	}
	if now.Day() == 1 && now.Hour() == 0 && now.Minute() == 0 {
		// The scheduled tick fires for this instant; don't run twice.
		return
	}
	slog.InfoContext(ctx, "Month changed while the process was down, archiving data",
		"last_reset", s.lastReset)
	s.rolloverLocked(ctx, now)
}

// ResetMonth forces an archive-and-reset. Both year and month must be
// supplied; an account filter, when given, must name a configured
// account.
func (s *Service) ResetMonth(ctx context.Context, req ResetMonthRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Year == 0 || req.Month == 0 {
		slog.WarnContext(ctx, "reset_month requires both year and month",
			"year", req.Year,
			"month", req.Month)
		return
	}
	if req.Account != "" {
		if _, ok := s.store.Account(req.Account); !ok {
			slog.WarnContext(ctx, "Account not found", "account", req.Account)
			return
		}
	}
	slog.InfoContext(ctx, "Forced month reset requested",
		"account", req.Account,
		"year", req.Year,
		"month", req.Month)
	s.rolloverLocked(ctx, s.now())
}

// rolloverLocked archives the current month of every account, resets
// items and totals, re-materializes active templates and persists.
// Order per account: archive, reset, re-materialize, recompute.
func (s *Service) rolloverLocked(ctx context.Context, now time.Time) {
	prev := core.PreviousMonth(now)
	key := core.MonthKey(prev)
	slog.InfoContext(ctx, "Starting monthly archive and reset", "archive_key", key)

	for _, name := range s.store.Names() {
		acc, ok := s.store.Account(name)
		if !ok {
			continue
		}

		acc.History[key] = core.MonthArchive{
			Income:       acc.Income,
			Expenses:     acc.Expenses,
			Balance:      acc.Balance,
			IncomeItems:  acc.IncomeItems,
			ExpenseItems: acc.ExpenseItems,
		}
		slog.InfoContext(ctx, "Archived month",
			"account", name,
			"archive_key", key,
			"income", acc.Income,
			"expenses", acc.Expenses,
			"balance", acc.Balance)

		acc.IncomeItems = []core.Item{}
		acc.ExpenseItems = []core.Item{}

		for _, tpl := range acc.RecurringIncomes {
			if !ledger.ActiveAt(ctx, tpl, now) {
				slog.DebugContext(ctx, "Skipping expired recurring income",
					"recurring_id", tpl.ID, "end_date", tpl.EndDate)
				continue
			}
			acc.IncomeItems = append(acc.IncomeItems, ledger.Materialize(tpl, now))
		}
		for _, tpl := range acc.RecurringExpenses {
			if !ledger.ActiveAt(ctx, tpl, now) {
				slog.DebugContext(ctx, "Skipping expired recurring expense",
					"recurring_id", tpl.ID, "end_date", tpl.EndDate)
				continue
			}
			acc.ExpenseItems = append(acc.ExpenseItems, ledger.Materialize(tpl, now))
		}
		acc.RecomputeTotals()

		slog.InfoContext(ctx, "New month initialized",
			"account", name,
			"income", acc.Income,
			"expenses", acc.Expenses,
			"balance", acc.Balance)
	}

	s.lastReset = now
	if err := s.db.SaveLastReset(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Failed to save last reset marker", "error", err)
	}
	if err := s.db.Save(ctx, s.store.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to save budget snapshot after rollover, in-memory state kept",
			"error", err)
	}

	if err := s.notifier.MonthChanged(ctx, int(prev.Month()), prev.Year()); err != nil {
		slog.WarnContext(ctx, "Failed to publish month change", "error", err)
	}
	if err := s.notifier.LedgerChanged(ctx, ""); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger change", "error", err)
	}
	slog.InfoContext(ctx, "Monthly archive and reset completed")
}

// SyncRecurring reconciles templates with the current month: every
// active template lacking a spawned item this month gets one. Runs once
// at setup; persists only when something changed.
func (s *Service) SyncRecurring(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.InfoContext(ctx, "Synchronizing recurring templates with current month items")
	changed := false

	for _, name := range s.store.Names() {
		acc, ok := s.store.Account(name)
		if !ok {
			continue
		}
		accountChanged := false

		spawnedIncome := spawnedIDs(acc.IncomeItems)
		for _, tpl := range acc.RecurringIncomes {
			if !ledger.ActiveAt(ctx, tpl, now) {
				continue
			}
			if spawnedIncome[tpl.ID] {
				continue
			}
			acc.IncomeItems = append(acc.IncomeItems, ledger.Materialize(tpl, now))
			slog.InfoContext(ctx, "Created missing income item for recurring template",
				"account", name,
				"recurring_id", tpl.ID,
				"amount", tpl.Amount)
			accountChanged = true
		}

		spawnedExpense := spawnedIDs(acc.ExpenseItems)
		for _, tpl := range acc.RecurringExpenses {
			if !ledger.ActiveAt(ctx, tpl, now) {
				continue
			}
			if spawnedExpense[tpl.ID] {
				continue
			}
			acc.ExpenseItems = append(acc.ExpenseItems, ledger.Materialize(tpl, now))
			slog.InfoContext(ctx, "Created missing expense item for recurring template",
				"account", name,
				"recurring_id", tpl.ID,
				"amount", tpl.Amount)
			accountChanged = true
		}

		if accountChanged {
			acc.RecomputeTotals()
			changed = true
		}
	}

	if !changed {
		slog.DebugContext(ctx, "Recurring synchronization needed no changes")
		return
	}
	if err := s.db.Save(ctx, s.store.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to save budget snapshot after sync, in-memory state kept",
			"error", err)
	}
	if err := s.notifier.LedgerChanged(ctx, ""); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger change", "error", err)
	}
	slog.InfoContext(ctx, "Recurring synchronization completed with updates")
}

func spawnedIDs(items []core.Item) map[string]bool {
	out := map[string]bool{}
	for _, it := range items {
		if it.RecurringID != "" {
			out[it.RecurringID] = true
		}
	}
	return out
}

// LastReset returns the timestamp of the last completed rollover.
func (s *Service) LastReset() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReset
}
