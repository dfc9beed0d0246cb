// Package service implements the command handlers and the month
// rollover controller on top of the in-memory ledger store.
//
// Every mutation runs the same sequence under one mutex: resolve the
// account, apply a single transition, recompute totals from items,
// persist the whole snapshot, notify. Failures are logged, never
// surfaced to the caller; the in-memory ledger stays authoritative even
// when every persist call fails.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MendoxIta/haos-budget/internal/core"
	"github.com/MendoxIta/haos-budget/internal/ledger"
	"github.com/MendoxIta/haos-budget/internal/notify"
	"github.com/MendoxIta/haos-budget/internal/persist"
)

type itemKind int

const (
	kindIncome itemKind = iota
	kindExpense
)

func (k itemKind) String() string {
	if k == kindIncome {
		return "income"
	}
	return "expense"
}

// Service owns the ledger store and serializes every
// read-modify-persist sequence through one mutex.
type Service struct {
	mu       sync.Mutex
	store    *ledger.Store
	db       persist.Store
	notifier notify.Notifier

	lastReset time.Time
	now       func() time.Time
}

func New(store *ledger.Store, db persist.Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		store:    store,
		db:       db,
		notifier: notifier,
		now:      time.Now,
	}
}

// Setup loads the persisted snapshot and last-reset marker into memory.
// A missing snapshot is an empty default, not an error.
func (s *Service) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.db.Load(ctx)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			return err
		}
		slog.InfoContext(ctx, "No stored snapshot, starting with empty ledgers")
		snap = core.Snapshot{}
	}
	s.store.Replace(snap)

	lastReset, err := s.db.LoadLastReset(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load last reset marker", "error", err)
	} else {
		s.lastReset = lastReset
	}

	slog.InfoContext(ctx, "Loaded budget snapshot",
		"accounts", len(s.store.Names()),
		"last_reset", s.lastReset)
	return nil
}

// AddIncomeItem appends one income line and updates totals.
func (s *Service) AddIncomeItem(ctx context.Context, req AddItemRequest) {
	s.addItem(ctx, req, kindIncome)
}

// AddExpenseItem appends one expense line and updates totals.
func (s *Service) AddExpenseItem(ctx context.Context, req AddItemRequest) {
	s.addItem(ctx, req, kindExpense)
}

func (s *Service) addItem(ctx context.Context, req AddItemRequest, kind itemKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := accountOrDefault(req.Account)
	acc, ok := s.store.Account(account)
	if !ok {
		slog.WarnContext(ctx, "Account not found", "account", account)
		return
	}

	item := core.Item{
		ID:          uuid.NewString(),
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Timestamp:   s.now(),
	}
	if kind == kindIncome {
		acc.IncomeItems = append(acc.IncomeItems, item)
	} else {
		acc.ExpenseItems = append(acc.ExpenseItems, item)
	}
	acc.RecomputeTotals()

	slog.DebugContext(ctx, "Added item",
		"kind", kind.String(),
		"account", account,
		"amount", req.Amount,
		"item_id", item.ID)

	s.persistAndNotifyLocked(ctx, account)
}

// RemoveItem removes the item with the given id from whichever list
// holds it, income checked first. A missing id is a logged no-op.
func (s *Service) RemoveItem(ctx context.Context, req RemoveItemRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ItemID == "" {
		slog.WarnContext(ctx, "No item ID provided")
		return
	}
	account := accountOrDefault(req.Account)
	acc, ok := s.store.Account(account)
	if !ok {
		slog.WarnContext(ctx, "Account not found", "account", account)
		return
	}

	for i, it := range acc.IncomeItems {
		if it.ID == req.ItemID {
			acc.IncomeItems = append(acc.IncomeItems[:i], acc.IncomeItems[i+1:]...)
			acc.RecomputeTotals()
			slog.DebugContext(ctx, "Removed income item", "account", account, "item_id", req.ItemID)
			s.persistAndNotifyLocked(ctx, account)
			return
		}
	}
	for i, it := range acc.ExpenseItems {
		if it.ID == req.ItemID {
			acc.ExpenseItems = append(acc.ExpenseItems[:i], acc.ExpenseItems[i+1:]...)
			acc.RecomputeTotals()
			slog.DebugContext(ctx, "Removed expense item", "account", account, "item_id", req.ItemID)
			s.persistAndNotifyLocked(ctx, account)
			return
		}
	}
	slog.WarnContext(ctx, "Item not found", "account", account, "item_id", req.ItemID)
}

// AddRecurringIncome registers an income template and seeds the current
// month's item when the template's day has not yet passed.
func (s *Service) AddRecurringIncome(ctx context.Context, req AddRecurringRequest) {
	s.addRecurring(ctx, req, kindIncome)
}

// AddRecurringExpense registers an expense template and seeds the
// current month's item when the template's day has not yet passed.
func (s *Service) AddRecurringExpense(ctx context.Context, req AddRecurringRequest) {
	s.addRecurring(ctx, req, kindExpense)
}

func (s *Service) addRecurring(ctx context.Context, req AddRecurringRequest, kind itemKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := accountOrDefault(req.Account)
	acc, ok := s.store.Account(account)
	if !ok {
		slog.WarnContext(ctx, "Account not found", "account", account)
		return
	}

	now := s.now()
	tpl := core.RecurringTemplate{
		ID:          uuid.NewString(),
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		DayOfMonth:  req.DayOfMonth,
		CreatedAt:   now,
		EndDate:     req.EndDate,
	}
	if kind == kindIncome {
		acc.RecurringIncomes = append(acc.RecurringIncomes, tpl)
	} else {
		acc.RecurringExpenses = append(acc.RecurringExpenses, tpl)
	}

	if ledger.ShouldMaterialize(ctx, tpl, now) {
		item := ledger.Materialize(tpl, now)
		if kind == kindIncome {
			acc.IncomeItems = append(acc.IncomeItems, item)
		} else {
			acc.ExpenseItems = append(acc.ExpenseItems, item)
		}
		slog.DebugContext(ctx, "Seeded current month from new template",
			"kind", kind.String(),
			"account", account,
			"recurring_id", tpl.ID,
			"item_id", item.ID)
	}
	acc.RecomputeTotals()

	s.persistAndNotifyLocked(ctx, account)
}

// RemoveRecurringItem removes a template by id and cascades to every
// current-month item it spawned.
func (s *Service) RemoveRecurringItem(ctx context.Context, req RemoveRecurringRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ItemID == "" {
		slog.WarnContext(ctx, "No item ID provided")
		return
	}
	account := accountOrDefault(req.Account)
	acc, ok := s.store.Account(account)
	if !ok {
		slog.WarnContext(ctx, "Account not found", "account", account)
		return
	}

	removed := false
	for i, tpl := range acc.RecurringIncomes {
		if tpl.ID == req.ItemID {
			acc.RecurringIncomes = append(acc.RecurringIncomes[:i], acc.RecurringIncomes[i+1:]...)
			acc.IncomeItems = dropSpawned(acc.IncomeItems, req.ItemID)
			removed = true
			break
		}
	}
	if !removed {
		for i, tpl := range acc.RecurringExpenses {
			if tpl.ID == req.ItemID {
				acc.RecurringExpenses = append(acc.RecurringExpenses[:i], acc.RecurringExpenses[i+1:]...)
				acc.ExpenseItems = dropSpawned(acc.ExpenseItems, req.ItemID)
				removed = true
				break
			}
		}
	}
	if !removed {
		slog.WarnContext(ctx, "Recurring item not found", "account", account, "item_id", req.ItemID)
		return
	}

	acc.RecomputeTotals()
	slog.InfoContext(ctx, "Removed recurring item and its spawned items",
		"account", account,
		"recurring_id", req.ItemID,
		"income", acc.Income,
		"expenses", acc.Expenses)

	s.persistAndNotifyLocked(ctx, account)
}

func dropSpawned(items []core.Item, recurringID string) []core.Item {
	kept := items[:0]
	for _, it := range items {
		if it.RecurringID != recurringID {
			kept = append(kept, it)
		}
	}
	return kept
}

// ClearMonthItems removes current-month items per the request flags and
// optional category filter. Persists and notifies only when something
// was actually removed.
func (s *Service) ClearMonthItems(ctx context.Context, req ClearMonthItemsRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := accountOrDefault(req.Account)
	acc, ok := s.store.Account(account)
	if !ok {
		slog.WarnContext(ctx, "Account not found", "account", account)
		return
	}

	modified := false
	if req.ClearIncome {
		if cleared, changed := clearItems(acc.IncomeItems, req.Category); changed {
			acc.IncomeItems = cleared
			modified = true
		}
	}
	if req.ClearExpenses {
		if cleared, changed := clearItems(acc.ExpenseItems, req.Category); changed {
			acc.ExpenseItems = cleared
			modified = true
		}
	}
	acc.RecomputeTotals()

	if !modified {
		slog.DebugContext(ctx, "Clear month items removed nothing", "account", account)
		return
	}
	slog.InfoContext(ctx, "Cleared month items",
		"account", account,
		"category_filter", req.Category)
	s.persistAndNotifyLocked(ctx, account)
}

func clearItems(items []core.Item, category string) ([]core.Item, bool) {
	if category == "" {
		if len(items) == 0 {
			return items, false
		}
		return []core.Item{}, true
	}
	kept := make([]core.Item, 0, len(items))
	for _, it := range items {
		if it.Category != category {
			kept = append(kept, it)
		}
	}
	return kept, len(kept) != len(items)
}

// SetIncome is deprecated; it appends an income item instead of
// overwriting the total.
func (s *Service) SetIncome(ctx context.Context, req SetTotalRequest) {
	slog.WarnContext(ctx, "The set_income command is deprecated, use add_income_item instead")
	s.addItem(ctx, AddItemRequest{
		Account:     req.Account,
		Amount:      req.Amount,
		Description: "Income Entry (via deprecated service)",
		Category:    "Legacy",
	}, kindIncome)
}

// SetExpenses is deprecated; it appends an expense item instead of
// overwriting the total.
func (s *Service) SetExpenses(ctx context.Context, req SetTotalRequest) {
	slog.WarnContext(ctx, "The set_expenses command is deprecated, use add_expense_item instead")
	s.addItem(ctx, AddItemRequest{
		Account:     req.Account,
		Amount:      req.Amount,
		Description: "Expense Entry (via deprecated service)",
		Category:    "Legacy",
	}, kindExpense)
}

// RemoveAccount drops an account's ledger from the store and the
// persisted snapshot, typically on instance unload.
func (s *Service) RemoveAccount(ctx context.Context, account string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Remove(account) {
		slog.WarnContext(ctx, "Account not found", "account", account)
		return
	}
	slog.InfoContext(ctx, "Removed account from ledger", "account", account)
	s.persistAndNotifyLocked(ctx, account)
}

// Account returns a deep copy of one account's ledger for read-only
// consumers.
func (s *Service) Account(name string) (*core.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.store.Account(accountOrDefault(name))
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

// AccountNames lists the configured accounts.
func (s *Service) AccountNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Names()
}

// persistAndNotifyLocked saves the whole snapshot and announces the
// change. A failed save is logged; the in-memory state is kept and the
// next successful save will carry it.
//
// The notifier runs while s.mu is held, so notifier implementations
// must not call back into the service.
func (s *Service) persistAndNotifyLocked(ctx context.Context, account string) {
	if err := s.db.Save(ctx, s.store.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to save budget snapshot, in-memory state kept",
			"error", err,
			"account", account)
	}
	if err := s.notifier.LedgerChanged(ctx, account); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger change", "error", err)
	}
}
