package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestScheduledRollover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Build June state: salary, rent, and a subscription template that
	// seeds immediately.
	*f.clock = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	f.svc.AddIncomeItem(ctx, AddItemRequest{Amount: decimal.NewFromInt(1000), Description: "salary", Category: "job"})
	f.svc.AddExpenseItem(ctx, AddItemRequest{Amount: decimal.NewFromInt(200), Description: "rent", Category: "housing"})
	f.svc.AddRecurringExpense(ctx, AddRecurringRequest{Amount: decimal.NewFromInt(50), Description: "subscription", Category: "media", DayOfMonth: 1})

	acc := f.account(t, "default")
	require.True(t, acc.Expenses.Equal(decimal.NewFromInt(250)))
	require.True(t, acc.Balance.Equal(decimal.NewFromInt(750)))

	// Month boundary.
	rollAt := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	f.svc.OnScheduledTick(ctx, rollAt)

	acc = f.account(t, "default")
	arch, ok := acc.History["2025_06"]
	require.True(t, ok, "history keys: %v", acc.History)
	require.True(t, arch.Income.Equal(decimal.NewFromInt(1000)))
	require.True(t, arch.Expenses.Equal(decimal.NewFromInt(250)))
	require.True(t, arch.Balance.Equal(decimal.NewFromInt(750)))
	require.Len(t, arch.IncomeItems, 1)
	require.Len(t, arch.ExpenseItems, 2)

	// Fresh month: only the re-materialized subscription.
	require.True(t, acc.Income.IsZero())
	require.True(t, acc.Expenses.Equal(decimal.NewFromInt(50)))
	require.True(t, acc.Balance.Equal(decimal.NewFromInt(-50)))
	require.Len(t, acc.ExpenseItems, 1)
	require.Equal(t, acc.RecurringExpenses[0].ID, acc.ExpenseItems[0].RecurringID)
	requireTotalsConsistent(t, acc)

	require.Len(t, *f.monthSigs, 1)
	require.Equal(t, 6, (*f.monthSigs)[0].Month)
	require.Equal(t, 2025, (*f.monthSigs)[0].Year)
	require.True(t, f.svc.LastReset().Equal(rollAt))
	require.True(t, f.db.lastReset.Equal(rollAt))
}

func TestRolloverIdempotentPerMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	*f.clock = time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	f.svc.AddRecurringExpense(ctx, AddRecurringRequest{Amount: decimal.NewFromInt(50), DayOfMonth: 28})

	rollAt := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	f.svc.OnScheduledTick(ctx, rollAt)
	f.svc.OnScheduledTick(ctx, rollAt.Add(time.Minute))

	acc := f.account(t, "default")
	require.Len(t, acc.History, 1, "one archive entry per month")
	require.Len(t, acc.ExpenseItems, 1, "one spawned item per template per month")
	require.Len(t, *f.monthSigs, 1)
}

func TestStartupCatchUp(t *testing.T) {
	ctx := context.Background()

	t.Run("month changed while down", func(t *testing.T) {
		f := newFixture(t)
		*f.clock = time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
		f.svc.AddIncomeItem(ctx, AddItemRequest{Amount: decimal.NewFromInt(300)})
		f.svc.lastReset = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

		f.svc.OnStartupCatchUp(ctx, time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC))

		acc := f.account(t, "default")
		require.Contains(t, acc.History, "2025_05")
		require.Empty(t, acc.IncomeItems)
	})

	t.Run("same month skips", func(t *testing.T) {
		f := newFixture(t)
		f.svc.lastReset = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		f.svc.OnStartupCatchUp(ctx, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
		require.Empty(t, f.account(t, "default").History)
	})

	t.Run("never reset skips", func(t *testing.T) {
		f := newFixture(t)
		f.svc.OnStartupCatchUp(ctx, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
		require.Empty(t, f.account(t, "default").History)
	})

	t.Run("exact rollover instant left to the tick", func(t *testing.T) {
		f := newFixture(t)
		f.svc.lastReset = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		f.svc.OnStartupCatchUp(ctx, time.Date(2025, 6, 1, 0, 0, 30, 0, time.UTC))
		require.Empty(t, f.account(t, "default").History)
	})
}

func TestSyncRecurringFillsMissingItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Template added on day 10 with day 5 already past: no seed.
	f.svc.AddRecurringExpense(ctx, AddRecurringRequest{Amount: decimal.NewFromInt(30), Description: "gym", DayOfMonth: 5})
	require.Empty(t, f.account(t, "default").ExpenseItems)

	savesBefore := f.db.saves
	f.svc.SyncRecurring(ctx, *f.clock)

	acc := f.account(t, "default")
	require.Len(t, acc.ExpenseItems, 1, "sync fills the missing month item")
	require.True(t, acc.Expenses.Equal(decimal.NewFromInt(30)))
	require.Equal(t, savesBefore+1, f.db.saves)
	requireTotalsConsistent(t, acc)

	// Second pass changes nothing and does not persist.
	f.svc.SyncRecurring(ctx, *f.clock)
	require.Len(t, f.account(t, "default").ExpenseItems, 1)
	require.Equal(t, savesBefore+1, f.db.saves)
}

func TestResetMonthRequiresYearAndMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.AddIncomeItem(ctx, AddItemRequest{Amount: decimal.NewFromInt(10)})

	f.svc.ResetMonth(ctx, ResetMonthRequest{})
	require.Empty(t, f.account(t, "default").History)

	f.svc.ResetMonth(ctx, ResetMonthRequest{Account: "ghost", Year: 2025, Month: 6})
	require.Empty(t, f.account(t, "default").History)

	f.svc.ResetMonth(ctx, ResetMonthRequest{Year: 2025, Month: 6})
	acc := f.account(t, "default")
	require.Len(t, acc.History, 1)
	require.Empty(t, acc.IncomeItems)
}

func TestRolloverArchivesEveryAccount(t *testing.T) {
	f := newFixture(t, "default", "savings")
	ctx := context.Background()

	f.svc.AddIncomeItem(ctx, AddItemRequest{Account: "savings", Amount: decimal.NewFromInt(500)})
	f.svc.OnScheduledTick(ctx, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))

	for _, name := range []string{"default", "savings"} {
		acc := f.account(t, name)
		require.Contains(t, acc.History, "2025_06", "account %s", name)
	}
	arch := f.account(t, "savings").History["2025_06"]
	require.True(t, arch.Income.Equal(decimal.NewFromInt(500)))
}
