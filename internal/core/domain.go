package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts serialize as bare JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrItemNotFound   = errors.New("item not found")
	ErrInvalidAmount  = errors.New("amount must be non-negative")
	ErrInvalidDay     = errors.New("day_of_month must be between 1 and 31")
)

// Item is a single realized income or expense entry for the current month.
// RecurringID links back to the template that spawned it; it is empty for
// items entered by hand.
type Item struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Timestamp   time.Time       `json:"timestamp"`
	RecurringID string          `json:"recurring_id,omitempty"`
}

// RecurringTemplate spawns one Item per month while active. EndDate is an
// optional calendar date (YYYY-MM-DD); the template is inert strictly
// after it.
type RecurringTemplate struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	DayOfMonth  int             `json:"day_of_month"`
	CreatedAt   time.Time       `json:"created_at"`
	EndDate     string          `json:"end_date,omitempty"`
}

// MonthArchive is a frozen copy of one month captured at rollover time.
type MonthArchive struct {
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Balance      decimal.Decimal `json:"balance"`
	IncomeItems  []Item          `json:"income_items"`
	ExpenseItems []Item          `json:"expense_items"`
}

// Account is one account's full financial state: the current month's items
// and templates plus the archived history. Income, Expenses and Balance
// are derived from the item lists alone; templates never contribute
// directly.
type Account struct {
	Income            decimal.Decimal         `json:"income"`
	Expenses          decimal.Decimal         `json:"expenses"`
	Balance           decimal.Decimal         `json:"balance"`
	IncomeItems       []Item                  `json:"income_items"`
	ExpenseItems      []Item                  `json:"expense_items"`
	RecurringIncomes  []RecurringTemplate     `json:"recurring_incomes"`
	RecurringExpenses []RecurringTemplate     `json:"recurring_expenses"`
	History           map[string]MonthArchive `json:"history"`
}

// Snapshot is the full serialized state of all accounts.
type Snapshot map[string]*Account

// NewAccount returns an empty ledger for a freshly registered account.
func NewAccount() *Account {
	return &Account{
		IncomeItems:       []Item{},
		ExpenseItems:      []Item{},
		RecurringIncomes:  []RecurringTemplate{},
		RecurringExpenses: []RecurringTemplate{},
		History:           map[string]MonthArchive{},
	}
}

// Normalize fills nil collections after JSON decoding so that callers can
// append without nil checks.
func (a *Account) Normalize() {
	if a.IncomeItems == nil {
		a.IncomeItems = []Item{}
	}
	if a.ExpenseItems == nil {
		a.ExpenseItems = []Item{}
	}
	if a.RecurringIncomes == nil {
		a.RecurringIncomes = []RecurringTemplate{}
	}
	if a.RecurringExpenses == nil {
		a.RecurringExpenses = []RecurringTemplate{}
	}
	if a.History == nil {
		a.History = map[string]MonthArchive{}
	}
}

// Clone returns a deep copy safe to hand to readers outside the
// store's mutation lock.
func (a *Account) Clone() *Account {
	out := &Account{
		Income:            a.Income,
		Expenses:          a.Expenses,
		Balance:           a.Balance,
		IncomeItems:       append([]Item{}, a.IncomeItems...),
		ExpenseItems:      append([]Item{}, a.ExpenseItems...),
		RecurringIncomes:  append([]RecurringTemplate{}, a.RecurringIncomes...),
		RecurringExpenses: append([]RecurringTemplate{}, a.RecurringExpenses...),
		History:           make(map[string]MonthArchive, len(a.History)),
	}
	for key, arch := range a.History {
		arch.IncomeItems = append([]Item{}, arch.IncomeItems...)
		arch.ExpenseItems = append([]Item{}, arch.ExpenseItems...)
		out.History[key] = arch
	}
	return out
}

// RecomputeTotals re-derives income, expenses and balance from the item
// lists. Call after every mutation of either list.
func (a *Account) RecomputeTotals() {
	income := decimal.Zero
	for _, it := range a.IncomeItems {
		income = income.Add(it.Amount)
	}
	expenses := decimal.Zero
	for _, it := range a.ExpenseItems {
		expenses = expenses.Add(it.Amount)
	}
	a.Income = income
	a.Expenses = expenses
	a.Balance = income.Sub(expenses)
}

// MonthKey formats t's year and month as a history key, e.g. "2025_03".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d_%02d", t.Year(), int(t.Month()))
}

// PreviousMonth returns the last day of the month before t.
func PreviousMonth(t time.Time) time.Time {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return firstOfMonth.AddDate(0, 0, -1)
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func ValidateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	return nil
}
