package service

import (
	"github.com/shopspring/decimal"

	"github.com/MendoxIta/haos-budget/internal/core"
)

// DefaultAccount is used when a command omits the account name.
const DefaultAccount = "default"

// AddItemRequest adds one income or expense line to an account.
type AddItemRequest struct {
	Account     string
	Amount      decimal.Decimal
	Description string
	Category    string
}

func (r AddItemRequest) Validate() error {
	return core.ValidateAmount(r.Amount)
}

// RemoveItemRequest removes one item by id.
type RemoveItemRequest struct {
	Account string
	ItemID  string
}

func (r RemoveItemRequest) Validate() error {
	if r.ItemID == "" {
		return core.ErrItemNotFound
	}
	return nil
}

// AddRecurringRequest registers a recurring template. EndDate is an
// optional YYYY-MM-DD date after which the template goes inert.
type AddRecurringRequest struct {
	Account     string
	Amount      decimal.Decimal
	Description string
	Category    string
	DayOfMonth  int
	EndDate     string
}

func (r AddRecurringRequest) Validate() error {
	if err := core.ValidateAmount(r.Amount); err != nil {
		return err
	}
	return core.ValidateDayOfMonth(r.DayOfMonth)
}

// RemoveRecurringRequest removes a recurring template and cascades to
// the month items it spawned.
type RemoveRecurringRequest struct {
	Account string
	ItemID  string
}

func (r RemoveRecurringRequest) Validate() error {
	if r.ItemID == "" {
		return core.ErrItemNotFound
	}
	return nil
}

// ClearMonthItemsRequest wipes the current month's items per the flags,
// optionally restricted to one category. Recurring templates are left
// untouched.
type ClearMonthItemsRequest struct {
	Account       string
	ClearIncome   bool
	ClearExpenses bool
	Category      string
}

// SetTotalRequest backs the deprecated set_income / set_expenses
// commands, which now append an item instead of overwriting the total.
type SetTotalRequest struct {
	Account string
	Amount  decimal.Decimal
}

func (r SetTotalRequest) Validate() error {
	return core.ValidateAmount(r.Amount)
}

// ResetMonthRequest forces an archive-and-reset. Year and Month must
// both be supplied for the command to act; Account, when set, must name
// a configured account.
type ResetMonthRequest struct {
	Account string
	Year    int
	Month   int
}

func accountOrDefault(name string) string {
	if name == "" {
		return DefaultAccount
	}
	return name
}
