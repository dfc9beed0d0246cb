package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRecomputeTotals(t *testing.T) {
	a := NewAccount()
	a.IncomeItems = append(a.IncomeItems,
		Item{ID: "1", Amount: decimal.NewFromInt(1000)},
		Item{ID: "2", Amount: decimal.RequireFromString("250.50")},
	)
	a.ExpenseItems = append(a.ExpenseItems,
		Item{ID: "3", Amount: decimal.NewFromInt(200)},
	)
	a.RecomputeTotals()

	if !a.Income.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("income = %s", a.Income)
	}
	if !a.Expenses.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expenses = %s", a.Expenses)
	}
	if !a.Balance.Equal(decimal.RequireFromString("1050.50")) {
		t.Fatalf("balance = %s", a.Balance)
	}
}

func TestRecomputeTotalsEmpty(t *testing.T) {
	a := NewAccount()
	a.RecomputeTotals()
	if !a.Income.IsZero() || !a.Expenses.IsZero() || !a.Balance.IsZero() {
		t.Fatalf("expected zero totals, got %s/%s/%s", a.Income, a.Expenses, a.Balance)
	}
}

func TestMonthKey(t *testing.T) {
	cases := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "2025_03"},
		{time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), "2025_12"},
		{time.Date(999, 1, 1, 0, 0, 0, 0, time.UTC), "0999_01"},
	}
	for i, tc := range cases {
		if got := MonthKey(tc.t); got != tc.want {
			t.Fatalf("case %d: got %q want %q", i, got, tc.want)
		}
	}
}

func TestPreviousMonth(t *testing.T) {
	got := PreviousMonth(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if got.Year() != 2024 || got.Month() != time.December {
		t.Fatalf("got %v", got)
	}
	if MonthKey(got) != "2024_12" {
		t.Fatalf("key %q", MonthKey(got))
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 100 ", "100", true},
		{"0", "0", true},
		{"-5", "", false},
		{"", "", false},
		{"abc", "", false},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("case %d expected error", i)
			}
			continue
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("case %d: got %s want %s", i, got, tc.want)
		}
	}
}

func TestAmountJSONNumber(t *testing.T) {
	it := Item{ID: "x", Amount: decimal.RequireFromString("12.5")}
	b, err := json.Marshal(it)
	if err != nil {
		t.Fatal(err)
	}
	// Amounts travel as decimal numbers on the wire, not strings.
	if string(b) == "" || !json.Valid(b) {
		t.Fatalf("bad json: %s", b)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["amount"].(float64); !ok {
		t.Fatalf("amount not serialized as number: %s", b)
	}
}
