package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/MendoxIta/haos-budget/internal/core"
	"github.com/MendoxIta/haos-budget/internal/service"
)

const maxBodyBytes = 1 << 16 // 64KB

// amountField decodes an amount that arrives either as a JSON number or
// as a string. Strings go through core.ParseAmount, so "12,34" and
// "12.34" both work.
type amountField struct {
	decimal.Decimal
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.UnmarshalJSON(data)
}

type addItemBody struct {
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
}

type addRecurringBody struct {
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	DayOfMonth  int         `json:"day_of_month"`
	EndDate     string      `json:"end_date"`
}

type clearBody struct {
	ClearIncome   *bool  `json:"clear_income"`
	ClearExpenses *bool  `json:"clear_expenses"`
	Category      string `json:"category"`
}

type setTotalBody struct {
	Amount amountField `json:"amount"`
}

type resetBody struct {
	Account string `json:"account"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var body addItemBody
	if !decodeBody(w, r, &body) {
		return
	}
	req := service.AddItemRequest{
		Account:     r.PathValue("account"),
		Amount:      body.Amount.Decimal,
		Description: body.Description,
		Category:    body.Category,
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.svc.AddIncomeItem(r.Context(), req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var body addItemBody
	if !decodeBody(w, r, &body) {
		return
	}
	req := service.AddItemRequest{
		Account:     r.PathValue("account"),
		Amount:      body.Amount.Decimal,
		Description: body.Description,
		Category:    body.Category,
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.svc.AddExpenseItem(r.Context(), req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	req := service.RemoveItemRequest{
		Account: r.PathValue("account"),
		ItemID:  r.PathValue("id"),
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.svc.RemoveItem(r.Context(), req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddRecurringIncome(w http.ResponseWriter, r *http.Request) {
	s.handleAddRecurring(w, r, s.svc.AddRecurringIncome)
}

func (s *Server) handleAddRecurringExpense(w http.ResponseWriter, r *http.Request) {
	s.handleAddRecurring(w, r, s.svc.AddRecurringExpense)
}

func (s *Server) handleAddRecurring(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, req service.AddRecurringRequest)) {
	var body addRecurringBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.DayOfMonth == 0 {
		body.DayOfMonth = 1
	}
	req := service.AddRecurringRequest{
		Account:     r.PathValue("account"),
		Amount:      body.Amount.Decimal,
		Description: body.Description,
		Category:    body.Category,
		DayOfMonth:  body.DayOfMonth,
		EndDate:     body.EndDate,
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	apply(r.Context(), req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveRecurring(w http.ResponseWriter, r *http.Request) {
	req := service.RemoveRecurringRequest{
		Account: r.PathValue("account"),
		ItemID:  r.PathValue("id"),
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.svc.RemoveRecurringItem(r.Context(), req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearMonthItems(w http.ResponseWriter, r *http.Request) {
	var body clearBody
	if !decodeBody(w, r, &body) {
		return
	}
	req := service.ClearMonthItemsRequest{
		Account:       r.PathValue("account"),
		ClearIncome:   true,
		ClearExpenses: true,
		Category:      body.Category,
	}
	if body.ClearIncome != nil {
		req.ClearIncome = *body.ClearIncome
	}
	if body.ClearExpenses != nil {
		req.ClearExpenses = *body.ClearExpenses
	}
	s.svc.ClearMonthItems(r.Context(), req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetIncome(w http.ResponseWriter, r *http.Request) {
	var body setTotalBody
	if !decodeBody(w, r, &body) {
		return
	}
	req := service.SetTotalRequest{Account: r.PathValue("account"), Amount: body.Amount.Decimal}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.svc.SetIncome(r.Context(), req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetExpenses(w http.ResponseWriter, r *http.Request) {
	var body setTotalBody
	if !decodeBody(w, r, &body) {
		return
	}
	req := service.SetTotalRequest{Account: r.PathValue("account"), Amount: body.Amount.Decimal}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.svc.SetExpenses(r.Context(), req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetMonth(w http.ResponseWriter, r *http.Request) {
	var body resetBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.svc.ResetMonth(r.Context(), service.ResetMonthRequest{
		Account: body.Account,
		Year:    body.Year,
		Month:   body.Month,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"accounts": s.svc.AccountNames()})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.svc.Account(r.PathValue("account"))
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.svc.Account(r.PathValue("account"))
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, acc.History)
}
