// Package httpapi exposes the ledger command surface and a small read
// API over JSON HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"

	applog "github.com/MendoxIta/haos-budget/internal/log"
	"github.com/MendoxIta/haos-budget/internal/notify"
	"github.com/MendoxIta/haos-budget/internal/service"
)

// Server routes HTTP requests to the ledger service. Commands return
// 204 on acceptance; per the command contract, domain-level failures
// (unknown account, missing item) are logged by the service and not
// surfaced as HTTP errors. Only boundary validation rejects a request.
type Server struct {
	svc    *service.Service
	events *notify.Dispatcher
	logger *applog.Logger
}

// NewServer builds the API server. events feeds the /api/events stream;
// it must be one of the dispatchers the service notifies.
func NewServer(svc *service.Service, events *notify.Dispatcher, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.Config{})
	}
	return &Server{svc: svc, events: events, logger: logger.WithComponent("httpapi")}
}

// Handler builds the route table wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("GET /api/accounts/{account}", s.handleGetAccount)
	mux.HandleFunc("GET /api/accounts/{account}/history", s.handleGetHistory)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("POST /api/accounts/{account}/income", s.handleAddIncome)
	mux.HandleFunc("POST /api/accounts/{account}/expense", s.handleAddExpense)
	mux.HandleFunc("DELETE /api/accounts/{account}/items/{id}", s.handleRemoveItem)

	mux.HandleFunc("POST /api/accounts/{account}/recurring/income", s.handleAddRecurringIncome)
	mux.HandleFunc("POST /api/accounts/{account}/recurring/expense", s.handleAddRecurringExpense)
	mux.HandleFunc("DELETE /api/accounts/{account}/recurring/{id}", s.handleRemoveRecurring)

	mux.HandleFunc("POST /api/accounts/{account}/clear", s.handleClearMonthItems)
	mux.HandleFunc("POST /api/accounts/{account}/set_income", s.handleSetIncome)
	mux.HandleFunc("POST /api/accounts/{account}/set_expenses", s.handleSetExpenses)
	mux.HandleFunc("POST /api/reset", s.handleResetMonth)

	return applog.Middleware(s.logger)(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
