package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MendoxIta/haos-budget/internal/notify"
)

// eventBufferSize bounds the per-client queue. A client that cannot keep
// up loses signals rather than stalling the command path.
const eventBufferSize = 16

type streamEvent struct {
	name string
	data any
}

// handleEvents streams ledger and month change signals as server-sent
// events. Dispatcher callbacks only enqueue; the actual writes happen on
// this handler's goroutine, outside the service lock.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotFound, "event stream not enabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events := make(chan streamEvent, eventBufferSize)
	enqueue := func(ev streamEvent) {
		select {
		case events <- ev:
		default:
			s.logger.Warn("Dropping event for slow stream client", "event", ev.name)
		}
	}
	cancelLedger := s.events.SubscribeLedger(func(c notify.LedgerChange) {
		enqueue(streamEvent{name: "ledger_changed", data: map[string]string{"account": c.Account}})
	})
	defer cancelLedger()
	cancelMonth := s.events.SubscribeMonth(func(c notify.MonthChange) {
		enqueue(streamEvent{name: "month_changed", data: map[string]int{"month": c.Month, "year": c.Year}})
	})
	defer cancelMonth()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			payload, err := json.Marshal(ev.data)
			if err != nil {
				s.logger.Warn("Failed to encode stream event", "event", ev.name, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, payload)
			flusher.Flush()
		}
	}
}
