// Package notify fans out ledger change signals to downstream observers.
package notify

import (
	"context"
	"sync"
)

// Notifier receives a signal after every successful mutation and after
// each month rollover. Implementations must never block a command
// handler for long and must treat delivery failures as non-fatal.
type Notifier interface {
	// LedgerChanged announces that the ledger mutated. account may be
	// empty when the change spans every account.
	LedgerChanged(ctx context.Context, account string) error

	// MonthChanged announces a completed rollover, carrying the month
	// and year that were just archived.
	MonthChanged(ctx context.Context, month, year int) error
}

// Nop discards every signal.
type Nop struct{}

func (Nop) LedgerChanged(context.Context, string) error { return nil }
func (Nop) MonthChanged(context.Context, int, int) error {
	return nil
}

// LedgerChange is one delivered signal.
type LedgerChange struct {
	Account string
}

// MonthChange is one delivered rollover signal.
type MonthChange struct {
	Month int
	Year  int
}

// Dispatcher is an in-process notifier delivering signals to registered
// callbacks, in registration order.
//
// Callbacks run synchronously on the publishing goroutine, which holds
// the service state lock at that point. A callback must not block and
// must not call back into the service; hand the signal off to a channel
// instead.
type Dispatcher struct {
	mu       sync.Mutex
	nextID   int
	onLedger []ledgerSub
	onMonth  []monthSub
}

type ledgerSub struct {
	id int
	fn func(LedgerChange)
}

type monthSub struct {
	id int
	fn func(MonthChange)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// SubscribeLedger registers a callback for ledger change signals and
// returns a function that removes it. See the Dispatcher docs for the
// callback constraints.
func (d *Dispatcher) SubscribeLedger(fn func(LedgerChange)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.onLedger = append(d.onLedger, ledgerSub{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, sub := range d.onLedger {
			if sub.id == id {
				d.onLedger = append(d.onLedger[:i], d.onLedger[i+1:]...)
				return
			}
		}
	}
}

// SubscribeMonth registers a callback for month change signals and
// returns a function that removes it. See the Dispatcher docs for the
// callback constraints.
func (d *Dispatcher) SubscribeMonth(fn func(MonthChange)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.onMonth = append(d.onMonth, monthSub{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, sub := range d.onMonth {
			if sub.id == id {
				d.onMonth = append(d.onMonth[:i], d.onMonth[i+1:]...)
				return
			}
		}
	}
}

func (d *Dispatcher) LedgerChanged(_ context.Context, account string) error {
	d.mu.Lock()
	subs := make([]ledgerSub, len(d.onLedger))
	copy(subs, d.onLedger)
	d.mu.Unlock()
	for _, sub := range subs {
		sub.fn(LedgerChange{Account: account})
	}
	return nil
}

func (d *Dispatcher) MonthChanged(_ context.Context, month, year int) error {
	d.mu.Lock()
	subs := make([]monthSub, len(d.onMonth))
	copy(subs, d.onMonth)
	d.mu.Unlock()
	for _, sub := range subs {
		sub.fn(MonthChange{Month: month, Year: year})
	}
	return nil
}

// Multi fans a signal out to several notifiers. The first error is
// returned after every notifier has been invoked.
type Multi []Notifier

func (m Multi) LedgerChanged(ctx context.Context, account string) error {
	var first error
	for _, n := range m {
		if err := n.LedgerChanged(ctx, account); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) MonthChanged(ctx context.Context, month, year int) error {
	var first error
	for _, n := range m {
		if err := n.MonthChanged(ctx, month, year); err != nil && first == nil {
			first = err
		}
	}
	return first
}
