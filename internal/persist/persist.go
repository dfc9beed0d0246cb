// Package persist stores and restores the whole ledger snapshot as one
// blob. There are no partial updates: every save rewrites the complete
// state of all accounts.
package persist

import (
	"context"
	"errors"
	"time"

	"github.com/MendoxIta/haos-budget/internal/core"
)

// ErrNotFound is returned by Load when no snapshot has ever been saved.
// Callers treat it as an empty default, not a failure.
var ErrNotFound = errors.New("no snapshot stored")

// Store persists the full ledger snapshot plus the last-reset marker the
// rollover controller uses for startup catch-up.
type Store interface {
	// Load reads the last saved snapshot, or ErrNotFound.
	Load(ctx context.Context) (core.Snapshot, error)

	// Save rewrites the whole snapshot.
	Save(ctx context.Context, snap core.Snapshot) error

	// LoadLastReset returns the timestamp of the last month rollover.
	// A zero time with nil error means no rollover has been recorded.
	LoadLastReset(ctx context.Context) (time.Time, error)

	// SaveLastReset records the timestamp of a completed rollover.
	SaveLastReset(ctx context.Context, t time.Time) error

	Close() error
}
