// Package ledger holds the in-memory ledger store and the recurrence
// engine that derives month items from recurring templates.
package ledger

import (
	"sort"

	"github.com/MendoxIta/haos-budget/internal/core"
)

// Store is the authoritative in-memory snapshot of all accounts for one
// configured instance. It is not safe for concurrent use; the service
// layer serializes every read-modify-persist sequence.
type Store struct {
	accounts core.Snapshot
}

// NewStore creates a store with one empty ledger per configured account.
func NewStore(accounts []string) *Store {
	s := &Store{accounts: core.Snapshot{}}
	for _, name := range accounts {
		s.accounts[name] = core.NewAccount()
	}
	return s
}

// Replace swaps in a loaded snapshot, keeping an empty ledger for any
// configured account missing from it.
func (s *Store) Replace(snap core.Snapshot) {
	if snap == nil {
		snap = core.Snapshot{}
	}
	for name := range s.accounts {
		if _, ok := snap[name]; !ok {
			snap[name] = core.NewAccount()
		}
	}
	for _, acc := range snap {
		acc.Normalize()
	}
	s.accounts = snap
}

// Account resolves an account ledger by name.
func (s *Store) Account(name string) (*core.Account, bool) {
	acc, ok := s.accounts[name]
	return acc, ok
}

// Remove drops an account's ledger. It reports whether the account
// existed.
func (s *Store) Remove(name string) bool {
	if _, ok := s.accounts[name]; !ok {
		return false
	}
	delete(s.accounts, name)
	return true
}

// Names returns account names in sorted order for deterministic
// iteration.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot exposes the underlying account map for persistence. The
// caller must hold the service's mutation lock while serializing it.
func (s *Store) Snapshot() core.Snapshot {
	return s.accounts
}
