package usecase

import (
	"sync/atomic"

	"github.com/finpost/ledger/internal/domain"
)

// RateTableStore holds the live rate/fee snapshot. Reads pin a pointer;
// Replace validates and swaps the whole table, so an in-flight evaluation
// never observes a half-updated mix of old and new values.
type RateTableStore struct {
	snapshot atomic.Pointer[domain.RateTable]
}

// NewRateTableStore creates a store initialized with a validated snapshot.
func NewRateTableStore(initial *domain.RateTable) (*RateTableStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	s := &RateTableStore{}
	s.snapshot.Store(initial)

	return s, nil
}

// Current returns the live snapshot.
func (s *RateTableStore) Current() *domain.RateTable {
	return s.snapshot.Load()
}

// Replace validates the new table and atomically swaps it in.
func (s *RateTableStore) Replace(table *domain.RateTable) error {
	if err := table.Validate(); err != nil {
		return err
	}

	s.snapshot.Store(table)

	return nil
}
