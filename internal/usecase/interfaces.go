package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	// FindOrCreate inserts the candidate account unless one with the same
	// (name, currency) already exists, then returns whichever row won. Safe
	// under concurrent callers for the same natural key.
	FindOrCreate(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindOrCreateTx(ctx context.Context, tx Transaction, account *domain.Account) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByNameAndCurrency(ctx context.Context, name, currency string) (*domain.Account, error)
	// GetByIDsForUpdate locks the account rows within tx. Callers must pass
	// ids in sorted order to keep lock acquisition deadlock-free.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	// AddToBalance applies a signed delta to the running balance.
	AddToBalance(ctx context.Context, tx Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error
	Update(ctx context.Context, account *domain.Account) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	GetByGroup(ctx context.Context, groupID string) ([]*domain.Entry, error)
	List(ctx context.Context, filter EntryFilter) ([]*domain.Entry, int64, error)
	// MarkGroupReversed flips is_reversed on every not-yet-reversed entry of
	// the group and returns the number of rows affected. Comparing the count
	// against the group size is the reversal idempotency guard.
	MarkGroupReversed(ctx context.Context, tx Transaction, groupID string, at time.Time) (int64, error)
}

// EntryFilter selects entries for listing. Zero values mean "no filter".
type EntryFilter struct {
	AccountID     string
	TransactionID string
	EventID       string
	Type          domain.EntryType
	StartDate     *time.Time
	EndDate       *time.Time
	IsReversal    *bool
	Page          int
	PageSize      int
}

// EventRepository defines data access for stored business events.
type EventRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
}

// LedgerRepository defines ledger-wide aggregate queries.
type LedgerRepository interface {
	// TotalsByType returns the sum of all debit amounts and all credit
	// amounts across the ledger.
	TotalsByType(ctx context.Context) (debits, credits decimal.Decimal, err error)
	// SumSignedEntries replays an account's entries as signed contributions
	// relative to the account's nature.
	SumSignedEntries(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// RateProvider exposes the current rate/fee snapshot. An evaluation pins the
// returned pointer; replacements swap the whole table.
type RateProvider interface {
	Current() *domain.RateTable
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient storage conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
