package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

func TestEntryRepositoryMarkGroupReversed(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()

	// Only entries not yet reversed are flipped; the affected count is the
	// caller's idempotency signal.
	mockPool.ExpectExec(`UPDATE ledger_entries\s+SET is_reversed = TRUE\s+WHERE entry_group_id = \$1 AND is_reversed = FALSE`).
		WithArgs("group-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	manager := newTxManagerWithPool(mockPool)

	tx, err := manager.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	repo := newEntryRepositoryWithQuerier(mockPool)

	affected, err := repo.MarkGroupReversed(context.Background(), tx, "group-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if affected != 3 {
		t.Fatalf("expected 3 affected rows, got %d", affected)
	}

	assertExpectations(t, mockPool)
}

func TestEntryRepositoryListFilterPlaceholders(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reversal := true

	where, args := buildEntryFilter(usecase.EntryFilter{
		AccountID:  "acc-1",
		Type:       domain.EntryTypeDebit,
		StartDate:  &start,
		IsReversal: &reversal,
	})

	want := ` WHERE 1=1 AND account_id = $1 AND type = $2 AND created_at >= $3 AND is_reversal = $4`
	if where != want {
		t.Fatalf("unexpected where clause:\n got %q\nwant %q", where, want)
	}

	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
}

func TestEntryRepositoryList(t *testing.T) {
	mockPool := newMockPool(t)

	mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM ledger_entries`).
		WithArgs("acc-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "entry_group_id", "transaction_id", "event_id", "account_id", "type", "amount",
		"currency", "description", "metadata", "is_reversal", "is_reversed", "original_entry_id", "created_at",
	}).AddRow(
		"e-1", "g-1", nullableString("tx-1"), nullableString("ev-1"), "acc-1", domain.EntryTypeDebit,
		decimalToNumeric(decimal.NewFromInt(92)), "EUR", "payment captured", []byte(`{"merchant_id":"m-1"}`),
		false, false, nullableString(""), timeToPgTimestamptz(now),
	)

	mockPool.ExpectQuery(`SELECT (.+) FROM ledger_entries(.+)ORDER BY created_at DESC`).
		WithArgs("acc-1", 50, 0).
		WillReturnRows(rows)

	repo := newEntryRepositoryWithQuerier(mockPool)

	entries, total, err := repo.List(context.Background(), usecase.EntryFilter{
		AccountID: "acc-1",
		Page:      1,
		PageSize:  50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 entry with total 1, got %d entries, total %d", len(entries), total)
	}

	entry := entries[0]
	if !entry.Amount.Equal(decimal.NewFromInt(92)) {
		t.Fatalf("expected amount 92, got %s", entry.Amount)
	}

	if entry.Metadata["merchant_id"] != "m-1" {
		t.Fatalf("expected metadata to survive the round trip, got %v", entry.Metadata)
	}

	if entry.TransactionID != "tx-1" || entry.OriginalEntryID != "" {
		t.Fatalf("nullable columns mishandled: %+v", entry)
	}

	assertExpectations(t, mockPool)
}
