package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool querier
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return newEntryRepositoryWithQuerier(pool)
}

func newEntryRepositoryWithQuerier(pool querier) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const entryColumns = `id, entry_group_id, transaction_id, event_id, account_id, type, amount,
	currency, description, metadata, is_reversal, is_reversed, original_entry_id, created_at`

// Create inserts an entry within the transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	_, err = tx.(*Tx).PgxTx().Exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		entry.ID,
		entry.EntryGroupID,
		nullableString(entry.TransactionID),
		nullableString(entry.EventID),
		entry.AccountID,
		entry.Type,
		decimalToNumeric(entry.Amount),
		entry.Currency,
		entry.Description,
		metadata,
		entry.IsReversal,
		entry.IsReversed,
		nullableString(entry.OriginalEntryID),
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// GetByID retrieves an entry by ID.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return entry, nil
}

// GetByGroup retrieves all entries of a group in creation order.
func (r *EntryRepository) GetByGroup(ctx context.Context, groupID string) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE entry_group_id = $1
		ORDER BY created_at, id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

// List retrieves entries matching the filter plus the unpaginated match
// count.
func (r *EntryRepository) List(ctx context.Context, filter usecase.EntryFilter) ([]*domain.Entry, int64, error) {
	where, args := buildEntryFilter(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitArg := len(args) + 1
	offsetArg := len(args) + 2
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	query := `SELECT ` + entryColumns + ` FROM ledger_entries` + where +
		` ORDER BY created_at DESC, id DESC` +
		` LIMIT $` + strconv.Itoa(limitArg) + ` OFFSET $` + strconv.Itoa(offsetArg)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// MarkGroupReversed flips is_reversed on every not-yet-reversed entry of the
// group. The returned count lets the caller detect a concurrent reversal.
func (r *EntryRepository) MarkGroupReversed(ctx context.Context, tx usecase.Transaction, groupID string, at time.Time) (int64, error) {
	tag, err := tx.(*Tx).PgxTx().Exec(ctx, `
		UPDATE ledger_entries
		SET is_reversed = TRUE
		WHERE entry_group_id = $1 AND is_reversed = FALSE
	`, groupID)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func buildEntryFilter(filter usecase.EntryFilter) (string, []any) {
	where := ` WHERE 1=1`

	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(clause, len(args))
	}

	if filter.AccountID != "" {
		add(` AND account_id = $%d`, filter.AccountID)
	}

	if filter.TransactionID != "" {
		add(` AND transaction_id = $%d`, filter.TransactionID)
	}

	if filter.EventID != "" {
		add(` AND event_id = $%d`, filter.EventID)
	}

	if filter.Type != "" {
		add(` AND type = $%d`, filter.Type)
	}

	if filter.StartDate != nil {
		add(` AND created_at >= $%d`, *filter.StartDate)
	}

	if filter.EndDate != nil {
		add(` AND created_at <= $%d`, *filter.EndDate)
	}

	if filter.IsReversal != nil {
		add(` AND is_reversal = $%d`, *filter.IsReversal)
	}

	return where, args
}

func collectEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	var entries []*domain.Entry

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		entry           domain.Entry
		transactionID   pgtype.Text
		eventID         pgtype.Text
		amount          pgtype.Numeric
		metadata        []byte
		originalEntryID pgtype.Text
		createdAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&entry.ID,
		&entry.EntryGroupID,
		&transactionID,
		&eventID,
		&entry.AccountID,
		&entry.Type,
		&amount,
		&entry.Currency,
		&entry.Description,
		&metadata,
		&entry.IsReversal,
		&entry.IsReversed,
		&originalEntryID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	entry.TransactionID = transactionID.String
	entry.EventID = eventID.String
	entry.Amount = numericToDecimal(amount)
	entry.OriginalEntryID = originalEntryID.String
	entry.CreatedAt = createdAt.Time

	if metadata != nil {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, err
		}
	}

	return &entry, nil
}

func nullableString(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
