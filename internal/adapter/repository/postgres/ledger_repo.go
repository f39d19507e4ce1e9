package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool querier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// TotalsByType sums all debit and all credit amounts across the ledger.
func (r *LedgerRepository) TotalsByType(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var debits, credits pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0)
		FROM ledger_entries
	`).Scan(&debits, &credits)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(debits), numericToDecimal(credits), nil
}

// SumSignedEntries replays an account's entries as signed contributions: an
// entry adds when its type matches the account's nature and subtracts
// otherwise. The result should equal the stored running balance.
func (r *LedgerRepository) SumSignedEntries(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(
			CASE WHEN e.type = a.nature THEN e.amount ELSE -e.amount END
		), 0)
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE e.account_id = $1
	`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}
