package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

// querier is the subset of pgx shared by pools and transactions, so the same
// statement helpers serve both paths.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepositoryWithQuerier(pool)
}

func newAccountRepositoryWithQuerier(pool querier) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, name, type, nature, currency, status, balance, metadata, created_at, updated_at`

const insertAccountIfAbsent = `
	INSERT INTO accounts (id, name, type, nature, currency, status, balance, metadata, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (name, currency) DO NOTHING
`

const selectAccountByNameAndCurrency = `
	SELECT ` + accountColumns + `
	FROM accounts
	WHERE name = $1 AND currency = $2
`

// FindOrCreate inserts the candidate unless (name, currency) already exists,
// then returns the winning row. The conflict-tolerant insert makes concurrent
// first-use of the same account safe.
func (r *AccountRepository) FindOrCreate(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	return findOrCreateAccount(ctx, r.pool, account)
}

// FindOrCreateTx is FindOrCreate inside an open transaction.
func (r *AccountRepository) FindOrCreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) (*domain.Account, error) {
	return findOrCreateAccount(ctx, tx.(*Tx).PgxTx(), account)
}

func findOrCreateAccount(ctx context.Context, q querier, account *domain.Account) (*domain.Account, error) {
	metadata, err := marshalMetadata(account.Metadata)
	if err != nil {
		return nil, err
	}

	_, err = q.Exec(ctx, insertAccountIfAbsent,
		account.ID,
		account.Name,
		account.Type,
		account.Nature,
		account.Currency,
		account.Status,
		decimalToNumeric(account.Balance),
		metadata,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, selectAccountByNameAndCurrency, account.Name, account.Currency)

	return scanAccount(row)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// GetByNameAndCurrency retrieves an account by its natural key.
func (r *AccountRepository) GetByNameAndCurrency(ctx context.Context, name, currency string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, selectAccountByNameAndCurrency, name, currency)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// GetByIDsForUpdate locks the account rows within the transaction. ORDER BY
// id matches the caller's sorted ids, so competing transactions acquire
// locks in the same sequence.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	rows, err := tx.(*Tx).PgxTx().Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, len(ids))

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// AddToBalance applies a signed delta to the running balance. The arithmetic
// happens in the database, under the row lock the caller already holds.
func (r *AccountRepository) AddToBalance(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error {
	tag, err := tx.(*Tx).PgxTx().Exec(ctx, `
		UPDATE accounts
		SET balance = balance + $2, updated_at = $3
		WHERE id = $1
	`, id, decimalToNumeric(delta), timeToPgTimestamptz(updatedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Update rewrites mutable account attributes. Balance and currency are never
// written through this path.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	metadata, err := marshalMetadata(account.Metadata)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET name = $2, status = $3, metadata = $4, updated_at = $5
		WHERE id = $1
	`, account.ID, account.Name, account.Status, metadata, timeToPgTimestamptz(account.UpdatedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account   domain.Account
		balance   pgtype.Numeric
		metadata  []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Type,
		&account.Nature,
		&account.Currency,
		&account.Status,
		&balance,
		&metadata,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Balance = numericToDecimal(balance)
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time

	if metadata != nil {
		if err := json.Unmarshal(metadata, &account.Metadata); err != nil {
			return nil, err
		}
	}

	return &account, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}

	return json.Marshal(metadata)
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
