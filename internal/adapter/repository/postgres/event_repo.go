package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

// EventRepository implements usecase.EventRepository. Events are append-only.
type EventRepository struct {
	pool querier
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Create inserts the event within the transaction that commits its entry
// group.
func (r *EventRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.Event) error {
	_, err := tx.(*Tx).PgxTx().Exec(ctx, `
		INSERT INTO events (id, type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, event.ID, event.Type, []byte(event.Payload), timeToPgTimestamptz(event.CreatedAt))

	return err
}

// GetByID retrieves an event by ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var (
		event     domain.Event
		payload   []byte
		createdAt pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, type, payload, created_at FROM events WHERE id = $1
	`, id).Scan(&event.ID, &event.Type, &payload, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}

		return nil, err
	}

	event.Payload = json.RawMessage(payload)
	event.CreatedAt = createdAt.Time

	return &event, nil
}
