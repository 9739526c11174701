package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// TicketEventRepository handles persistence for ticket events.
type TicketEventRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TicketEventRepository = (*TicketEventRepository)(nil)

// NewTicketEventRepository creates a new ticket event repository.
func NewTicketEventRepository(pool *pgxpool.Pool) ports.TicketEventRepository {
	return &TicketEventRepository{pool: pool}
}

func scanTicketEvent(row pgx.Row) (*domain.TicketEvent, error) {
	var (
		event     domain.TicketEvent
		eventType string
		actorID   pgtype.UUID
		payload   []byte
	)
	if err := row.Scan(&event.ID, &event.TicketID, &eventType, &actorID, &payload, &event.CreatedAt); err != nil {
		return nil, err
	}

	event.Type = domain.EventType(eventType)
	event.Payload = json.RawMessage(payload)
	if actorID.Valid {
		event.ActorID = uuid.UUID(actorID.Bytes)
	}
	return &event, nil
}

// Create persists a new ticket event.
func (r *TicketEventRepository) Create(ctx context.Context, event *domain.TicketEvent) (*domain.TicketEvent, error) {
	const query = `
INSERT INTO ticket_events (ticket_id, type, actor_id, payload)
VALUES ($1, $2, $3, $4)
RETURNING id, ticket_id, type, actor_id, payload, created_at
`
	payload := []byte(event.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	created, err := scanTicketEvent(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		event.TicketID,
		string(event.Type),
		pgtype.UUID{Bytes: event.ActorID, Valid: event.ActorID != uuid.Nil},
		payload,
	))
	if err != nil {
		return nil, fmt.Errorf("insert ticket event: %w", err)
	}
	return created, nil
}

// CreateMany persists events in one batch, in order.
func (r *TicketEventRepository) CreateMany(ctx context.Context, events []*domain.TicketEvent) error {
	if len(events) == 0 {
		return nil
	}

	const query = `
INSERT INTO ticket_events (ticket_id, type, actor_id, payload)
VALUES ($1, $2, $3, $4)
`
	batch := &pgx.Batch{}
	for _, event := range events {
		payload := []byte(event.Payload)
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		batch.Queue(query,
			event.TicketID,
			string(event.Type),
			pgtype.UUID{Bytes: event.ActorID, Valid: event.ActorID != uuid.Nil},
			payload,
		)
	}

	results := GetDBTX(ctx, r.pool).SendBatch(ctx, batch)
	defer results.Close()

	for _, event := range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert %s event for ticket %s: %w", event.Type, event.TicketID, err)
		}
	}
	return nil
}

// ListByTicketID retrieves events for a ticket after a cursor.
func (r *TicketEventRepository) ListByTicketID(ctx context.Context, ticketID string, afterID int64, limit int) ([]*domain.TicketEvent, error) {
	const query = `
SELECT id, ticket_id, type, actor_id, payload, created_at
FROM ticket_events
WHERE ticket_id = $1 AND id > $2
ORDER BY id
LIMIT $3
`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, ticketID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ticket events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.TicketEvent, 0)
	for rows.Next() {
		event, err := scanTicketEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
