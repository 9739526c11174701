package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
	"github.com/lorrc/service-desk-pki/internal/core/utils"
)

const ticketColumns = `id, service_type, cause_type, status, created_at, closed_at,
	met_deadline, reopened, reopen_count, description, cause_detail,
	closure_reason, technician_id, line_reference, updated_at`

const upsertTicketSQL = `
INSERT INTO tickets (` + ticketColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE SET
	service_type   = EXCLUDED.service_type,
	cause_type     = EXCLUDED.cause_type,
	status         = EXCLUDED.status,
	created_at     = EXCLUDED.created_at,
	closed_at      = EXCLUDED.closed_at,
	met_deadline   = EXCLUDED.met_deadline,
	reopened       = EXCLUDED.reopened,
	reopen_count   = EXCLUDED.reopen_count,
	description    = EXCLUDED.description,
	cause_detail   = EXCLUDED.cause_detail,
	closure_reason = EXCLUDED.closure_reason,
	technician_id  = EXCLUDED.technician_id,
	line_reference = EXCLUDED.line_reference,
	updated_at     = NOW()
`

// TicketRepository is the secondary adapter for ticket persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) ports.TicketRepository {
	return &TicketRepository{pool: pool}
}

// scanTicket converts a database row to a core domain model.
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t             domain.Ticket
		serviceType   string
		causeType     string
		status        string
		closedAt      pgtype.Timestamptz
		causeDetail   pgtype.Text
		closureReason pgtype.Text
		technicianID  pgtype.Text
		lineReference pgtype.Text
		updatedAt     pgtype.Timestamptz
	)

	err := row.Scan(
		&t.ID, &serviceType, &causeType, &status, &t.CreatedAt, &closedAt,
		&t.MetDeadline, &t.Reopened, &t.ReopenCount, &t.Description, &causeDetail,
		&closureReason, &technicianID, &lineReference, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ServiceType = domain.ServiceType(serviceType)
	t.CauseType = domain.CauseType(causeType)
	t.Status = domain.TicketStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.ClosedAt = utils.FromTimestamptz(closedAt)
	t.CauseDetail = utils.FromString(causeDetail)
	t.ClosureReason = utils.FromString(closureReason)
	t.TechnicianID = utils.FromString(technicianID)
	t.LineReference = utils.FromString(lineReference)
	t.UpdatedAt = utils.FromTimestamptz(updatedAt)
	return &t, nil
}

func ticketArgs(t *domain.Ticket) []any {
	return []any{
		t.ID,
		string(t.ServiceType),
		string(t.CauseType),
		string(t.Status),
		t.CreatedAt.UTC(),
		utils.ToTimestamptz(t.ClosedAt),
		t.MetDeadline,
		t.Reopened,
		t.ReopenCount,
		t.Description,
		utils.ToString(t.CauseDetail),
		utils.ToString(t.ClosureReason),
		utils.ToString(t.TechnicianID),
		utils.ToString(t.LineReference),
		utils.ToTimestamptz(t.UpdatedAt),
	}
}

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `INSERT INTO tickets (` + ticketColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + ticketColumns

	created, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query, ticketArgs(ticket)...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrTicketExists
		}
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return created, nil
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return ticket, nil
}

// Update persists changes to an existing ticket entity. Creation time and
// classification are not changed.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
UPDATE tickets SET
	status = $2,
	closed_at = $3,
	met_deadline = $4,
	reopened = $5,
	reopen_count = $6,
	closure_reason = $7,
	technician_id = $8,
	updated_at = COALESCE($9, NOW())
WHERE id = $1
RETURNING ` + ticketColumns

	updated, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		ticket.ID,
		string(ticket.Status),
		utils.ToTimestamptz(ticket.ClosedAt),
		ticket.MetDeadline,
		ticket.Reopened,
		ticket.ReopenCount,
		utils.ToString(ticket.ClosureReason),
		utils.ToString(ticket.TechnicianID),
		utils.ToTimestamptz(ticket.UpdatedAt),
	))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	return updated, nil
}

// List retrieves tickets matching the filter, newest first.
func (r *TicketRepository) List(ctx context.Context, filter ports.TicketFilter) ([]*domain.Ticket, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.ServiceType != nil {
		add("service_type = $%d", string(*filter.ServiceType))
	}
	if filter.CauseType != nil {
		add("cause_type = $%d", string(*filter.CauseType))
	}
	if filter.TechnicianID != nil {
		add("technician_id = $%d", *filter.TechnicianID)
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		add("created_at < $%d", filter.CreatedTo.UTC())
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + ticketColumns + " FROM tickets")
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// Upsert inserts or replaces tickets by ID in a single batch.
func (r *TicketRepository) Upsert(ctx context.Context, tickets []*domain.Ticket) (int, error) {
	if len(tickets) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(upsertTicketSQL, ticketArgs(t)...)
	}

	results := GetDBTX(ctx, r.pool).SendBatch(ctx, batch)
	defer results.Close()

	affected := 0
	for i := range tickets {
		tag, err := results.Exec()
		if err != nil {
			return 0, fmt.Errorf("upsert ticket %s: %w", tickets[i].ID, err)
		}
		affected += int(tag.RowsAffected())
	}
	return affected, nil
}
