package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
	"github.com/lorrc/service-desk-pki/internal/core/utils"
)

const incidentCauseColumns = `id, cause_type, label, description, created_at`

// IncidentCauseRepository persists the incident cause catalogue.
type IncidentCauseRepository struct {
	pool *pgxpool.Pool
}

var _ ports.IncidentCauseRepository = (*IncidentCauseRepository)(nil)

func NewIncidentCauseRepository(pool *pgxpool.Pool) ports.IncidentCauseRepository {
	return &IncidentCauseRepository{pool: pool}
}

func scanIncidentCause(row pgx.Row) (*domain.IncidentCause, error) {
	var (
		c           domain.IncidentCause
		causeType   string
		description pgtype.Text
	)
	if err := row.Scan(&c.ID, &causeType, &c.Label, &description, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CauseType = domain.CauseType(causeType)
	c.Description = utils.FromString(description)
	return &c, nil
}

func (r *IncidentCauseRepository) Create(ctx context.Context, cause *domain.IncidentCause) (*domain.IncidentCause, error) {
	const query = `
INSERT INTO incident_causes (id, cause_type, label, description)
VALUES ($1, $2, $3, $4)
RETURNING ` + incidentCauseColumns

	created, err := scanIncidentCause(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		cause.ID,
		string(cause.CauseType),
		cause.Label,
		utils.ToString(cause.Description),
	))
	if err != nil {
		return nil, fmt.Errorf("insert incident cause: %w", err)
	}
	return created, nil
}

func (r *IncidentCauseRepository) List(ctx context.Context, causeType *domain.CauseType) ([]*domain.IncidentCause, error) {
	const query = `
SELECT ` + incidentCauseColumns + `
FROM incident_causes
WHERE $1::text IS NULL OR cause_type = $1
ORDER BY cause_type, label
`
	var filter pgtype.Text
	if causeType != nil {
		filter = utils.ToString(string(*causeType))
	}

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, filter)
	if err != nil {
		return nil, fmt.Errorf("list incident causes: %w", err)
	}
	defer rows.Close()

	causes := make([]*domain.IncidentCause, 0)
	for rows.Next() {
		cause, err := scanIncidentCause(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident cause: %w", err)
		}
		causes = append(causes, cause)
	}
	return causes, rows.Err()
}

func (r *IncidentCauseRepository) Delete(ctx context.Context, id string) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM incident_causes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete incident cause: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIncidentCauseNotFound
	}
	return nil
}
