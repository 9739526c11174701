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

const technicianColumns = `id, full_name, phone, zone, active, created_at`

// TechnicianRepository persists field technicians.
type TechnicianRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TechnicianRepository = (*TechnicianRepository)(nil)

func NewTechnicianRepository(pool *pgxpool.Pool) ports.TechnicianRepository {
	return &TechnicianRepository{pool: pool}
}

func scanTechnician(row pgx.Row) (*domain.Technician, error) {
	var (
		t     domain.Technician
		phone pgtype.Text
		zone  pgtype.Text
	)
	if err := row.Scan(&t.ID, &t.FullName, &phone, &zone, &t.Active, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Phone = utils.FromString(phone)
	t.Zone = utils.FromString(zone)
	return &t, nil
}

func (r *TechnicianRepository) Create(ctx context.Context, technician *domain.Technician) (*domain.Technician, error) {
	const query = `
INSERT INTO technicians (id, full_name, phone, zone, active)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + technicianColumns

	created, err := scanTechnician(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		technician.ID,
		technician.FullName,
		utils.ToString(technician.Phone),
		utils.ToString(technician.Zone),
		technician.Active,
	))
	if err != nil {
		return nil, fmt.Errorf("insert technician: %w", err)
	}
	return created, nil
}

func (r *TechnicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	const query = `SELECT ` + technicianColumns + ` FROM technicians WHERE id = $1`

	tech, err := scanTechnician(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrTechnicianNotFound
		}
		return nil, fmt.Errorf("get technician: %w", err)
	}
	return tech, nil
}

func (r *TechnicianRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Technician, error) {
	const query = `
SELECT ` + technicianColumns + `
FROM technicians
WHERE active OR NOT $1
ORDER BY full_name, id
`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	defer rows.Close()

	technicians := make([]*domain.Technician, 0)
	for rows.Next() {
		tech, err := scanTechnician(rows)
		if err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		technicians = append(technicians, tech)
	}
	return technicians, rows.Err()
}

func (r *TechnicianRepository) Delete(ctx context.Context, id string) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM technicians WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete technician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTechnicianNotFound
	}
	return nil
}
