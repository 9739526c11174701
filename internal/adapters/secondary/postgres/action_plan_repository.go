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

const actionPlanColumns = `id, title, description, cause_id, owner_id, status,
	due_date, completed_at, created_at, updated_at`

// ActionPlanRepository persists corrective action plans.
type ActionPlanRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ActionPlanRepository = (*ActionPlanRepository)(nil)

func NewActionPlanRepository(pool *pgxpool.Pool) ports.ActionPlanRepository {
	return &ActionPlanRepository{pool: pool}
}

func scanActionPlan(row pgx.Row) (*domain.ActionPlan, error) {
	var (
		p           domain.ActionPlan
		description pgtype.Text
		causeID     pgtype.Text
		ownerID     pgtype.Text
		status      string
		dueDate     pgtype.Timestamptz
		completedAt pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&p.ID, &p.Title, &description, &causeID, &ownerID, &status,
		&dueDate, &completedAt, &p.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = utils.FromString(description)
	p.CauseID = utils.FromString(causeID)
	p.OwnerID = utils.FromString(ownerID)
	p.Status = domain.ActionPlanStatus(status)
	p.DueDate = utils.FromTimestamptz(dueDate)
	p.CompletedAt = utils.FromTimestamptz(completedAt)
	p.UpdatedAt = utils.FromTimestamptz(updatedAt)
	return &p, nil
}

func (r *ActionPlanRepository) Create(ctx context.Context, plan *domain.ActionPlan) (*domain.ActionPlan, error) {
	const query = `
INSERT INTO action_plans (id, title, description, cause_id, owner_id, status, due_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + actionPlanColumns

	created, err := scanActionPlan(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		plan.ID,
		plan.Title,
		utils.ToString(plan.Description),
		utils.ToString(plan.CauseID),
		utils.ToString(plan.OwnerID),
		string(plan.Status),
		utils.ToTimestamptz(plan.DueDate),
	))
	if err != nil {
		return nil, fmt.Errorf("insert action plan: %w", err)
	}
	return created, nil
}

func (r *ActionPlanRepository) GetByID(ctx context.Context, id string) (*domain.ActionPlan, error) {
	const query = `SELECT ` + actionPlanColumns + ` FROM action_plans WHERE id = $1`

	plan, err := scanActionPlan(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrActionPlanNotFound
		}
		return nil, fmt.Errorf("get action plan: %w", err)
	}
	return plan, nil
}

// List returns plans by due date, undated plans last.
func (r *ActionPlanRepository) List(ctx context.Context, status *domain.ActionPlanStatus) ([]*domain.ActionPlan, error) {
	const query = `
SELECT ` + actionPlanColumns + `
FROM action_plans
WHERE $1::text IS NULL OR status = $1
ORDER BY due_date ASC NULLS LAST, created_at
`
	var filter pgtype.Text
	if status != nil {
		filter = utils.ToString(string(*status))
	}

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, filter)
	if err != nil {
		return nil, fmt.Errorf("list action plans: %w", err)
	}
	defer rows.Close()

	plans := make([]*domain.ActionPlan, 0)
	for rows.Next() {
		plan, err := scanActionPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *ActionPlanRepository) Update(ctx context.Context, plan *domain.ActionPlan) (*domain.ActionPlan, error) {
	const query = `
UPDATE action_plans SET
	title = $2,
	description = $3,
	owner_id = $4,
	status = $5,
	due_date = $6,
	completed_at = $7,
	updated_at = COALESCE($8, NOW())
WHERE id = $1
RETURNING ` + actionPlanColumns

	updated, err := scanActionPlan(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		plan.ID,
		plan.Title,
		utils.ToString(plan.Description),
		utils.ToString(plan.OwnerID),
		string(plan.Status),
		utils.ToTimestamptz(plan.DueDate),
		utils.ToTimestamptz(plan.CompletedAt),
		utils.ToTimestamptz(plan.UpdatedAt),
	))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrActionPlanNotFound
		}
		return nil, fmt.Errorf("update action plan: %w", err)
	}
	return updated, nil
}

func (r *ActionPlanRepository) Delete(ctx context.Context, id string) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM action_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete action plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrActionPlanNotFound
	}
	return nil
}
