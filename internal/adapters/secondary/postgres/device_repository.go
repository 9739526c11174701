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

const deviceColumns = `id, serial_number, model, kind, technician_id, installed_at, created_at`

// DeviceRepository persists customer and network equipment.
type DeviceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.DeviceRepository = (*DeviceRepository)(nil)

func NewDeviceRepository(pool *pgxpool.Pool) ports.DeviceRepository {
	return &DeviceRepository{pool: pool}
}

func scanDevice(row pgx.Row) (*domain.Device, error) {
	var (
		d            domain.Device
		kind         pgtype.Text
		technicianID pgtype.Text
		installedAt  pgtype.Timestamptz
	)
	if err := row.Scan(&d.ID, &d.SerialNumber, &d.Model, &kind, &technicianID, &installedAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Kind = utils.FromString(kind)
	d.TechnicianID = utils.FromString(technicianID)
	d.InstalledAt = utils.FromTimestamptz(installedAt)
	return &d, nil
}

func (r *DeviceRepository) Create(ctx context.Context, device *domain.Device) (*domain.Device, error) {
	const query = `
INSERT INTO devices (id, serial_number, model, kind, technician_id, installed_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + deviceColumns

	created, err := scanDevice(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		device.ID,
		device.SerialNumber,
		device.Model,
		utils.ToString(device.Kind),
		utils.ToString(device.TechnicianID),
		utils.ToTimestamptz(device.InstalledAt),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDeviceSerialAlreadyInUse
		}
		return nil, fmt.Errorf("insert device: %w", err)
	}
	return created, nil
}

// List returns every device, or only those of one technician.
func (r *DeviceRepository) List(ctx context.Context, technicianID *string) ([]*domain.Device, error) {
	const query = `
SELECT ` + deviceColumns + `
FROM devices
WHERE $1::text IS NULL OR technician_id = $1
ORDER BY serial_number
`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, utils.ToNullString(technicianID))
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	devices := make([]*domain.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

func (r *DeviceRepository) Delete(ctx context.Context, id string) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDeviceNotFound
	}
	return nil
}
