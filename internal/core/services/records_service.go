package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// RecordsService manages the ancillary records around tickets.
type RecordsService struct {
	technicians ports.TechnicianRepository
	devices     ports.DeviceRepository
	causes      ports.IncidentCauseRepository
	plans       ports.ActionPlanRepository
	authzSvc    ports.AuthorizationService
	now         func() time.Time
}

var _ ports.RecordsService = (*RecordsService)(nil)

// NewRecordsService creates a new records service
func NewRecordsService(
	technicians ports.TechnicianRepository,
	devices ports.DeviceRepository,
	causes ports.IncidentCauseRepository,
	plans ports.ActionPlanRepository,
	authzSvc ports.AuthorizationService,
) ports.RecordsService {
	return &RecordsService{
		technicians: technicians,
		devices:     devices,
		causes:      causes,
		plans:       plans,
		authzSvc:    authzSvc,
		now:         time.Now,
	}
}

func (s *RecordsService) CreateTechnician(ctx context.Context, actorID uuid.UUID, params domain.TechnicianParams) (*domain.Technician, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return nil, err
	}
	tech, err := domain.NewTechnician(params)
	if err != nil {
		return nil, err
	}
	return s.technicians.Create(ctx, tech)
}

func (s *RecordsService) GetTechnician(ctx context.Context, actorID uuid.UUID, id string) (*domain.Technician, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsRead); err != nil {
		return nil, err
	}
	return s.technicians.GetByID(ctx, id)
}

func (s *RecordsService) ListTechnicians(ctx context.Context, actorID uuid.UUID, activeOnly bool) ([]*domain.Technician, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsRead); err != nil {
		return nil, err
	}
	return s.technicians.List(ctx, activeOnly)
}

func (s *RecordsService) DeleteTechnician(ctx context.Context, actorID uuid.UUID, id string) error {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return err
	}
	return s.technicians.Delete(ctx, id)
}

// CreateDevice registers a device, optionally attached to a technician.
func (s *RecordsService) CreateDevice(ctx context.Context, actorID uuid.UUID, params domain.DeviceParams) (*domain.Device, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return nil, err
	}
	device, err := domain.NewDevice(params)
	if err != nil {
		return nil, err
	}
	if device.TechnicianID != "" {
		if _, err := s.technicians.GetByID(ctx, device.TechnicianID); err != nil {
			return nil, err
		}
	}
	return s.devices.Create(ctx, device)
}

func (s *RecordsService) ListDevices(ctx context.Context, actorID uuid.UUID, technicianID *string) ([]*domain.Device, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsRead); err != nil {
		return nil, err
	}
	return s.devices.List(ctx, technicianID)
}

func (s *RecordsService) DeleteDevice(ctx context.Context, actorID uuid.UUID, id string) error {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return err
	}
	return s.devices.Delete(ctx, id)
}

func (s *RecordsService) CreateIncidentCause(ctx context.Context, actorID uuid.UUID, params domain.IncidentCauseParams) (*domain.IncidentCause, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return nil, err
	}
	cause, err := domain.NewIncidentCause(params)
	if err != nil {
		return nil, err
	}
	return s.causes.Create(ctx, cause)
}

func (s *RecordsService) ListIncidentCauses(ctx context.Context, actorID uuid.UUID, causeType *domain.CauseType) ([]*domain.IncidentCause, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsRead); err != nil {
		return nil, err
	}
	return s.causes.List(ctx, causeType)
}

func (s *RecordsService) DeleteIncidentCause(ctx context.Context, actorID uuid.UUID, id string) error {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return err
	}
	return s.causes.Delete(ctx, id)
}

// CreateActionPlan opens a plan. Its owner must be a known technician.
func (s *RecordsService) CreateActionPlan(ctx context.Context, actorID uuid.UUID, params domain.ActionPlanParams) (*domain.ActionPlan, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return nil, err
	}
	plan, err := domain.NewActionPlan(params)
	if err != nil {
		return nil, err
	}
	if plan.OwnerID != "" {
		if _, err := s.technicians.GetByID(ctx, plan.OwnerID); err != nil {
			return nil, err
		}
	}
	return s.plans.Create(ctx, plan)
}

func (s *RecordsService) ListActionPlans(ctx context.Context, actorID uuid.UUID, status *domain.ActionPlanStatus) ([]*domain.ActionPlan, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsRead); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, apperrors.ErrInvalidActionPlanStatus
	}
	return s.plans.List(ctx, status)
}

// UpdateActionPlanStatus moves a plan along. DONE stamps the completion time.
func (s *RecordsService) UpdateActionPlanStatus(ctx context.Context, actorID uuid.UUID, id string, status domain.ActionPlanStatus) (*domain.ActionPlan, error) {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.UpdateStatus(status, s.now()); err != nil {
		return nil, err
	}
	return s.plans.Update(ctx, plan)
}

func (s *RecordsService) DeleteActionPlan(ctx context.Context, actorID uuid.UUID, id string) error {
	if err := s.require(ctx, actorID, domain.PermRecordsWrite); err != nil {
		return err
	}
	return s.plans.Delete(ctx, id)
}

func (s *RecordsService) require(ctx context.Context, userID uuid.UUID, permission string) error {
	return requirePermission(ctx, s.authzSvc, userID, permission)
}
