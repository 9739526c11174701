package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/mocks"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
	"github.com/lorrc/service-desk-pki/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordsFixture struct {
	technicians *mocks.MockTechnicianRepository
	devices     *mocks.MockDeviceRepository
	causes      *mocks.MockIncidentCauseRepository
	plans       *mocks.MockActionPlanRepository
	authz       *mocks.MockAuthorizationService
	svc         ports.RecordsService
}

func newRecordsFixture() *recordsFixture {
	f := &recordsFixture{
		technicians: mocks.NewMockTechnicianRepository(),
		devices:     mocks.NewMockDeviceRepository(),
		causes:      mocks.NewMockIncidentCauseRepository(),
		plans:       mocks.NewMockActionPlanRepository(),
		authz:       mocks.NewMockAuthorizationService(),
	}
	f.svc = services.NewRecordsService(f.technicians, f.devices, f.causes, f.plans, f.authz)
	return f
}

func TestRecordsService_CreateTechnician(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("success", func(t *testing.T) {
		f := newRecordsFixture()
		f.authz.On("Can", ctx, actor, domain.PermRecordsWrite).Return(true, nil)
		f.technicians.On("Create", ctx, mock.MatchedBy(func(tech *domain.Technician) bool {
			return tech.FullName == "Amine Haddad" && tech.Active && tech.ID != ""
		})).Return(&domain.Technician{ID: "tech-1", FullName: "Amine Haddad", Active: true}, nil)

		tech, err := f.svc.CreateTechnician(ctx, actor, domain.TechnicianParams{FullName: "  Amine Haddad ", Zone: "Nord"})

		require.NoError(t, err)
		assert.Equal(t, "tech-1", tech.ID)
		f.technicians.AssertExpectations(t)
	})

	t.Run("agents cannot write records", func(t *testing.T) {
		f := newRecordsFixture()
		f.authz.On("Can", ctx, actor, domain.PermRecordsWrite).Return(false, nil)

		_, err := f.svc.CreateTechnician(ctx, actor, domain.TechnicianParams{FullName: "X"})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.technicians.AssertNotCalled(t, "Create")
	})

	t.Run("name required", func(t *testing.T) {
		f := newRecordsFixture()
		f.authz.On("Can", ctx, actor, domain.PermRecordsWrite).Return(true, nil)

		_, err := f.svc.CreateTechnician(ctx, actor, domain.TechnicianParams{})

		var validationErr *apperrors.ValidationErrors
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "fullName")
	})
}

func TestRecordsService_CreateDevice(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()
	params := domain.DeviceParams{SerialNumber: "ZTEG12345678", Model: "F680", TechnicianID: "tech-1"}

	t.Run("unknown technician", func(t *testing.T) {
		f := newRecordsFixture()
		f.authz.On("Can", ctx, actor, domain.PermRecordsWrite).Return(true, nil)
		f.technicians.On("GetByID", ctx, "tech-1").Return(nil, apperrors.ErrTechnicianNotFound)

		_, err := f.svc.CreateDevice(ctx, actor, params)

		assert.ErrorIs(t, err, apperrors.ErrTechnicianNotFound)
		f.devices.AssertNotCalled(t, "Create")
	})

	t.Run("duplicate serial", func(t *testing.T) {
		f := newRecordsFixture()
		f.authz.On("Can", ctx, actor, domain.PermRecordsWrite).Return(true, nil)
		f.technicians.On("GetByID", ctx, "tech-1").Return(&domain.Technician{ID: "tech-1", Active: true}, nil)
		f.devices.On("Create", ctx, mock.AnythingOfType("*domain.Device")).Return(nil, apperrors.ErrDeviceSerialAlreadyInUse)

		_, err := f.svc.CreateDevice(ctx, actor, params)

		assert.ErrorIs(t, err, apperrors.ErrDeviceSerialAlreadyInUse)
	})
}

func TestRecordsService_ListActionPlans(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("filters by status", func(t *testing.T) {
		f := newRecordsFixture()
		status := domain.ActionInProgress
		f.authz.On("Can", ctx, actor, domain.PermRecordsRead).Return(true, nil)
		f.plans.On("List", ctx, &status).Return([]*domain.ActionPlan{{ID: "p1", Status: status}}, nil)

		plans, err := f.svc.ListActionPlans(ctx, actor, &status)

		require.NoError(t, err)
		assert.Len(t, plans, 1)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newRecordsFixture()
		status := domain.ActionPlanStatus("CANCELLED")
		f.authz.On("Can", ctx, actor, domain.PermRecordsRead).Return(true, nil)

		_, err := f.svc.ListActionPlans(ctx, actor, &status)

		assert.ErrorIs(t, err, apperrors.ErrInvalidActionPlanStatus)
		f.plans.AssertNotCalled(t, "List")
	})
}

func TestRecordsService_UpdateActionPlanStatus(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	f := newRecordsFixture()
	plan := &domain.ActionPlan{ID: "p1", Title: "Replace splitters", Status: domain.ActionInProgress}

	f.authz.On("Can", ctx, actor, domain.PermRecordsWrite).Return(true, nil)
	f.plans.On("GetByID", ctx, "p1").Return(plan, nil)
	f.plans.On("Update", ctx, plan).Return(plan, nil)

	updated, err := f.svc.UpdateActionPlanStatus(ctx, actor, "p1", domain.ActionDone)

	require.NoError(t, err)
	assert.Equal(t, domain.ActionDone, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	f.plans.AssertExpectations(t)
}

func TestRecordsService_DeleteIncidentCause(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	f := newRecordsFixture()
	f.authz.On("Can", ctx, actor, domain.PermRecordsWrite).Return(true, nil)
	f.causes.On("Delete", ctx, "c1").Return(apperrors.ErrIncidentCauseNotFound)

	err := f.svc.DeleteIncidentCause(ctx, actor, "c1")

	assert.ErrorIs(t, err, apperrors.ErrIncidentCauseNotFound)
}
