package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepository) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

var _ ports.TicketRepository = (*MockTicketRepository)(nil)

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, filter ports.TicketFilter) ([]*domain.Ticket, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Upsert(ctx context.Context, tickets []*domain.Ticket) (int, error) {
	args := m.Called(ctx, tickets)
	return args.Int(0), args.Error(1)
}

// MockTicketEventRepository is a mock implementation of ports.TicketEventRepository
type MockTicketEventRepository struct {
	mock.Mock
}

var _ ports.TicketEventRepository = (*MockTicketEventRepository)(nil)

func NewMockTicketEventRepository() *MockTicketEventRepository {
	return &MockTicketEventRepository{}
}

func (m *MockTicketEventRepository) Create(ctx context.Context, event *domain.TicketEvent) (*domain.TicketEvent, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketEvent), args.Error(1)
}

func (m *MockTicketEventRepository) CreateMany(ctx context.Context, events []*domain.TicketEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockTicketEventRepository) ListByTicketID(ctx context.Context, ticketID string, afterID int64, limit int) ([]*domain.TicketEvent, error) {
	args := m.Called(ctx, ticketID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TicketEvent), args.Error(1)
}

// MockTechnicianRepository is a mock implementation of ports.TechnicianRepository
type MockTechnicianRepository struct {
	mock.Mock
}

var _ ports.TechnicianRepository = (*MockTechnicianRepository)(nil)

func NewMockTechnicianRepository() *MockTechnicianRepository {
	return &MockTechnicianRepository{}
}

func (m *MockTechnicianRepository) Create(ctx context.Context, technician *domain.Technician) (*domain.Technician, error) {
	args := m.Called(ctx, technician)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Technician, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockDeviceRepository is a mock implementation of ports.DeviceRepository
type MockDeviceRepository struct {
	mock.Mock
}

var _ ports.DeviceRepository = (*MockDeviceRepository)(nil)

func NewMockDeviceRepository() *MockDeviceRepository {
	return &MockDeviceRepository{}
}

func (m *MockDeviceRepository) Create(ctx context.Context, device *domain.Device) (*domain.Device, error) {
	args := m.Called(ctx, device)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) List(ctx context.Context, technicianID *string) ([]*domain.Device, error) {
	args := m.Called(ctx, technicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockIncidentCauseRepository is a mock implementation of ports.IncidentCauseRepository
type MockIncidentCauseRepository struct {
	mock.Mock
}

var _ ports.IncidentCauseRepository = (*MockIncidentCauseRepository)(nil)

func NewMockIncidentCauseRepository() *MockIncidentCauseRepository {
	return &MockIncidentCauseRepository{}
}

func (m *MockIncidentCauseRepository) Create(ctx context.Context, cause *domain.IncidentCause) (*domain.IncidentCause, error) {
	args := m.Called(ctx, cause)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IncidentCause), args.Error(1)
}

func (m *MockIncidentCauseRepository) List(ctx context.Context, causeType *domain.CauseType) ([]*domain.IncidentCause, error) {
	args := m.Called(ctx, causeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IncidentCause), args.Error(1)
}

func (m *MockIncidentCauseRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockActionPlanRepository is a mock implementation of ports.ActionPlanRepository
type MockActionPlanRepository struct {
	mock.Mock
}

var _ ports.ActionPlanRepository = (*MockActionPlanRepository)(nil)

func NewMockActionPlanRepository() *MockActionPlanRepository {
	return &MockActionPlanRepository{}
}

func (m *MockActionPlanRepository) Create(ctx context.Context, plan *domain.ActionPlan) (*domain.ActionPlan, error) {
	args := m.Called(ctx, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActionPlan), args.Error(1)
}

func (m *MockActionPlanRepository) GetByID(ctx context.Context, id string) (*domain.ActionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActionPlan), args.Error(1)
}

func (m *MockActionPlanRepository) List(ctx context.Context, status *domain.ActionPlanStatus) ([]*domain.ActionPlan, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ActionPlan), args.Error(1)
}

func (m *MockActionPlanRepository) Update(ctx context.Context, plan *domain.ActionPlan) (*domain.ActionPlan, error) {
	args := m.Called(ctx, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActionPlan), args.Error(1)
}

func (m *MockActionPlanRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAuthorizationService is a mock implementation of ports.AuthorizationService
type MockAuthorizationService struct {
	mock.Mock
}

var _ ports.AuthorizationService = (*MockAuthorizationService)(nil)

func NewMockAuthorizationService() *MockAuthorizationService {
	return &MockAuthorizationService{}
}

func (m *MockAuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	args := m.Called(ctx, userID, permission)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizationService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockAuthService is a mock implementation of ports.AuthService
type MockAuthService struct {
	mock.Mock
}

var _ ports.AuthService = (*MockAuthService)(nil)

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email string, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockAdminService is a mock implementation of ports.AdminService
type MockAdminService struct {
	mock.Mock
}

var _ ports.AdminService = (*MockAdminService)(nil)

func NewMockAdminService() *MockAdminService {
	return &MockAdminService{}
}

func (m *MockAdminService) ListUsers(ctx context.Context, actorID uuid.UUID) ([]*domain.User, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockAdminService) UpdateUserRole(ctx context.Context, actorID uuid.UUID, userID uuid.UUID, role domain.Role) error {
	args := m.Called(ctx, actorID, userID, role)
	return args.Error(0)
}

func (m *MockAdminService) UpdateUserStatus(ctx context.Context, actorID uuid.UUID, userID uuid.UUID, isActive bool) error {
	args := m.Called(ctx, actorID, userID, isActive)
	return args.Error(0)
}

func (m *MockAdminService) ResetUserPassword(ctx context.Context, actorID uuid.UUID, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, actorID, userID)
	return args.String(0), args.Error(1)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

var _ ports.TicketService = (*MockTicketService)(nil)

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, ticketID string, viewerID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) CloseTicket(ctx context.Context, params ports.CloseTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ReopenTicket(ctx context.Context, params ports.ReopenTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) AssignTechnician(ctx context.Context, params ports.AssignTechnicianParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ImportTickets(ctx context.Context, params ports.ImportTicketsParams) (int, error) {
	args := m.Called(ctx, params)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketService) ExportTickets(ctx context.Context, params ports.ExportTicketsParams, w io.Writer) (int, error) {
	args := m.Called(ctx, params, w)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketService) Shutdown() {
	m.Called()
}

// MockEventService is a mock implementation of ports.EventService
type MockEventService struct {
	mock.Mock
}

var _ ports.EventService = (*MockEventService)(nil)

func NewMockEventService() *MockEventService {
	return &MockEventService{}
}

func (m *MockEventService) ListTicketEvents(ctx context.Context, params ports.ListTicketEventsParams) ([]*domain.TicketEvent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TicketEvent), args.Error(1)
}

// MockPKIService is a mock implementation of ports.PKIService
type MockPKIService struct {
	mock.Mock
}

var _ ports.PKIService = (*MockPKIService)(nil)

func NewMockPKIService() *MockPKIService {
	return &MockPKIService{}
}

func (m *MockPKIService) Overview(ctx context.Context, params ports.OverviewParams) (*domain.PKIOverview, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PKIOverview), args.Error(1)
}

func (m *MockPKIService) Rollup(ctx context.Context, params ports.RollupParams) ([]domain.RollupBucket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RollupBucket), args.Error(1)
}

func (m *MockPKIService) ServicePKI(ctx context.Context, viewerID uuid.UUID, total int, onTime int, serviceType domain.ServiceType) (domain.ServicePKI, error) {
	args := m.Called(ctx, viewerID, total, onTime, serviceType)
	return args.Get(0).(domain.ServicePKI), args.Error(1)
}

// MockRecordsService is a mock implementation of ports.RecordsService
type MockRecordsService struct {
	mock.Mock
}

var _ ports.RecordsService = (*MockRecordsService)(nil)

func NewMockRecordsService() *MockRecordsService {
	return &MockRecordsService{}
}

func (m *MockRecordsService) CreateTechnician(ctx context.Context, actorID uuid.UUID, params domain.TechnicianParams) (*domain.Technician, error) {
	args := m.Called(ctx, actorID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockRecordsService) GetTechnician(ctx context.Context, actorID uuid.UUID, id string) (*domain.Technician, error) {
	args := m.Called(ctx, actorID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockRecordsService) ListTechnicians(ctx context.Context, actorID uuid.UUID, activeOnly bool) ([]*domain.Technician, error) {
	args := m.Called(ctx, actorID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Technician), args.Error(1)
}

func (m *MockRecordsService) DeleteTechnician(ctx context.Context, actorID uuid.UUID, id string) error {
	args := m.Called(ctx, actorID, id)
	return args.Error(0)
}

func (m *MockRecordsService) CreateDevice(ctx context.Context, actorID uuid.UUID, params domain.DeviceParams) (*domain.Device, error) {
	args := m.Called(ctx, actorID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *MockRecordsService) ListDevices(ctx context.Context, actorID uuid.UUID, technicianID *string) ([]*domain.Device, error) {
	args := m.Called(ctx, actorID, technicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Device), args.Error(1)
}

func (m *MockRecordsService) DeleteDevice(ctx context.Context, actorID uuid.UUID, id string) error {
	args := m.Called(ctx, actorID, id)
	return args.Error(0)
}

func (m *MockRecordsService) CreateIncidentCause(ctx context.Context, actorID uuid.UUID, params domain.IncidentCauseParams) (*domain.IncidentCause, error) {
	args := m.Called(ctx, actorID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IncidentCause), args.Error(1)
}

func (m *MockRecordsService) ListIncidentCauses(ctx context.Context, actorID uuid.UUID, causeType *domain.CauseType) ([]*domain.IncidentCause, error) {
	args := m.Called(ctx, actorID, causeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IncidentCause), args.Error(1)
}

func (m *MockRecordsService) DeleteIncidentCause(ctx context.Context, actorID uuid.UUID, id string) error {
	args := m.Called(ctx, actorID, id)
	return args.Error(0)
}

func (m *MockRecordsService) CreateActionPlan(ctx context.Context, actorID uuid.UUID, params domain.ActionPlanParams) (*domain.ActionPlan, error) {
	args := m.Called(ctx, actorID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActionPlan), args.Error(1)
}

func (m *MockRecordsService) ListActionPlans(ctx context.Context, actorID uuid.UUID, status *domain.ActionPlanStatus) ([]*domain.ActionPlan, error) {
	args := m.Called(ctx, actorID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ActionPlan), args.Error(1)
}

func (m *MockRecordsService) UpdateActionPlanStatus(ctx context.Context, actorID uuid.UUID, id string, status domain.ActionPlanStatus) (*domain.ActionPlan, error) {
	args := m.Called(ctx, actorID, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActionPlan), args.Error(1)
}

func (m *MockRecordsService) DeleteActionPlan(ctx context.Context, actorID uuid.UUID, id string) error {
	args := m.Called(ctx, actorID, id)
	return args.Error(0)
}

// MockTicketCodec is a mock implementation of ports.TicketCodec
type MockTicketCodec struct {
	mock.Mock
}

var _ ports.TicketCodec = (*MockTicketCodec)(nil)

func NewMockTicketCodec() *MockTicketCodec {
	return &MockTicketCodec{}
}

func (m *MockTicketCodec) Decode(r io.Reader, format ports.FileFormat) ([]*domain.Ticket, error) {
	args := m.Called(r, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketCodec) Encode(w io.Writer, format ports.FileFormat, tickets []*domain.Ticket) error {
	args := m.Called(w, format, tickets)
	return args.Error(0)
}

// MockTransactionManager runs fn inline unless an error is configured
type MockTransactionManager struct {
	mock.Mock
}

var _ ports.TransactionManager = (*MockTransactionManager)(nil)

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

var _ ports.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
