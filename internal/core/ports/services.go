package ports

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// AuthorizationService defines the port for checking user permissions.
type AuthorizationService interface {
	Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
	GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// AdminService defines the port for user management.
type AdminService interface {
	ListUsers(ctx context.Context, actorID uuid.UUID) ([]*domain.User, error)
	UpdateUserRole(ctx context.Context, actorID, userID uuid.UUID, role domain.Role) error
	UpdateUserStatus(ctx context.Context, actorID, userID uuid.UUID, isActive bool) error
	ResetUserPassword(ctx context.Context, actorID, userID uuid.UUID) (string, error)
}

// FileFormat is a spreadsheet encoding supported by import and export.
type FileFormat string

const (
	FormatXLSX FileFormat = "xlsx"
	FormatCSV  FileFormat = "csv"
)

// ParseFileFormat accepts a bare format or a file name with extension.
func ParseFileFormat(raw string) (FileFormat, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch FileFormat(name) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", apperrors.ErrUnsupportedFileFormat
}

// TicketCodec reads and writes ticket spreadsheets.
type TicketCodec interface {
	Decode(r io.Reader, format FileFormat) ([]*domain.Ticket, error)
	Encode(w io.Writer, format FileFormat, tickets []*domain.Ticket) error
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	ActorID       uuid.UUID
	ServiceType   domain.ServiceType
	CauseType     domain.CauseType
	Description   string
	CauseDetail   string
	TechnicianID  string
	LineReference string
}

// CloseTicketParams defines the input for closing a ticket.
type CloseTicketParams struct {
	TicketID string
	ActorID  uuid.UUID
	Reason   string
}

// ReopenTicketParams defines the input for reopening a ticket.
type ReopenTicketParams struct {
	TicketID string
	ActorID  uuid.UUID
}

// AssignTechnicianParams defines the input for assigning a ticket.
type AssignTechnicianParams struct {
	TicketID     string
	TechnicianID string
	ActorID      uuid.UUID
}

// ListTicketsParams defines the input for listing tickets.
type ListTicketsParams struct {
	ViewerID     uuid.UUID
	Limit        int
	Offset       int
	Status       *domain.TicketStatus
	ServiceType  *domain.ServiceType
	CauseType    *domain.CauseType
	TechnicianID *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// ImportTicketsParams defines the input for a spreadsheet import.
type ImportTicketsParams struct {
	ActorID uuid.UUID
	Format  FileFormat
	Source  io.Reader
}

// ExportTicketsParams defines the input for a spreadsheet export.
type ExportTicketsParams struct {
	ActorID     uuid.UUID
	Format      FileFormat
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ListTicketEventsParams defines the input for listing ticket events.
type ListTicketEventsParams struct {
	TicketID string
	ViewerID uuid.UUID
	AfterID  int64
	Limit    int
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	TechnicianID string
	Subject      string
	Message      string
	TicketID     string
}

// TicketService defines the core business operations for managing tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID string, viewerID uuid.UUID) (*domain.Ticket, error)
	ListTickets(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, error)
	CloseTicket(ctx context.Context, params CloseTicketParams) (*domain.Ticket, error)
	ReopenTicket(ctx context.Context, params ReopenTicketParams) (*domain.Ticket, error)
	AssignTechnician(ctx context.Context, params AssignTechnicianParams) (*domain.Ticket, error)
	ImportTickets(ctx context.Context, params ImportTicketsParams) (int, error)
	ExportTickets(ctx context.Context, params ExportTicketsParams, w io.Writer) (int, error)
	Shutdown()
}

// EventService defines the port for ticket history queries.
type EventService interface {
	ListTicketEvents(ctx context.Context, params ListTicketEventsParams) ([]*domain.TicketEvent, error)
}

// OverviewParams defines the input for the dashboard overview.
type OverviewParams struct {
	ViewerID    uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	ServiceType *domain.ServiceType
}

// RollupParams defines the input for a time-windowed rollup.
type RollupParams struct {
	ViewerID    uuid.UUID
	Granularity domain.Granularity
	Reference   time.Time
	ServiceType *domain.ServiceType
}

// PKIService exposes the aggregation core over stored tickets.
type PKIService interface {
	Overview(ctx context.Context, params OverviewParams) (*domain.PKIOverview, error)
	Rollup(ctx context.Context, params RollupParams) ([]domain.RollupBucket, error)
	ServicePKI(ctx context.Context, viewerID uuid.UUID, total, onTime int, serviceType domain.ServiceType) (domain.ServicePKI, error)
}

// RecordsService manages technicians, devices, incident causes and action plans.
type RecordsService interface {
	CreateTechnician(ctx context.Context, actorID uuid.UUID, params domain.TechnicianParams) (*domain.Technician, error)
	GetTechnician(ctx context.Context, actorID uuid.UUID, id string) (*domain.Technician, error)
	ListTechnicians(ctx context.Context, actorID uuid.UUID, activeOnly bool) ([]*domain.Technician, error)
	DeleteTechnician(ctx context.Context, actorID uuid.UUID, id string) error

	CreateDevice(ctx context.Context, actorID uuid.UUID, params domain.DeviceParams) (*domain.Device, error)
	ListDevices(ctx context.Context, actorID uuid.UUID, technicianID *string) ([]*domain.Device, error)
	DeleteDevice(ctx context.Context, actorID uuid.UUID, id string) error

	CreateIncidentCause(ctx context.Context, actorID uuid.UUID, params domain.IncidentCauseParams) (*domain.IncidentCause, error)
	ListIncidentCauses(ctx context.Context, actorID uuid.UUID, causeType *domain.CauseType) ([]*domain.IncidentCause, error)
	DeleteIncidentCause(ctx context.Context, actorID uuid.UUID, id string) error

	CreateActionPlan(ctx context.Context, actorID uuid.UUID, params domain.ActionPlanParams) (*domain.ActionPlan, error)
	ListActionPlans(ctx context.Context, actorID uuid.UUID, status *domain.ActionPlanStatus) ([]*domain.ActionPlan, error)
	UpdateActionPlanStatus(ctx context.Context, actorID uuid.UUID, id string, status domain.ActionPlanStatus) (*domain.ActionPlan, error)
	DeleteActionPlan(ctx context.Context, actorID uuid.UUID, id string) error
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}
