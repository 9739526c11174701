package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
)

// TicketFilter narrows a ticket query. Nil fields are ignored and a zero
// Limit returns every match.
type TicketFilter struct {
	Status       *domain.TicketStatus
	ServiceType  *domain.ServiceType
	CauseType    *domain.CauseType
	TechnicianID *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository is the ticket source of the aggregation core.
// Lists are ordered by creation time, newest first.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error)
	Upsert(ctx context.Context, tickets []*domain.Ticket) (int, error)
}

// TicketEventRepository persists ticket history.
type TicketEventRepository interface {
	Create(ctx context.Context, event *domain.TicketEvent) (*domain.TicketEvent, error)
	CreateMany(ctx context.Context, events []*domain.TicketEvent) error
	ListByTicketID(ctx context.Context, ticketID string, afterID int64, limit int) ([]*domain.TicketEvent, error)
}

// UserRepository persists staff accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
}

// TechnicianRepository persists technicians.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *domain.Technician) (*domain.Technician, error)
	GetByID(ctx context.Context, id string) (*domain.Technician, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Technician, error)
	Delete(ctx context.Context, id string) error
}

// DeviceRepository persists devices.
type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) (*domain.Device, error)
	List(ctx context.Context, technicianID *string) ([]*domain.Device, error)
	Delete(ctx context.Context, id string) error
}

// IncidentCauseRepository persists the incident cause catalogue.
type IncidentCauseRepository interface {
	Create(ctx context.Context, cause *domain.IncidentCause) (*domain.IncidentCause, error)
	List(ctx context.Context, causeType *domain.CauseType) ([]*domain.IncidentCause, error)
	Delete(ctx context.Context, id string) error
}

// ActionPlanRepository persists action plans.
type ActionPlanRepository interface {
	Create(ctx context.Context, plan *domain.ActionPlan) (*domain.ActionPlan, error)
	GetByID(ctx context.Context, id string) (*domain.ActionPlan, error)
	List(ctx context.Context, status *domain.ActionPlanStatus) ([]*domain.ActionPlan, error)
	Update(ctx context.Context, plan *domain.ActionPlan) (*domain.ActionPlan, error)
	Delete(ctx context.Context, id string) error
}

// TransactionManager defines the port for running atomic operations.
// Repositories called with the ctx passed to fn join the transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventBroadcaster pushes real-time events to connected dashboards.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
