package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
)

// Field length limits
const (
	MaxDescriptionLength   = 10000
	MaxFreeTextLength      = 2000
	MaxLineReferenceLength = 64
)

// ServiceType is the telecom product line a ticket was raised against.
type ServiceType string

const (
	ServiceFibre      ServiceType = "FIBRE"
	ServiceADSL       ServiceType = "ADSL"
	ServiceDegroupage ServiceType = "DEGROUPAGE"
	ServiceFixe       ServiceType = "FIXE"
)

// ServiceTypes lists every service type in reporting order.
var ServiceTypes = []ServiceType{ServiceFibre, ServiceADSL, ServiceDegroupage, ServiceFixe}

// IsValid checks if the service type is one of the known values
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceFibre, ServiceADSL, ServiceDegroupage, ServiceFixe:
		return true
	}
	return false
}

// ParseServiceType accepts any casing and surrounding whitespace.
func ParseServiceType(raw string) (ServiceType, error) {
	s := ServiceType(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", apperrors.ErrInvalidServiceType
	}
	return s, nil
}

// CauseType is the root-cause category of a ticket.
type CauseType string

const (
	CauseTechnique CauseType = "Technique"
	CauseClient    CauseType = "Client"
	CauseCasse     CauseType = "Casse"
)

// CauseTypes lists every cause type in reporting order.
var CauseTypes = []CauseType{CauseTechnique, CauseClient, CauseCasse}

// IsValid checks if the cause type is one of the known values
func (c CauseType) IsValid() bool {
	switch c {
	case CauseTechnique, CauseClient, CauseCasse:
		return true
	}
	return false
}

// ParseCauseType matches case-insensitively against the canonical spelling.
func ParseCauseType(raw string) (CauseType, error) {
	trimmed := strings.TrimSpace(raw)
	for _, c := range CauseTypes {
		if strings.EqualFold(trimmed, string(c)) {
			return c, nil
		}
	}
	return "", apperrors.ErrInvalidCauseType
}

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusInProgress TicketStatus = "IN_PROGRESS"
	StatusClosed     TicketStatus = "CLOSED"
)

// IsValid checks if the status is a valid ticket status
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// ParseTicketStatus accepts any casing and surrounding whitespace.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	s := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", apperrors.ErrInvalidStatus
	}
	return s, nil
}

// Ticket is the core domain entity.
type Ticket struct {
	ID            string
	ServiceType   ServiceType
	CauseType     CauseType
	Status        TicketStatus
	CreatedAt     time.Time
	ClosedAt      *time.Time
	MetDeadline   bool
	Reopened      bool
	ReopenCount   int
	Description   string
	CauseDetail   string
	ClosureReason string
	TechnicianID  string
	LineReference string
	UpdatedAt     *time.Time
}

// TicketParams holds the input for creating a new ticket.
type TicketParams struct {
	ID            string
	ServiceType   ServiceType
	CauseType     CauseType
	Description   string
	CauseDetail   string
	TechnicianID  string
	LineReference string
	CreatedAt     time.Time
}

// Validate validates ticket creation parameters
func (p *TicketParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if !p.ServiceType.IsValid() {
		errs.Add("serviceType", "Must be one of: FIBRE, ADSL, DEGROUPAGE, FIXE")
	}
	if !p.CauseType.IsValid() {
		errs.Add("causeType", "Must be one of: Technique, Client, Casse")
	}

	if strings.TrimSpace(p.Description) == "" {
		errs.Add("description", "Description is required")
	} else if len(p.Description) > MaxDescriptionLength {
		errs.Add("description", "Description must be 10000 characters or less")
	}

	if len(p.CauseDetail) > MaxFreeTextLength {
		errs.Add("causeDetail", "Cause detail must be 2000 characters or less")
	}
	if len(p.LineReference) > MaxLineReferenceLength {
		errs.Add("lineReference", "Line reference must be 64 characters or less")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewTicket is a factory function to create a valid new ticket.
func NewTicket(params TicketParams) (*Ticket, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Ticket{
		ID:            id,
		ServiceType:   params.ServiceType,
		CauseType:     params.CauseType,
		Status:        StatusInProgress,
		CreatedAt:     createdAt,
		Description:   params.Description,
		CauseDetail:   params.CauseDetail,
		TechnicianID:  params.TechnicianID,
		LineReference: params.LineReference,
	}, nil
}

// Validate checks a fully materialized ticket, such as one read from a
// spreadsheet, before it is persisted.
func (t *Ticket) Validate() error {
	errs := apperrors.NewValidationErrors()

	if strings.TrimSpace(t.ID) == "" {
		errs.Add("id", "Ticket ID is required")
	}
	if !t.ServiceType.IsValid() {
		errs.Add("serviceType", "Must be one of: FIBRE, ADSL, DEGROUPAGE, FIXE")
	}
	if !t.CauseType.IsValid() {
		errs.Add("causeType", "Must be one of: Technique, Client, Casse")
	}
	if !t.Status.IsValid() {
		errs.Add("status", "Must be one of: IN_PROGRESS, CLOSED")
	}
	if t.CreatedAt.IsZero() {
		errs.Add("createdAt", "Creation time is required")
	}
	if len(t.Description) > MaxDescriptionLength {
		errs.Add("description", "Description must be 10000 characters or less")
	}
	if t.ReopenCount < 0 {
		errs.Add("reopenCount", "Reopen count cannot be negative")
	}

	if t.Status == StatusClosed {
		if t.ClosedAt == nil {
			errs.Add("closedAt", "Closed tickets need a closure time")
		} else if t.ClosedAt.Before(t.CreatedAt) {
			errs.Add("closedAt", "Closure time cannot precede creation time")
		}
	}
	if t.Status == StatusInProgress && t.ClosedAt != nil {
		errs.Add("closedAt", "Tickets in progress cannot have a closure time")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// IsClosed reports whether the ticket is in the CLOSED state.
func (t *Ticket) IsClosed() bool {
	return t.Status == StatusClosed
}

// ResolutionTime is the time between creation and closure.
func (t *Ticket) ResolutionTime() (time.Duration, bool) {
	if t.ClosedAt == nil {
		return 0, false
	}
	return t.ClosedAt.Sub(t.CreatedAt), true
}

// Close moves an in-progress ticket to CLOSED and fixes its deadline flag.
func (t *Ticket) Close(at time.Time, reason string, policy DeadlinePolicy) error {
	if t.Status == StatusClosed {
		return apperrors.ErrTicketAlreadyClosed
	}
	if at.Before(t.CreatedAt) {
		return apperrors.ErrClosedBeforeCreated
	}

	closedAt := at.UTC()
	t.Status = StatusClosed
	t.ClosedAt = &closedAt
	t.ClosureReason = reason
	t.MetDeadline = policy.Met(t.ServiceType, t.CreatedAt, closedAt)
	t.UpdatedAt = &closedAt
	return nil
}

// Reopen reactivates a closed ticket and records the stability failure.
func (t *Ticket) Reopen(at time.Time) error {
	if t.Status != StatusClosed {
		return apperrors.ErrTicketNotClosed
	}

	now := at.UTC()
	t.Status = StatusInProgress
	t.ClosedAt = nil
	t.ClosureReason = ""
	t.MetDeadline = false
	t.Reopened = true
	t.ReopenCount++
	t.UpdatedAt = &now
	return nil
}

// AssignTechnician sets or changes the technician working the ticket.
func (t *Ticket) AssignTechnician(technicianID string, at time.Time) error {
	// Business rule: You cannot assign a closed ticket.
	if t.Status == StatusClosed {
		return apperrors.ErrCannotAssignClosed
	}
	now := at.UTC()
	t.TechnicianID = technicianID
	t.UpdatedAt = &now
	return nil
}

// DeadlinePolicy holds the target resolution window per service type.
type DeadlinePolicy struct {
	Windows       map[ServiceType]time.Duration
	DefaultWindow time.Duration
}

// DefaultDeadlinePolicy returns the standard resolution windows.
func DefaultDeadlinePolicy() DeadlinePolicy {
	return DeadlinePolicy{
		Windows: map[ServiceType]time.Duration{
			ServiceFibre:      24 * time.Hour,
			ServiceADSL:       48 * time.Hour,
			ServiceDegroupage: 72 * time.Hour,
			ServiceFixe:       48 * time.Hour,
		},
		DefaultWindow: 48 * time.Hour,
	}
}

// Window returns the resolution window for a service type.
func (p DeadlinePolicy) Window(service ServiceType) time.Duration {
	if w, ok := p.Windows[service]; ok && w > 0 {
		return w
	}
	return p.DefaultWindow
}

// Met reports whether a closure at closedAt is within the window.
func (p DeadlinePolicy) Met(service ServiceType, createdAt, closedAt time.Time) bool {
	return closedAt.Sub(createdAt) <= p.Window(service)
}
