package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
)

// MaxRecordFieldLength bounds the short text fields of ancillary records.
const MaxRecordFieldLength = 255

// Technician is a field technician tickets can be assigned to.
type Technician struct {
	ID        string
	FullName  string
	Phone     string
	Zone      string
	Active    bool
	CreatedAt time.Time
}

// TechnicianParams holds the input for registering a technician.
type TechnicianParams struct {
	FullName string
	Phone    string
	Zone     string
}

// Validate validates technician parameters
func (p *TechnicianParams) Validate() error {
	errs := apperrors.NewValidationErrors()
	requireField(errs, "fullName", p.FullName)
	limitField(errs, "phone", p.Phone)
	limitField(errs, "zone", p.Zone)
	return errs.OrNil()
}

// NewTechnician creates an active technician.
func NewTechnician(params TechnicianParams) (*Technician, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Technician{
		ID:        uuid.NewString(),
		FullName:  strings.TrimSpace(params.FullName),
		Phone:     strings.TrimSpace(params.Phone),
		Zone:      strings.TrimSpace(params.Zone),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Device is a piece of customer premises or network equipment.
type Device struct {
	ID           string
	SerialNumber string
	Model        string
	Kind         string
	TechnicianID string
	InstalledAt  *time.Time
	CreatedAt    time.Time
}

// DeviceParams holds the input for registering a device.
type DeviceParams struct {
	SerialNumber string
	Model        string
	Kind         string
	TechnicianID string
	InstalledAt  *time.Time
}

// Validate validates device parameters
func (p *DeviceParams) Validate() error {
	errs := apperrors.NewValidationErrors()
	requireField(errs, "serialNumber", p.SerialNumber)
	requireField(errs, "model", p.Model)
	limitField(errs, "kind", p.Kind)
	return errs.OrNil()
}

// NewDevice creates a device record.
func NewDevice(params DeviceParams) (*Device, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Device{
		ID:           uuid.NewString(),
		SerialNumber: strings.TrimSpace(params.SerialNumber),
		Model:        strings.TrimSpace(params.Model),
		Kind:         strings.TrimSpace(params.Kind),
		TechnicianID: params.TechnicianID,
		InstalledAt:  params.InstalledAt,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// IncidentCause is a catalogued root cause under one cause type.
type IncidentCause struct {
	ID          string
	CauseType   CauseType
	Label       string
	Description string
	CreatedAt   time.Time
}

// IncidentCauseParams holds the input for cataloguing a cause.
type IncidentCauseParams struct {
	CauseType   CauseType
	Label       string
	Description string
}

// Validate validates incident cause parameters
func (p *IncidentCauseParams) Validate() error {
	errs := apperrors.NewValidationErrors()
	if !p.CauseType.IsValid() {
		errs.Add("causeType", "Must be one of: Technique, Client, Casse")
	}
	requireField(errs, "label", p.Label)
	if len(p.Description) > MaxFreeTextLength {
		errs.Add("description", "Description must be 2000 characters or less")
	}
	return errs.OrNil()
}

// NewIncidentCause creates an incident cause record.
func NewIncidentCause(params IncidentCauseParams) (*IncidentCause, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &IncidentCause{
		ID:          uuid.NewString(),
		CauseType:   params.CauseType,
		Label:       strings.TrimSpace(params.Label),
		Description: params.Description,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ActionPlanStatus is the progress of a corrective action plan.
type ActionPlanStatus string

const (
	ActionPlanned    ActionPlanStatus = "PLANNED"
	ActionInProgress ActionPlanStatus = "IN_PROGRESS"
	ActionDone       ActionPlanStatus = "DONE"
)

// IsValid checks if the status is a valid action plan status
func (s ActionPlanStatus) IsValid() bool {
	switch s {
	case ActionPlanned, ActionInProgress, ActionDone:
		return true
	}
	return false
}

// ActionPlan is a corrective plan raised against an incident cause.
type ActionPlan struct {
	ID          string
	Title       string
	Description string
	CauseID     string
	OwnerID     string
	Status      ActionPlanStatus
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// ActionPlanParams holds the input for opening an action plan.
type ActionPlanParams struct {
	Title       string
	Description string
	CauseID     string
	OwnerID     string
	DueDate     *time.Time
}

// Validate validates action plan parameters
func (p *ActionPlanParams) Validate() error {
	errs := apperrors.NewValidationErrors()
	requireField(errs, "title", p.Title)
	if len(p.Description) > MaxFreeTextLength {
		errs.Add("description", "Description must be 2000 characters or less")
	}
	return errs.OrNil()
}

// NewActionPlan creates a plan in the PLANNED state.
func NewActionPlan(params ActionPlanParams) (*ActionPlan, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &ActionPlan{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		CauseID:     params.CauseID,
		OwnerID:     params.OwnerID,
		Status:      ActionPlanned,
		DueDate:     params.DueDate,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// UpdateStatus moves the plan to status. DONE stamps CompletedAt, any other
// status clears it.
func (a *ActionPlan) UpdateStatus(status ActionPlanStatus, at time.Time) error {
	if !status.IsValid() {
		return apperrors.ErrInvalidActionPlanStatus
	}

	now := at.UTC()
	a.Status = status
	a.UpdatedAt = &now
	if status == ActionDone {
		a.CompletedAt = &now
	} else {
		a.CompletedAt = nil
	}
	return nil
}

// IsOverdue reports whether an unfinished plan is past its due date.
func (a *ActionPlan) IsOverdue(now time.Time) bool {
	return a.Status != ActionDone && a.DueDate != nil && now.After(*a.DueDate)
}

func requireField(errs *apperrors.ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, "This field is required")
		return
	}
	limitField(errs, field, value)
}

func limitField(errs *apperrors.ValidationErrors, field, value string) {
	if len(value) > MaxRecordFieldLength {
		errs.Add(field, "Must be 255 characters or less")
	}
}
