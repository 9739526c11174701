package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	mw "github.com/lorrc/service-desk-pki/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-pki/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-pki/internal/auth"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// RecordsHandler serves technicians, devices, incident causes and action plans.
type RecordsHandler struct {
	recordsService ports.RecordsService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(recordsService ports.RecordsService, errorHandler *ErrorHandler, logger *slog.Logger) *RecordsHandler {
	return &RecordsHandler{
		recordsService: recordsService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "records"),
	}
}

// RegisterRoutes mounts every record collection on r.
func (h *RecordsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/technicians", func(r chi.Router) {
		r.Get("/", h.HandleListTechnicians)
		r.Post("/", h.HandleCreateTechnician)
		r.Get("/{id}", h.HandleGetTechnician)
		r.Delete("/{id}", h.HandleDeleteTechnician)
	})

	r.Route("/devices", func(r chi.Router) {
		r.Get("/", h.HandleListDevices)
		r.Post("/", h.HandleCreateDevice)
		r.Delete("/{id}", h.HandleDeleteDevice)
	})

	r.Route("/causes", func(r chi.Router) {
		r.Get("/", h.HandleListIncidentCauses)
		r.Post("/", h.HandleCreateIncidentCause)
		r.Delete("/{id}", h.HandleDeleteIncidentCause)
	})

	r.Route("/action-plans", func(r chi.Router) {
		r.Get("/", h.HandleListActionPlans)
		r.Post("/", h.HandleCreateActionPlan)
		r.Patch("/{id}/status", h.HandleUpdateActionPlanStatus)
		r.Delete("/{id}", h.HandleDeleteActionPlan)
	})
}

// --- Request DTOs ---

// CreateTechnicianRequest defines the JSON body for registering a technician
type CreateTechnicianRequest struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Zone     string `json:"zone"`
}

// Validate validates the create technician request
func (r *CreateTechnicianRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("fullName", r.FullName).
		MaxLength("fullName", r.FullName, domain.MaxRecordFieldLength).
		MaxLength("phone", r.Phone, domain.MaxRecordFieldLength).
		MaxLength("zone", r.Zone, domain.MaxRecordFieldLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// CreateDeviceRequest defines the JSON body for registering a device
type CreateDeviceRequest struct {
	SerialNumber string     `json:"serialNumber"`
	Model        string     `json:"model"`
	Kind         string     `json:"kind"`
	TechnicianID string     `json:"technicianId"`
	InstalledAt  *time.Time `json:"installedAt"`
}

// Validate validates the create device request
func (r *CreateDeviceRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("serialNumber", r.SerialNumber).
		MaxLength("serialNumber", r.SerialNumber, domain.MaxRecordFieldLength).
		MaxLength("model", r.Model, domain.MaxRecordFieldLength).
		MaxLength("kind", r.Kind, domain.MaxRecordFieldLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// CreateIncidentCauseRequest defines the JSON body for cataloguing a cause
type CreateIncidentCauseRequest struct {
	CauseType   string `json:"causeType"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Validate validates the create incident cause request
func (r *CreateIncidentCauseRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("causeType", r.CauseType)
	if r.CauseType != "" {
		_, err := domain.ParseCauseType(r.CauseType)
		v.Custom("causeType", err == nil, "Must be one of Technique, Client, Casse")
	}
	v.Required("label", r.Label).
		MaxLength("label", r.Label, domain.MaxRecordFieldLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// CreateActionPlanRequest defines the JSON body for opening an action plan
type CreateActionPlanRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CauseID     string     `json:"causeId"`
	OwnerID     string     `json:"ownerId"`
	DueDate     *time.Time `json:"dueDate"`
}

// Validate validates the create action plan request
func (r *CreateActionPlanRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxRecordFieldLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateActionPlanStatusRequest defines the JSON body for moving a plan
type UpdateActionPlanStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the status update request
func (r *UpdateActionPlanStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", strings.ToUpper(r.Status), []string{
			string(domain.ActionPlanned),
			string(domain.ActionInProgress),
			string(domain.ActionDone),
		})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Response DTOs ---

// TechnicianDTO defines the JSON response for technicians.
type TechnicianDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone,omitempty"`
	Zone      string `json:"zone,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt"`
}

// DeviceDTO defines the JSON response for devices.
type DeviceDTO struct {
	ID           string  `json:"id"`
	SerialNumber string  `json:"serialNumber"`
	Model        string  `json:"model,omitempty"`
	Kind         string  `json:"kind,omitempty"`
	TechnicianID *string `json:"technicianId"`
	InstalledAt  *string `json:"installedAt"`
	CreatedAt    string  `json:"createdAt"`
}

// IncidentCauseDTO defines the JSON response for incident causes.
type IncidentCauseDTO struct {
	ID          string `json:"id"`
	CauseType   string `json:"causeType"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// ActionPlanDTO defines the JSON response for action plans.
type ActionPlanDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	CauseID     *string `json:"causeId"`
	OwnerID     *string `json:"ownerId"`
	Status      string  `json:"status"`
	DueDate     *string `json:"dueDate"`
	CompletedAt *string `json:"completedAt"`
	Overdue     bool    `json:"overdue"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

func toTechnicianDTO(t *domain.Technician) TechnicianDTO {
	return TechnicianDTO{
		ID:        t.ID,
		FullName:  t.FullName,
		Phone:     t.Phone,
		Zone:      t.Zone,
		Active:    t.Active,
		CreatedAt: t.CreatedAt.UTC().Format(timeLayout),
	}
}

func toDeviceDTO(d *domain.Device) DeviceDTO {
	return DeviceDTO{
		ID:           d.ID,
		SerialNumber: d.SerialNumber,
		Model:        d.Model,
		Kind:         d.Kind,
		TechnicianID: lo.EmptyableToPtr(d.TechnicianID),
		InstalledAt:  formatTime(d.InstalledAt),
		CreatedAt:    d.CreatedAt.UTC().Format(timeLayout),
	}
}

func toIncidentCauseDTO(c *domain.IncidentCause) IncidentCauseDTO {
	return IncidentCauseDTO{
		ID:          c.ID,
		CauseType:   string(c.CauseType),
		Label:       c.Label,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.UTC().Format(timeLayout),
	}
}

func toActionPlanDTO(a *domain.ActionPlan, now time.Time) ActionPlanDTO {
	return ActionPlanDTO{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		CauseID:     lo.EmptyableToPtr(a.CauseID),
		OwnerID:     lo.EmptyableToPtr(a.OwnerID),
		Status:      string(a.Status),
		DueDate:     formatTime(a.DueDate),
		CompletedAt: formatTime(a.CompletedAt),
		Overdue:     a.IsOverdue(now),
		CreatedAt:   a.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}

// --- Technicians ---

// HandleListTechnicians handles GET /technicians?active=true
func (h *RecordsHandler) HandleListTechnicians(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	activeOnly := validation.ParseBoolQueryParam(r, "active", false)
	technicians, err := h.recordsService.ListTechnicians(r.Context(), claims.UserID, activeOnly)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, lo.Map(technicians, func(t *domain.Technician, _ int) TechnicianDTO { return toTechnicianDTO(t) }))
}

// HandleCreateTechnician handles POST /technicians
func (h *RecordsHandler) HandleCreateTechnician(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTechnicianRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	technician, err := h.recordsService.CreateTechnician(r.Context(), claims.UserID, domain.TechnicianParams{
		FullName: req.FullName,
		Phone:    req.Phone,
		Zone:     req.Zone,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "technician created", "technician_id", technician.ID)
	WriteCreated(w, toTechnicianDTO(technician))
}

// HandleGetTechnician handles GET /technicians/{id}
func (h *RecordsHandler) HandleGetTechnician(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	technician, err := h.recordsService.GetTechnician(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTechnicianDTO(technician))
}

// HandleDeleteTechnician handles DELETE /technicians/{id}
func (h *RecordsHandler) HandleDeleteTechnician(w http.ResponseWriter, r *http.Request) {
	h.handleDelete(w, r, "technician", h.recordsService.DeleteTechnician)
}

// --- Devices ---

// HandleListDevices handles GET /devices?technicianId=
func (h *RecordsHandler) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	devices, err := h.recordsService.ListDevices(r.Context(), claims.UserID, validation.ParseStringQueryParam(r, "technicianId"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, lo.Map(devices, func(d *domain.Device, _ int) DeviceDTO { return toDeviceDTO(d) }))
}

// HandleCreateDevice handles POST /devices
func (h *RecordsHandler) HandleCreateDevice(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateDeviceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	device, err := h.recordsService.CreateDevice(r.Context(), claims.UserID, domain.DeviceParams{
		SerialNumber: req.SerialNumber,
		Model:        req.Model,
		Kind:         req.Kind,
		TechnicianID: strings.TrimSpace(req.TechnicianID),
		InstalledAt:  req.InstalledAt,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "device registered", "device_id", device.ID, "serial", device.SerialNumber)
	WriteCreated(w, toDeviceDTO(device))
}

// HandleDeleteDevice handles DELETE /devices/{id}
func (h *RecordsHandler) HandleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	h.handleDelete(w, r, "device", h.recordsService.DeleteDevice)
}

// --- Incident causes ---

// HandleListIncidentCauses handles GET /causes?causeType=
func (h *RecordsHandler) HandleListIncidentCauses(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	var causeType *domain.CauseType
	if raw := validation.ParseStringQueryParam(r, "causeType"); raw != nil {
		parsed, err := domain.ParseCauseType(*raw)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		causeType = &parsed
	}

	causes, err := h.recordsService.ListIncidentCauses(r.Context(), claims.UserID, causeType)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, lo.Map(causes, func(c *domain.IncidentCause, _ int) IncidentCauseDTO { return toIncidentCauseDTO(c) }))
}

// HandleCreateIncidentCause handles POST /causes
func (h *RecordsHandler) HandleCreateIncidentCause(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateIncidentCauseRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	causeType, _ := domain.ParseCauseType(req.CauseType)
	cause, err := h.recordsService.CreateIncidentCause(r.Context(), claims.UserID, domain.IncidentCauseParams{
		CauseType:   causeType,
		Label:       req.Label,
		Description: req.Description,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, toIncidentCauseDTO(cause))
}

// HandleDeleteIncidentCause handles DELETE /causes/{id}
func (h *RecordsHandler) HandleDeleteIncidentCause(w http.ResponseWriter, r *http.Request) {
	h.handleDelete(w, r, "incident_cause", h.recordsService.DeleteIncidentCause)
}

// --- Action plans ---

// HandleListActionPlans handles GET /action-plans?status=
func (h *RecordsHandler) HandleListActionPlans(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	var status *domain.ActionPlanStatus
	if raw := validation.ParseStringQueryParam(r, "status"); raw != nil {
		parsed := domain.ActionPlanStatus(strings.ToUpper(*raw))
		if !parsed.IsValid() {
			v := validation.NewValidator()
			v.Custom("status", false, "Must be one of PLANNED, IN_PROGRESS, DONE")
			h.errorHandler.Handle(w, r, v.Errors())
			return
		}
		status = &parsed
	}

	plans, err := h.recordsService.ListActionPlans(r.Context(), claims.UserID, status)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	now := time.Now()
	WriteList(w, lo.Map(plans, func(a *domain.ActionPlan, _ int) ActionPlanDTO { return toActionPlanDTO(a, now) }))
}

// HandleCreateActionPlan handles POST /action-plans
func (h *RecordsHandler) HandleCreateActionPlan(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateActionPlanRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	plan, err := h.recordsService.CreateActionPlan(r.Context(), claims.UserID, domain.ActionPlanParams{
		Title:       req.Title,
		Description: req.Description,
		CauseID:     strings.TrimSpace(req.CauseID),
		OwnerID:     strings.TrimSpace(req.OwnerID),
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "action plan created", "action_plan_id", plan.ID)
	WriteCreated(w, toActionPlanDTO(plan, time.Now()))
}

// HandleUpdateActionPlanStatus handles PATCH /action-plans/{id}/status
func (h *RecordsHandler) HandleUpdateActionPlanStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[UpdateActionPlanStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	status := domain.ActionPlanStatus(strings.ToUpper(req.Status))
	plan, err := h.recordsService.UpdateActionPlanStatus(r.Context(), claims.UserID, chi.URLParam(r, "id"), status)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "action plan status updated",
		"action_plan_id", plan.ID,
		"status", plan.Status,
	)
	WriteJSON(w, http.StatusOK, toActionPlanDTO(plan, time.Now()))
}

// HandleDeleteActionPlan handles DELETE /action-plans/{id}
func (h *RecordsHandler) HandleDeleteActionPlan(w http.ResponseWriter, r *http.Request) {
	h.handleDelete(w, r, "action_plan", h.recordsService.DeleteActionPlan)
}

// --- Helper methods ---

type deleteFunc func(ctx context.Context, actorID uuid.UUID, id string) error

func (h *RecordsHandler) handleDelete(w http.ResponseWriter, r *http.Request, kind string, del deleteFunc) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := del(r.Context(), claims.UserID, id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "record deleted", "kind", kind, "id", id)
	WriteNoContent(w)
}

// getClaims extracts and validates user claims from the request context.
func (h *RecordsHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
