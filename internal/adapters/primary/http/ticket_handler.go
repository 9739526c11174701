package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	mw "github.com/lorrc/service-desk-pki/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-pki/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-pki/internal/auth"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

const (
	maxTicketsPerPage  = 100
	defaultEventsLimit = 50
	maxEventsLimit     = 200
	maxImportBytes     = 32 << 20
)

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	ticketService ports.TicketService
	eventService  ports.EventService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	eventService ports.EventService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		eventService:  eventService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "ticket"),
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/", h.HandleCreateTicket)
	r.Post("/import", h.HandleImportTickets)
	r.Get("/export", h.HandleExportTickets)

	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Post("/close", h.HandleCloseTicket)
		r.Post("/reopen", h.HandleReopenTicket)
		r.Patch("/technician", h.HandleAssignTechnician)
		r.Get("/events", h.HandleListTicketEvents)
	})
}

// --- Request/Response DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	ServiceType   string `json:"serviceType"`
	CauseType     string `json:"causeType"`
	Description   string `json:"description"`
	CauseDetail   string `json:"causeDetail"`
	TechnicianID  string `json:"technicianId"`
	LineReference string `json:"lineReference"`
}

// Validate validates the create ticket request
func (r *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("serviceType", r.ServiceType)
	if r.ServiceType != "" {
		_, err := domain.ParseServiceType(r.ServiceType)
		v.Custom("serviceType", err == nil, "Must be one of FIBRE, ADSL, DEGROUPAGE, FIXE")
	}

	v.Required("causeType", r.CauseType)
	if r.CauseType != "" {
		_, err := domain.ParseCauseType(r.CauseType)
		v.Custom("causeType", err == nil, "Must be one of Technique, Client, Casse")
	}

	v.Required("description", r.Description).
		MaxLength("description", r.Description, domain.MaxDescriptionLength).
		MaxLength("lineReference", r.LineReference, domain.MaxRecordFieldLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// CloseTicketRequest defines the JSON body for closing a ticket
type CloseTicketRequest struct {
	Reason string `json:"reason"`
}

// Validate validates the close ticket request
func (r *CloseTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.MaxLength("reason", r.Reason, domain.MaxDescriptionLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AssignTechnicianRequest defines the JSON body for assigning a ticket.
// An empty technicianId clears the assignment.
type AssignTechnicianRequest struct {
	TechnicianID string `json:"technicianId"`
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO = domain.TicketSnapshot

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	return domain.NewTicketSnapshot(ticket)
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	return lo.Map(tickets, func(ticket *domain.Ticket, _ int) TicketDTO {
		return toTicketDTO(ticket)
	})
}

// TicketEventDTO defines the JSON response for one history entry.
type TicketEventDTO struct {
	ID        int64           `json:"id"`
	TicketID  string          `json:"ticketId"`
	Type      string          `json:"type"`
	ActorID   string          `json:"actorId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

// TicketEventsResponse defines the JSON response for ticket events.
type TicketEventsResponse struct {
	Data       []TicketEventDTO `json:"data"`
	NextCursor *int64           `json:"nextCursor,omitempty"`
}

// ImportResponse reports the outcome of a spreadsheet import.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	pagination := validation.ParsePagination(r, maxTicketsPerPage)

	v := validation.NewValidator()

	var status *domain.TicketStatus
	if raw := validation.ParseStringQueryParam(r, "status"); raw != nil {
		parsed, err := domain.ParseTicketStatus(*raw)
		if err != nil {
			v.Custom("status", false, "Must be IN_PROGRESS or CLOSED")
		} else {
			status = &parsed
		}
	}

	serviceType, err := parseServiceFilter(r, "service")
	if err != nil {
		v.Custom("service", false, "Must be one of FIBRE, ADSL, DEGROUPAGE, FIXE")
	}

	var causeType *domain.CauseType
	if raw := validation.ParseStringQueryParam(r, "cause"); raw != nil {
		parsed, err := domain.ParseCauseType(*raw)
		if err != nil {
			v.Custom("cause", false, "Must be one of Technique, Client, Casse")
		} else {
			causeType = &parsed
		}
	}

	createdFrom, createdTo, err := validation.ParseTimeRange(r, "from", "to")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	params := ports.ListTicketsParams{
		ViewerID:     claims.UserID,
		Limit:        pagination.Limit + 1,
		Offset:       pagination.Offset,
		Status:       status,
		ServiceType:  serviceType,
		CauseType:    causeType,
		TechnicianID: validation.ParseStringQueryParam(r, "technicianId"),
		CreatedFrom:  createdFrom,
		CreatedTo:    createdTo,
	}

	tickets, err := h.ticketService.ListTickets(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginatedSimple(w, toTicketDTOs(tickets), pagination.Limit, pagination.Offset)
}

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// Both values were checked by Validate.
	serviceType, _ := domain.ParseServiceType(req.ServiceType)
	causeType, _ := domain.ParseCauseType(req.CauseType)

	params := ports.CreateTicketParams{
		ActorID:       claims.UserID,
		ServiceType:   serviceType,
		CauseType:     causeType,
		Description:   req.Description,
		CauseDetail:   req.CauseDetail,
		TechnicianID:  strings.TrimSpace(req.TechnicianID),
		LineReference: req.LineReference,
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket created",
		"ticket_id", ticket.ID,
		"service_type", ticket.ServiceType,
	)

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), ticketID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleCloseTicket handles POST /tickets/{ticketID}/close
func (h *TicketHandler) HandleCloseTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var reason string
	if r.ContentLength != 0 {
		req, err := validation.DecodeAndValidate[CloseTicketRequest](r)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		reason = req.Reason
	}

	ticket, err := h.ticketService.CloseTicket(r.Context(), ports.CloseTicketParams{
		TicketID: ticketID,
		ActorID:  claims.UserID,
		Reason:   reason,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket closed",
		"ticket_id", ticketID,
		"met_deadline", ticket.MetDeadline,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleReopenTicket handles POST /tickets/{ticketID}/reopen
func (h *TicketHandler) HandleReopenTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.ReopenTicket(r.Context(), ports.ReopenTicketParams{
		TicketID: ticketID,
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket reopened",
		"ticket_id", ticketID,
		"reopen_count", ticket.ReopenCount,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleAssignTechnician handles PATCH /tickets/{ticketID}/technician
func (h *TicketHandler) HandleAssignTechnician(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AssignTechnicianRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	technicianID := strings.TrimSpace(req.TechnicianID)
	ticket, err := h.ticketService.AssignTechnician(r.Context(), ports.AssignTechnicianParams{
		TicketID:     ticketID,
		TechnicianID: technicianID,
		ActorID:      claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket assigned",
		"ticket_id", ticketID,
		"technician_id", technicianID,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleListTicketEvents handles GET /tickets/{ticketID}/events
func (h *TicketHandler) HandleListTicketEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	afterID, limit, err := h.parseEventQuery(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	events, err := h.eventService.ListTicketEvents(r.Context(), ports.ListTicketEventsParams{
		TicketID: ticketID,
		ViewerID: claims.UserID,
		AfterID:  afterID,
		Limit:    limit,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var nextCursor *int64
	if len(events) > 0 {
		cursor := events[len(events)-1].ID
		nextCursor = &cursor
	}

	WriteJSON(w, http.StatusOK, TicketEventsResponse{
		Data: lo.Map(events, func(e *domain.TicketEvent, _ int) TicketEventDTO {
			return TicketEventDTO{
				ID:        e.ID,
				TicketID:  e.TicketID,
				Type:      string(e.Type),
				ActorID:   e.ActorID.String(),
				Payload:   e.Payload,
				CreatedAt: e.CreatedAt.UTC().Format(timeLayout),
			}
		}),
		NextCursor: nextCursor,
	})
}

// HandleImportTickets handles POST /tickets/import (multipart field "file")
func (h *TicketHandler) HandleImportTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Expected a multipart form with a file field"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Missing file field"))
		return
	}
	defer file.Close()

	formatHint := r.FormValue("format")
	if formatHint == "" {
		formatHint = header.Filename
	}
	format, err := ports.ParseFileFormat(formatHint)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	imported, err := h.ticketService.ImportTickets(r.Context(), ports.ImportTicketsParams{
		ActorID: claims.UserID,
		Format:  format,
		Source:  file,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "tickets imported",
		"file", header.Filename,
		"format", format,
		"count", imported,
	)

	WriteJSON(w, http.StatusOK, ImportResponse{Imported: imported})
}

// HandleExportTickets handles GET /tickets/export?format=xlsx|csv&from&to
func (h *TicketHandler) HandleExportTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	format := ports.FormatXLSX
	if raw := validation.ParseStringQueryParam(r, "format"); raw != nil {
		parsed, err := ports.ParseFileFormat(*raw)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		format = parsed
	}

	createdFrom, createdTo, err := validation.ParseTimeRange(r, "from", "to")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// Buffered so a failed export still gets a JSON error response.
	var buf bytes.Buffer
	count, err := h.ticketService.ExportTickets(r.Context(), ports.ExportTicketsParams{
		ActorID:     claims.UserID,
		Format:      format,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	}, &buf)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	filename := fmt.Sprintf("tickets-%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", exportContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Ticket-Count", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// --- Helper methods ---

func exportContentType(format ports.FileFormat) string {
	if format == ports.FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// parseServiceFilter reads an optional service type query parameter.
func parseServiceFilter(r *http.Request, key string) (*domain.ServiceType, error) {
	raw := validation.ParseStringQueryParam(r, key)
	if raw == nil {
		return nil, nil
	}
	parsed, err := domain.ParseServiceType(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// getClaims extracts and validates user claims from the request context
func (h *TicketHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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

// parseTicketID extracts and validates the ticket ID from the URL
func (h *TicketHandler) parseTicketID(r *http.Request) (string, error) {
	ticketID := strings.TrimSpace(chi.URLParam(r, "ticketID"))
	if ticketID == "" || len(ticketID) > domain.MaxRecordFieldLength {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return "", v.Errors()
	}
	return ticketID, nil
}

func (h *TicketHandler) parseEventQuery(r *http.Request) (int64, int, error) {
	v := validation.NewValidator()

	afterID := int64(0)
	if afterStr := r.URL.Query().Get("after"); afterStr != "" {
		parsed, err := strconv.ParseInt(afterStr, 10, 64)
		if err != nil || parsed < 0 {
			v.Custom("after", false, "after must be a positive integer")
		} else {
			afterID = parsed
		}
	}

	limit := defaultEventsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			v.Custom("limit", false, "limit must be a positive integer")
		} else {
			limit = parsed
		}
	}

	if limit > maxEventsLimit {
		v.Custom("limit", false, "limit exceeds maximum")
	}

	if v.HasErrors() {
		return 0, 0, v.Errors()
	}

	return afterID, limit, nil
}
