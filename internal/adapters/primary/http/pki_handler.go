package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	mw "github.com/lorrc/service-desk-pki/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-pki/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-pki/internal/auth"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// PKIHandler serves the dashboard indicators.
type PKIHandler struct {
	pkiService   ports.PKIService
	errorHandler *ErrorHandler
	logger       *slog.Logger
	now          func() time.Time
}

// NewPKIHandler creates a new PKI handler
func NewPKIHandler(pkiService ports.PKIService, errorHandler *ErrorHandler, logger *slog.Logger) *PKIHandler {
	return &PKIHandler{
		pkiService:   pkiService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "pki"),
		now:          time.Now,
	}
}

// RegisterRoutes sets up the routing for the PKI endpoints.
func (h *PKIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/overview", h.HandleOverview)
	r.Get("/rollup", h.HandleRollup)
	r.Get("/service", h.HandleServicePKI)
}

// --- Response DTOs ---

// PKIStatsDTO is the JSON form of a PKI summary. Rates are in [0, 1].
type PKIStatsDTO struct {
	ResolutionRate   float64 `json:"resolutionRate"`
	DelaiRespectRate float64 `json:"delaiRespectRate"`
	ReopenRate       float64 `json:"reopenRate"`
	GlobalPKI        float64 `json:"globalPki"`
}

// ServicePKIDTO is the JSON form of a per-service score (0-100).
type ServicePKIDTO struct {
	ServiceType    string  `json:"serviceType"`
	PKI            float64 `json:"pki"`
	TotalTickets   int     `json:"totalTickets"`
	TicketsOnTime  int     `json:"ticketsOnTime"`
	BelowThreshold bool    `json:"belowThreshold"`
}

// TechnicianPKIDTO is one leaderboard row.
type TechnicianPKIDTO struct {
	TechnicianID string      `json:"technicianId"`
	TicketCount  int         `json:"ticketCount"`
	Stats        PKIStatsDTO `json:"stats"`
}

// StatusCountDTO is the number of tickets in one status.
type StatusCountDTO struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// OverviewResponse is the dashboard summary.
type OverviewResponse struct {
	PKI          PKIStatsDTO        `json:"pki"`
	Services     []ServicePKIDTO    `json:"services"`
	Technicians  []TechnicianPKIDTO `json:"technicians"`
	StatusCounts []StatusCountDTO   `json:"statusCounts"`
	TicketCount  int                `json:"ticketCount"`
	MTTRHours    float64            `json:"mttrHours"`
	GeneratedAt  string             `json:"generatedAt"`
}

// RollupBucketDTO is one period of a rollup.
type RollupBucketDTO struct {
	Label     string         `json:"label"`
	Start     string         `json:"start"`
	End       string         `json:"end"`
	Total     int            `json:"total"`
	Resolved  int            `json:"resolved"`
	OnTime    int            `json:"onTime"`
	Reopened  int            `json:"reopened"`
	ByCause   map[string]int `json:"byCause"`
	ByService map[string]int `json:"byService"`
	PKI       PKIStatsDTO    `json:"pki"`
}

// RollupResponse wraps the buckets of one rollup.
type RollupResponse struct {
	Granularity string            `json:"granularity"`
	Reference   string            `json:"reference"`
	Buckets     []RollupBucketDTO `json:"buckets"`
}

func toPKIStatsDTO(s domain.PKIStats) PKIStatsDTO {
	return PKIStatsDTO{
		ResolutionRate:   s.ResolutionRate,
		DelaiRespectRate: s.DelaiRespectRate,
		ReopenRate:       s.ReopenRate,
		GlobalPKI:        s.GlobalPKI,
	}
}

func toServicePKIDTO(s domain.ServicePKI) ServicePKIDTO {
	return ServicePKIDTO{
		ServiceType:    string(s.ServiceType),
		PKI:            s.PKI,
		TotalTickets:   s.TotalTickets,
		TicketsOnTime:  s.TicketsOnTime,
		BelowThreshold: s.BelowThreshold,
	}
}

func toOverviewResponse(o *domain.PKIOverview) OverviewResponse {
	return OverviewResponse{
		PKI: toPKIStatsDTO(o.PKI),
		Services: lo.Map(o.Services, func(s domain.ServicePKI, _ int) ServicePKIDTO {
			return toServicePKIDTO(s)
		}),
		Technicians: lo.Map(o.Technicians, func(t domain.TechnicianPKI, _ int) TechnicianPKIDTO {
			return TechnicianPKIDTO{
				TechnicianID: t.TechnicianID,
				TicketCount:  t.TicketCount,
				Stats:        toPKIStatsDTO(t.Stats),
			}
		}),
		StatusCounts: lo.Map(o.StatusCounts, func(c domain.StatusCount, _ int) StatusCountDTO {
			return StatusCountDTO{Status: string(c.Status), Count: c.Count}
		}),
		TicketCount: o.TicketCount,
		MTTRHours:   o.MTTRHours,
		GeneratedAt: o.GeneratedAt.UTC().Format(timeLayout),
	}
}

func toRollupBucketDTO(b domain.RollupBucket) RollupBucketDTO {
	return RollupBucketDTO{
		Label:    b.Label,
		Start:    b.Start.Format(timeLayout),
		End:      b.End.Format(timeLayout),
		Total:    b.Total,
		Resolved: b.Resolved,
		OnTime:   b.OnTime,
		Reopened: b.Reopened,
		ByCause: lo.MapKeys(b.ByCause, func(_ int, c domain.CauseType) string {
			return string(c)
		}),
		ByService: lo.MapKeys(b.ByService, func(_ int, s domain.ServiceType) string {
			return string(s)
		}),
		PKI: toPKIStatsDTO(b.PKI),
	}
}

// --- Handlers ---

// HandleOverview handles GET /pki/overview?from&to&service
func (h *PKIHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	createdFrom, createdTo, err := validation.ParseTimeRange(r, "from", "to")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	serviceType, err := parseServiceFilter(r, "service")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	overview, err := h.pkiService.Overview(r.Context(), ports.OverviewParams{
		ViewerID:    claims.UserID,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
		ServiceType: serviceType,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toOverviewResponse(overview))
}

// HandleRollup handles GET /pki/rollup?granularity&reference&service
func (h *PKIHandler) HandleRollup(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	granularity := domain.GranularityMonth
	if raw := validation.ParseStringQueryParam(r, "granularity"); raw != nil {
		parsed, err := domain.ParseGranularity(*raw)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		granularity = parsed
	}

	reference := h.now().UTC()
	ref, err := validation.ParseTimeQueryParam(r, "reference")
	if err != nil {
		v := validation.NewValidator()
		v.Custom("reference", false, "Must be a valid date or timestamp")
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}
	if ref != nil {
		reference = ref.Time
	}

	serviceType, err := parseServiceFilter(r, "service")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	buckets, err := h.pkiService.Rollup(r.Context(), ports.RollupParams{
		ViewerID:    claims.UserID,
		Granularity: granularity,
		Reference:   reference,
		ServiceType: serviceType,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, RollupResponse{
		Granularity: string(granularity),
		Reference:   reference.Format(timeLayout),
		Buckets:     lo.Map(buckets, func(b domain.RollupBucket, _ int) RollupBucketDTO { return toRollupBucketDTO(b) }),
	})
}

// HandleServicePKI handles GET /pki/service?total&onTime&service
func (h *PKIHandler) HandleServicePKI(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	v := validation.NewValidator()

	total, totalErr := strconv.Atoi(r.URL.Query().Get("total"))
	v.Custom("total", totalErr == nil && total >= 0, "total must be a non-negative integer")

	onTime, onTimeErr := strconv.Atoi(r.URL.Query().Get("onTime"))
	v.Custom("onTime", onTimeErr == nil && onTime >= 0, "onTime must be a non-negative integer")

	serviceRaw := r.URL.Query().Get("service")
	v.Required("service", serviceRaw)
	serviceType, serviceErr := domain.ParseServiceType(serviceRaw)
	if serviceRaw != "" {
		v.Custom("service", serviceErr == nil, "Must be one of FIBRE, ADSL, DEGROUPAGE, FIXE")
	}

	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	result, err := h.pkiService.ServicePKI(r.Context(), claims.UserID, total, onTime, serviceType)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toServicePKIDTO(result))
}

// getClaims extracts and validates user claims from the request context.
func (h *PKIHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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
