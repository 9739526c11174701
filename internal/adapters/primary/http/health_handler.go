package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	wsAdapter "github.com/lorrc/service-desk-pki/internal/adapters/primary/websocket"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// StoreChecker reports on the ticket database.
type StoreChecker interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (version uint, dirty bool, err error)
	CheckTicketStore(ctx context.Context) error
}

// DashboardStats reports live WebSocket connections.
type DashboardStats interface {
	Stats() wsAdapter.Stats
}

// HealthOptions configures the health endpoints. A zero SchemaVersion skips
// the migration comparison; a nil Dashboard omits connection counts.
type HealthOptions struct {
	Store         StoreChecker
	SchemaVersion uint
	Dashboard     DashboardStats
	Version       string
}

// HealthHandler serves liveness, readiness and a detailed status page.
type HealthHandler struct {
	opts      HealthOptions
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{opts: opts, startTime: time.Now()}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string           `json:"status"`
	Timestamp  string           `json:"timestamp"`
	Version    string           `json:"version,omitempty"`
	Uptime     string           `json:"uptime,omitempty"`
	Checks     map[string]Check `json:"checks,omitempty"`
	Dashboard  *wsAdapter.Stats `json:"dashboard,omitempty"`
	Goroutines int              `json:"goroutines,omitempty"`
}

// Check is the outcome of one dependency check.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HandleLiveness reports that the process is serving HTTP.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness reports whether dashboards can be served: the database
// answers, migrations are complete and the tickets table is readable.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	response := h.evaluate(r.Context())
	WriteJSON(w, statusCode(response), response)
}

// HandleHealth adds connection counts and runtime figures to readiness.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := h.evaluate(r.Context())
	if h.opts.Dashboard != nil {
		stats := h.opts.Dashboard.Stats()
		response.Dashboard = &stats
	}
	response.Goroutines = runtime.NumGoroutine()
	WriteJSON(w, statusCode(response), response)
}

func (h *HealthHandler) evaluate(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	checks := make(map[string]Check, 3)
	if h.opts.Store == nil {
		checks["database"] = Check{Status: statusUnhealthy, Message: "Database not configured"}
	} else {
		checks["database"] = timed(func() error { return h.opts.Store.Ping(ctx) })
		checks["schema"] = timed(func() error { return h.checkSchema(ctx) })
		checks["tickets"] = timed(func() error { return h.opts.Store.CheckTicketStore(ctx) })
	}

	status := statusHealthy
	for _, c := range checks {
		if c.Status != statusHealthy {
			status = statusUnhealthy
		}
	}

	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.opts.Version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}
}

func (h *HealthHandler) checkSchema(ctx context.Context) error {
	version, dirty, err := h.opts.Store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("migration %d failed part way and needs manual repair", version)
	}
	if h.opts.SchemaVersion != 0 && version != h.opts.SchemaVersion {
		return fmt.Errorf("schema at version %d, expected %d", version, h.opts.SchemaVersion)
	}
	return nil
}

func timed(check func() error) Check {
	start := time.Now()
	err := check()
	c := Check{Status: statusHealthy, Latency: time.Since(start).String()}
	if err != nil {
		c.Status = statusUnhealthy
		c.Message = err.Error()
	}
	return c
}

func statusCode(response HealthResponse) int {
	if response.Status != statusHealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}
