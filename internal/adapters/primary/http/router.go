package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/service-desk-pki/internal/adapters/primary/http/middleware"
)

// RouterConfig collects the handlers and middleware mounted by NewRouter.
// Nil rate limiters disable rate limiting; a nil WebSocket handler skips /ws.
type RouterConfig struct {
	Logger         *slog.Logger
	TokenValidator mw.TokenValidator
	AllowedOrigins []string
	CORSMaxAge     int

	GeneralLimiter *mw.RateLimiter
	AuthLimiter    *mw.RateLimiter

	Auth      *AuthHandler
	Tickets   *TicketHandler
	PKI       *PKIHandler
	Records   *RecordsHandler
	Admin     *AdminHandler
	Me        *MeHandler
	Health    *HealthHandler
	WebSocket *WebSocketHandler
}

// NewRouter builds the application router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader, "Content-Disposition", "X-Ticket-Count"},
		AllowCredentials: true,
		MaxAge:           cfg.CORSMaxAge,
	}))

	if cfg.GeneralLimiter != nil {
		r.Use(cfg.GeneralLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1)
	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Middleware)
			}
			r.Route("/auth", cfg.Auth.RegisterRoutes)
		})

		// WebSocket route (authentication is handled inside the handler)
		if cfg.WebSocket != nil {
			r.Get("/ws", cfg.WebSocket.ServeHTTP)
		}

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(cfg.TokenValidator))
			r.Route("/tickets", cfg.Tickets.RegisterRoutes)
			r.Route("/pki", cfg.PKI.RegisterRoutes)
			r.Route("/me", cfg.Me.RegisterRoutes)
			r.Route("/admin", cfg.Admin.RegisterRoutes)
			r.Group(cfg.Records.RegisterRoutes)
		})
	})

	return r
}
