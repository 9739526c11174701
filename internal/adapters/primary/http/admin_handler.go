package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	mw "github.com/lorrc/service-desk-pki/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-pki/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-pki/internal/auth"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// AdminHandler serves user management for administrators.
type AdminHandler struct {
	adminService ports.AdminService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAdminHandler(adminService ports.AdminService, errorHandler *ErrorHandler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "admin"),
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.HandleListUsers)
		r.Patch("/{userID}/role", h.HandleUpdateUserRole)
		r.Patch("/{userID}/status", h.HandleUpdateUserStatus)
		r.Post("/{userID}/reset-password", h.HandleResetPassword)
	})
}

type UpdateUserRoleRequest struct {
	Role string `json:"role"`
}

func (r *UpdateUserRoleRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("role", r.Role).
		OneOf("role", strings.ToLower(r.Role), []string{
			string(domain.RoleAdmin),
			string(domain.RoleSupervisor),
			string(domain.RoleAgent),
		})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

type UpdateUserStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

func (r *UpdateUserStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.NotNil("isActive", r.IsActive)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandleListUsers handles GET /admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	users, err := h.adminService.ListUsers(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, lo.Map(users, func(user *domain.User, _ int) UserDTO { return toUserDTO(user) }))
}

// HandleUpdateUserRole handles PATCH /admin/users/{userID}/role
func (h *AdminHandler) HandleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	userID, err := h.parseUserID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateUserRoleRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.adminService.UpdateUserRole(r.Context(), claims.UserID, userID, role); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user role updated", "target_user_id", userID, "role", role)

	WriteNoContent(w)
}

// HandleUpdateUserStatus handles PATCH /admin/users/{userID}/status
func (h *AdminHandler) HandleUpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	userID, err := h.parseUserID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateUserStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.adminService.UpdateUserStatus(r.Context(), claims.UserID, userID, *req.IsActive); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user status updated", "target_user_id", userID, "is_active", *req.IsActive)

	WriteNoContent(w)
}

// HandleResetPassword handles POST /admin/users/{userID}/reset-password
func (h *AdminHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	userID, err := h.parseUserID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	temporaryPassword, err := h.adminService.ResetUserPassword(r.Context(), claims.UserID, userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, ResetPasswordResponse{
		TemporaryPassword: temporaryPassword,
	})
}

type ResetPasswordResponse struct {
	TemporaryPassword string `json:"temporaryPassword"`
}

func (h *AdminHandler) parseUserID(r *http.Request) (uuid.UUID, error) {
	idParam := chi.URLParam(r, "userID")
	userID, err := uuid.Parse(idParam)
	if err != nil {
		v := validation.NewValidator()
		v.Custom("userID", false, "Invalid user ID")
		return uuid.Nil, v.Errors()
	}

	return userID, nil
}

// getClaims extracts and validates user claims from the request context.
func (h *AdminHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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
