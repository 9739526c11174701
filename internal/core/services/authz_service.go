package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// AuthorizationService resolves permissions from the user's role.
type AuthorizationService struct {
	userRepo ports.UserRepository
}

// Ensure implementation matches the interface.
var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new service for authorization logic.
func NewAuthorizationService(userRepo ports.UserRepository) ports.AuthorizationService {
	return &AuthorizationService{
		userRepo: userRepo,
	}
}

// Can checks if a user has a specific permission.
func (s *AuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	user, err := s.lookup(ctx, userID)
	if err != nil {
		// If there's an error fetching the user (e.g., db down), deny access.
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return user.Can(permission), nil
}

// GetPermissions returns all permissions for a user.
func (s *AuthorizationService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return []string{}, nil
	}

	permissions := make([]string, len(domain.RolePermissions[user.Role]))
	copy(permissions, domain.RolePermissions[user.Role])
	return permissions, nil
}

// lookup returns nil without error for unknown users.
func (s *AuthorizationService) lookup(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

func requirePermission(ctx context.Context, authz ports.AuthorizationService, userID uuid.UUID, permission string) error {
	allowed, err := authz.Can(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden
	}
	return nil
}
