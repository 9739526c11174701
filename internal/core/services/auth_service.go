package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// AuthService implements authentication business logic
type AuthService struct {
	userRepo    ports.UserRepository
	defaultRole domain.Role
}

var _ ports.AuthService = (*AuthService)(nil)

// NewAuthService creates a new authentication service. Self-registered
// accounts get defaultRole.
func NewAuthService(userRepo ports.UserRepository, defaultRole domain.Role) ports.AuthService {
	if !defaultRole.IsValid() {
		defaultRole = domain.RoleAgent
	}
	return &AuthService{
		userRepo:    userRepo,
		defaultRole: defaultRole,
	}
}

// Register creates a new user account with validated credentials
func (s *AuthService) Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error) {
	if params.Role == "" {
		params.Role = s.defaultRole
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))

	// Check if user already exists
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.ErrUserExists
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err // An actual DB error occurred
	}

	user, err := domain.NewUser(params)
	if err != nil {
		return nil, err
	}

	return s.userRepo.Create(ctx, user)
}

// Login authenticates a user with email and password
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" {
		return nil, apperrors.ErrEmailRequired
	}
	if password == "" {
		return nil, apperrors.ErrPasswordRequired
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Don't reveal whether email exists
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}

	now := time.Now().UTC()
	if err := s.userRepo.TouchLastActive(ctx, user.ID, now); err == nil {
		user.LastActiveAt = &now
	}

	return user, nil
}
