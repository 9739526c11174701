package services

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// AdminService manages staff accounts.
type AdminService struct {
	userRepo ports.UserRepository
	authzSvc ports.AuthorizationService
}

var _ ports.AdminService = (*AdminService)(nil)

func NewAdminService(
	userRepo ports.UserRepository,
	authzSvc ports.AuthorizationService,
) ports.AdminService {
	return &AdminService{
		userRepo: userRepo,
		authzSvc: authzSvc,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, actorID uuid.UUID) ([]*domain.User, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	return s.userRepo.List(ctx)
}

func (s *AdminService) UpdateUserRole(ctx context.Context, actorID, userID uuid.UUID, role domain.Role) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if !role.IsValid() {
		return apperrors.ErrInvalidRole
	}
	// An admin cannot demote themselves and lock the desk out.
	if userID == actorID && role != domain.RoleAdmin {
		return apperrors.ErrForbidden
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}

	return s.userRepo.SetRole(ctx, userID, role)
}

func (s *AdminService) UpdateUserStatus(ctx context.Context, actorID, userID uuid.UUID, isActive bool) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if userID == actorID && !isActive {
		return apperrors.ErrForbidden
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}

	return s.userRepo.SetActive(ctx, userID, isActive)
}

func (s *AdminService) ResetUserPassword(ctx context.Context, actorID, userID uuid.UUID) (string, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return "", err
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return "", err
	}

	temporaryPassword, err := generateTemporaryPassword(12)
	if err != nil {
		return "", err
	}

	hashedPassword, err := domain.HashPassword(temporaryPassword)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return "", err
	}

	return temporaryPassword, nil
}

func (s *AdminService) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	return requirePermission(ctx, s.authzSvc, actorID, domain.PermUsersManage)
}

func generateTemporaryPassword(length int) (string, error) {
	const upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const lower = "abcdefghijklmnopqrstuvwxyz"
	const digits = "0123456789"
	const all = upper + lower + digits

	if length < 8 {
		length = 8
	}

	password := make([]byte, length)

	sets := []string{upper, lower, digits}
	for i := 0; i < len(sets); i++ {
		char, err := randomChar(sets[i])
		if err != nil {
			return "", err
		}
		password[i] = char
	}

	for i := len(sets); i < length; i++ {
		char, err := randomChar(all)
		if err != nil {
			return "", err
		}
		password[i] = char
	}

	for i := len(password) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := int(jBig.Int64())
		password[i], password[j] = password[j], password[i]
	}

	return string(password), nil
}

func randomChar(source string) (byte, error) {
	max := big.NewInt(int64(len(source)))
	index, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0, err
	}
	return source[index.Int64()], nil
}
