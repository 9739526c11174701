package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/mocks"
	"github.com/lorrc/service-desk-pki/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func registration(fullName, email, password string) domain.UserRegistrationParams {
	return domain.UserRegistrationParams{FullName: fullName, Email: email, Password: password}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		mockUserRepo.On("GetByEmail", ctx, "newuser@example.com").
			Return(nil, apperrors.ErrUserNotFound)
		mockUserRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RoleAgent && u.Email == "newuser@example.com" && u.IsActive
		})).Return(&domain.User{
			ID:        uuid.New(),
			FullName:  "New User",
			Email:     "newuser@example.com",
			Role:      domain.RoleAgent,
			IsActive:  true,
			CreatedAt: time.Now(),
		}, nil)

		user, err := svc.Register(ctx, registration("New User", "NewUser@example.com", "Password123"))

		require.NoError(t, err)
		assert.Equal(t, "New User", user.FullName)
		assert.Equal(t, domain.RoleAgent, user.Role)
		mockUserRepo.AssertExpectations(t)
	})

	t.Run("configured default role", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleSupervisor)

		mockUserRepo.On("GetByEmail", ctx, "sup@example.com").Return(nil, apperrors.ErrUserNotFound)
		mockUserRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RoleSupervisor
		})).Return(&domain.User{ID: uuid.New(), Role: domain.RoleSupervisor}, nil)

		user, err := svc.Register(ctx, registration("Sup", "sup@example.com", "Password123"))

		require.NoError(t, err)
		assert.Equal(t, domain.RoleSupervisor, user.Role)
	})

	t.Run("user already exists", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		mockUserRepo.On("GetByEmail", ctx, "existing@example.com").
			Return(&domain.User{ID: uuid.New(), Email: "existing@example.com"}, nil)

		user, err := svc.Register(ctx, registration("User", "existing@example.com", "Password123"))

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockUserRepo.AssertNotCalled(t, "Create")
	})

	t.Run("repository failure is returned", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		dbErr := errors.New("connection refused")
		mockUserRepo.On("GetByEmail", ctx, "user@example.com").Return(nil, dbErr)

		user, err := svc.Register(ctx, registration("User", "user@example.com", "Password123"))

		assert.Nil(t, user)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("weak password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		user, err := svc.Register(ctx, registration("User", "user@example.com", "weak"))

		assert.Nil(t, user)
		var validationErr *apperrors.ValidationErrors
		assert.ErrorAs(t, err, &validationErr)
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
		mockUserRepo.AssertNotCalled(t, "Create")
	})

	t.Run("invalid email", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		user, err := svc.Register(ctx, registration("User", "invalid-email", "Password123"))

		assert.Nil(t, user)
		assert.Error(t, err)
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := domain.HashPassword("Password123")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		existingUser := &domain.User{
			ID:           uuid.New(),
			Email:        "user@example.com",
			FullName:     "Test User",
			PasswordHash: hash,
			Role:         domain.RoleAgent,
			IsActive:     true,
		}
		mockUserRepo.On("GetByEmail", ctx, "user@example.com").Return(existingUser, nil)
		mockUserRepo.On("TouchLastActive", ctx, existingUser.ID, mock.AnythingOfType("time.Time")).Return(nil)

		user, err := svc.Login(ctx, "User@Example.com", "Password123")

		require.NoError(t, err)
		assert.Equal(t, existingUser.ID, user.ID)
		assert.NotNil(t, user.LastActiveAt)
		mockUserRepo.AssertExpectations(t)
	})

	t.Run("user not found", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		mockUserRepo.On("GetByEmail", ctx, "unknown@example.com").
			Return(nil, apperrors.ErrUserNotFound)

		user, err := svc.Login(ctx, "unknown@example.com", "Password123")

		assert.Nil(t, user)
		// Should return generic invalid credentials, not reveal user doesn't exist
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		mockUserRepo.On("GetByEmail", ctx, "user@example.com").
			Return(&domain.User{ID: uuid.New(), PasswordHash: hash, IsActive: true}, nil)

		user, err := svc.Login(ctx, "user@example.com", "WrongPassword123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		mockUserRepo.On("GetByEmail", ctx, "user@example.com").
			Return(&domain.User{ID: uuid.New(), PasswordHash: hash, IsActive: false}, nil)

		user, err := svc.Login(ctx, "user@example.com", "Password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserInactive)
		mockUserRepo.AssertNotCalled(t, "TouchLastActive")
	})

	t.Run("empty email", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		user, err := svc.Login(ctx, "", "Password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrEmailRequired)
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("empty password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, domain.RoleAgent)

		user, err := svc.Login(ctx, "user@example.com", "")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrPasswordRequired)
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
	})
}
