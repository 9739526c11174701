package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	"github.com/lorrc/service-desk-pki/internal/core/errors"
)

func TestUserRepository_CreateGet(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)

	// 1. Create a new user
	newUser := &domain.User{
		ID:           uuid.New(),
		FullName:     "Test User",
		Email:        "test.user@example.com",
		PasswordHash: "hashedpassword",
		Role:         domain.RoleSupervisor,
		IsActive:     true,
	}

	createdUser, err := userRepo.Create(ctx, newUser)
	require.NoError(t, err, "Failed to create user")

	// 2. Get the user by email
	foundUser, err := userRepo.GetByEmail(ctx, "test.user@example.com")
	require.NoError(t, err, "Failed to get user by email")

	// 3. Assert values are correct
	assert.Equal(t, createdUser.ID, foundUser.ID)
	assert.Equal(t, "Test User", foundUser.FullName)
	assert.Equal(t, domain.RoleSupervisor, foundUser.Role)
	assert.True(t, foundUser.IsActive)
	assert.Nil(t, foundUser.LastActiveAt)

	// 4. Get the user by ID
	foundUserByID, err := userRepo.GetByID(ctx, createdUser.ID)
	require.NoError(t, err, "Failed to get user by ID")
	assert.Equal(t, createdUser.ID, foundUserByID.ID)

	// 5. Duplicate email
	newUser.ID = uuid.New()
	_, err = userRepo.Create(ctx, newUser)
	assert.ErrorIs(t, err, errors.ErrUserExists)
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	resetTables(t)
	userRepo := NewUserRepository(testPool)

	_, err := userRepo.GetByEmail(context.Background(), "nonexistent@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestUserRepository_Updates(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)

	user, err := userRepo.Create(ctx, &domain.User{
		FullName: "Agent", Email: "agent@example.com", PasswordHash: "old", IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, user.Role)

	require.NoError(t, userRepo.SetRole(ctx, user.ID, domain.RoleAdmin))
	require.NoError(t, userRepo.SetActive(ctx, user.ID, false))
	require.NoError(t, userRepo.UpdatePassword(ctx, user.ID, "new"))
	seen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, userRepo.TouchLastActive(ctx, user.ID, seen))

	found, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, found.Role)
	assert.False(t, found.IsActive)
	assert.Equal(t, "new", found.PasswordHash)
	require.NotNil(t, found.LastActiveAt)
	assert.True(t, seen.Equal(*found.LastActiveAt))

	users, err := userRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	assert.ErrorIs(t, userRepo.SetRole(ctx, uuid.New(), domain.RoleAgent), errors.ErrUserNotFound)
}
