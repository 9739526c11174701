package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/service-desk-pki/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-pki/internal/auth"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/mocks"
)

func newTestUser(role domain.Role) *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		FullName:  "Leila Trabelsi",
		Email:     "leila@example.com",
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func postJSON(router stdhttp.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(stdhttp.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestAuthHandler_Register(t *testing.T) {
	h := newHarness(t)

	user := newTestUser(domain.RoleAgent)
	h.auth.On("Register", mock.Anything, domain.UserRegistrationParams{
		FullName: "Leila Trabelsi",
		Email:    "leila@example.com",
		Password: "Password1",
	}).Return(user, nil).Once()

	recorder := postJSON(h.router, "/api/v1/auth/register", map[string]string{
		"fullName": "Leila Trabelsi",
		"email":    "leila@example.com",
		"password": "Password1",
	})

	require.Equal(t, stdhttp.StatusCreated, recorder.Code)
	body := decodeBody[AuthResponse](t, recorder)
	assert.Equal(t, user.ID.String(), body.User.ID)
	assert.Equal(t, "agent", body.User.Role)
	assert.Nil(t, body.User.LastActiveAt)

	claims, err := h.tokens.ValidateToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleAgent, claims.Role)
}

func TestAuthHandler_RegisterConflict(t *testing.T) {
	h := newHarness(t)

	h.auth.On("Register", mock.Anything, mock.Anything).Return(nil, apperrors.ErrUserExists).Once()

	recorder := postJSON(h.router, "/api/v1/auth/register", map[string]string{
		"fullName": "Leila Trabelsi",
		"email":    "leila@example.com",
		"password": "Password1",
	})

	require.Equal(t, stdhttp.StatusConflict, recorder.Code)
	assert.Equal(t, "USER_EXISTS", decodeBody[ErrorResponse](t, recorder).Code)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	h := newHarness(t)

	recorder := postJSON(h.router, "/api/v1/auth/register", map[string]string{"email": "not-an-email"})

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	body := decodeBody[ValidationErrorResponse](t, recorder)
	assert.Contains(t, body.Fields, "fullName")
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "success", wantStatus: stdhttp.StatusOK},
		{name: "bad password", err: apperrors.ErrInvalidCredentials, wantStatus: stdhttp.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "inactive", err: apperrors.ErrUserInactive, wantStatus: stdhttp.StatusForbidden, wantCode: "USER_INACTIVE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.err != nil {
				h.auth.On("Login", mock.Anything, "leila@example.com", "Password1").Return(nil, tt.err).Once()
			} else {
				h.auth.On("Login", mock.Anything, "leila@example.com", "Password1").Return(newTestUser(domain.RoleSupervisor), nil).Once()
			}

			recorder := postJSON(h.router, "/api/v1/auth/login", map[string]string{
				"email":    "leila@example.com",
				"password": "Password1",
			})

			require.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeBody[ErrorResponse](t, recorder).Code)
				return
			}
			body := decodeBody[AuthResponse](t, recorder)
			assert.NotEmpty(t, body.Token)
			assert.Equal(t, "supervisor", body.User.Role)
		})
	}
}

func TestAuthHandler_LoginRateLimitedPerEmail(t *testing.T) {
	authService := mocks.NewMockAuthService()
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	limiter := mw.NewRateLimitByKey(0.001, 2)
	t.Cleanup(limiter.Stop)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewAuthHandler(authService, tokens, limiter, NewErrorHandler(logger), logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	authService.On("Login", mock.Anything, mock.Anything, "wrong").Return(nil, apperrors.ErrInvalidCredentials).Times(2)

	for i := 0; i < 2; i++ {
		recorder := postJSON(router, "/login", map[string]string{"email": "Target@Example.com", "password": "wrong"})
		require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
	}

	recorder := postJSON(router, "/login", map[string]string{"email": " target@example.com", "password": "wrong"})
	require.Equal(t, stdhttp.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "RATE_LIMITED", decodeBody[ErrorResponse](t, recorder).Code)

	// Other accounts keep their own budget.
	authService.On("Login", mock.Anything, "other@example.com", "wrong").Return(nil, apperrors.ErrInvalidCredentials).Once()
	recorder = postJSON(router, "/login", map[string]string{"email": "other@example.com", "password": "wrong"})
	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)

	authService.AssertExpectations(t)
}
