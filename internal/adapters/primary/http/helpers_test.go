package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-pki/internal/auth"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	"github.com/lorrc/service-desk-pki/internal/core/mocks"
)

const testSecret = "test-secret"

// stubStore answers health checks with fixed results.
type stubStore struct {
	pingErr    error
	version    uint
	dirty      bool
	versionErr error
	ticketsErr error
}

func (s stubStore) Ping(context.Context) error { return s.pingErr }

func (s stubStore) SchemaVersion(context.Context) (uint, bool, error) {
	return s.version, s.dirty, s.versionErr
}

func (s stubStore) CheckTicketStore(context.Context) error { return s.ticketsErr }

// harness wires every handler to mock services behind the real router.
type harness struct {
	router  stdhttp.Handler
	tokens  *auth.TokenManager
	auth    *mocks.MockAuthService
	authz   *mocks.MockAuthorizationService
	admin   *mocks.MockAdminService
	tickets *mocks.MockTicketService
	events  *mocks.MockEventService
	pki     *mocks.MockPKIService
	records *mocks.MockRecordsService
	userID  uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)

	h := &harness{
		tokens:  auth.NewTokenManager(testSecret, time.Hour),
		auth:    mocks.NewMockAuthService(),
		authz:   mocks.NewMockAuthorizationService(),
		admin:   mocks.NewMockAdminService(),
		tickets: mocks.NewMockTicketService(),
		events:  mocks.NewMockEventService(),
		pki:     mocks.NewMockPKIService(),
		records: mocks.NewMockRecordsService(),
		userID:  uuid.New(),
	}

	h.router = NewRouter(RouterConfig{
		Logger:         logger,
		TokenValidator: h.tokens,
		AllowedOrigins: []string{"http://localhost:3000"},
		Auth:           NewAuthHandler(h.auth, h.tokens, nil, errorHandler, logger),
		Tickets:        NewTicketHandler(h.tickets, h.events, errorHandler, logger),
		PKI:            NewPKIHandler(h.pki, errorHandler, logger),
		Records:        NewRecordsHandler(h.records, errorHandler, logger),
		Admin:          NewAdminHandler(h.admin, errorHandler, logger),
		Me:             NewMeHandler(h.authz, errorHandler, logger),
		Health:         NewHealthHandler(HealthOptions{Store: stubStore{version: 2}, SchemaVersion: 2, Version: "test"}),
	})

	t.Cleanup(func() {
		h.auth.AssertExpectations(t)
		h.tickets.AssertExpectations(t)
		h.events.AssertExpectations(t)
		h.pki.AssertExpectations(t)
		h.records.AssertExpectations(t)
		h.admin.AssertExpectations(t)
	})

	return h
}

// do sends an authenticated request; a nil body sends none.
func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	token, err := h.tokens.GenerateToken(h.userID, domain.RoleSupervisor)
	require.NoError(t, err)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&v))
	return v
}

func sampleTicket(id string) *domain.Ticket {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	return &domain.Ticket{
		ID:          id,
		ServiceType: domain.ServiceFibre,
		CauseType:   domain.CauseTechnique,
		Status:      domain.StatusInProgress,
		CreatedAt:   created,
		Description: "Loss of sync on line",
	}
}
