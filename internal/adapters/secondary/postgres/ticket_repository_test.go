package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

func newTestTicket(t *testing.T, service domain.ServiceType, created time.Time) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.TicketParams{
		ServiceType: service,
		CauseType:   domain.CauseTechnique,
		Description: "No sync on line",
		CreatedAt:   created,
	})
	require.NoError(t, err)
	return ticket
}

func TestTicketRepository_CreateGet(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	created := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	ticket := newTestTicket(t, domain.ServiceFibre, created)
	ticket.LineReference = "0522-000111"

	saved, err := repo.Create(ctx, ticket)
	require.NoError(t, err, "Failed to create ticket")
	assert.Equal(t, ticket.ID, saved.ID)

	found, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err, "Failed to get ticket by ID")

	assert.Equal(t, domain.ServiceFibre, found.ServiceType)
	assert.Equal(t, domain.CauseTechnique, found.CauseType)
	assert.Equal(t, domain.StatusInProgress, found.Status)
	assert.True(t, created.Equal(found.CreatedAt))
	assert.Nil(t, found.ClosedAt)
	assert.Equal(t, "0522-000111", found.LineReference)
	assert.Empty(t, found.TechnicianID)

	_, err = repo.Create(ctx, ticket)
	assert.ErrorIs(t, err, apperrors.ErrTicketExists)
}

func TestTicketRepository_GetByID_NotFound(t *testing.T) {
	resetTables(t)
	repo := NewTicketRepository(testPool)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_UpdateLifecycle(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	created := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	ticket, err := repo.Create(ctx, newTestTicket(t, domain.ServiceADSL, created))
	require.NoError(t, err)

	require.NoError(t, ticket.Close(created.Add(10*time.Hour), "modem swap", domain.DefaultDeadlinePolicy()))
	closed, err := repo.Update(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.True(t, closed.MetDeadline)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, "modem swap", closed.ClosureReason)

	require.NoError(t, closed.Reopen(created.Add(20*time.Hour)))
	reopened, err := repo.Update(ctx, closed)
	require.NoError(t, err)
	assert.True(t, reopened.Reopened)
	assert.Equal(t, 1, reopened.ReopenCount)
	assert.Nil(t, reopened.ClosedAt)
	assert.Empty(t, reopened.ClosureReason)
}

func TestTicketRepository_List(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	t1 := newTestTicket(t, domain.ServiceFibre, base)
	t2 := newTestTicket(t, domain.ServiceADSL, base.Add(24*time.Hour))
	t3 := newTestTicket(t, domain.ServiceFibre, base.Add(48*time.Hour))
	t3.TechnicianID = "tech-9"
	t4 := newTestTicket(t, domain.ServiceFixe, base.Add(72*time.Hour))
	for _, ticket := range []*domain.Ticket{t1, t2, t3, t4} {
		_, err := repo.Create(ctx, ticket)
		require.NoError(t, err)
	}

	// Test case 1: everything, newest first
	all, err := repo.List(ctx, ports.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, t4.ID, all[0].ID)
	assert.Equal(t, t1.ID, all[3].ID)

	// Test case 2: service filter
	fibre := domain.ServiceFibre
	byService, err := repo.List(ctx, ports.TicketFilter{ServiceType: &fibre})
	require.NoError(t, err)
	assert.Len(t, byService, 2)

	// Test case 3: half-open created range
	from := base.Add(24 * time.Hour)
	to := base.Add(72 * time.Hour)
	ranged, err := repo.List(ctx, ports.TicketFilter{CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, t3.ID, ranged[0].ID)
	assert.Equal(t, t2.ID, ranged[1].ID)

	// Test case 4: pagination
	page, err := repo.List(ctx, ports.TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, t3.ID, page[0].ID)

	// Test case 5: technician filter
	tech := "tech-9"
	byTech, err := repo.List(ctx, ports.TicketFilter{TechnicianID: &tech})
	require.NoError(t, err)
	require.Len(t, byTech, 1)
	assert.Equal(t, t3.ID, byTech[0].ID)
}

func TestTicketRepository_UpsertInTransaction(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)
	tx := NewTransactionManager(testPool)

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	closedAt := created.Add(2 * time.Hour)
	existing := newTestTicket(t, domain.ServiceFibre, created)
	existing.ID = "IMP-1"
	_, err := repo.Create(ctx, existing)
	require.NoError(t, err)

	batch := []*domain.Ticket{
		{
			ID: "IMP-1", ServiceType: domain.ServiceFibre, CauseType: domain.CauseClient,
			Status: domain.StatusClosed, CreatedAt: created, ClosedAt: &closedAt, MetDeadline: true,
		},
		{
			ID: "IMP-2", ServiceType: domain.ServiceDegroupage, CauseType: domain.CauseCasse,
			Status: domain.StatusInProgress, CreatedAt: created.Add(time.Hour), Reopened: true, ReopenCount: 2,
		},
	}

	var n int
	err = tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = repo.Upsert(ctx, batch)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	updated, err := repo.GetByID(ctx, "IMP-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, updated.Status)
	assert.Equal(t, domain.CauseClient, updated.CauseType)
	assert.True(t, updated.MetDeadline)

	inserted, err := repo.GetByID(ctx, "IMP-2")
	require.NoError(t, err)
	assert.Equal(t, 2, inserted.ReopenCount)
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)
	tx := NewTransactionManager(testPool)

	ticket := newTestTicket(t, domain.ServiceADSL, time.Now().UTC())
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, ticket); err != nil {
			return err
		}
		return apperrors.ErrEmptyImport
	})
	require.ErrorIs(t, err, apperrors.ErrEmptyImport)

	_, err = repo.GetByID(ctx, ticket.ID)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketEventRepository_CursorPagination(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	tickets := NewTicketRepository(testPool)
	events := NewTicketEventRepository(testPool)
	users := NewUserRepository(testPool)

	actor, err := users.Create(ctx, &domain.User{
		ID: uuid.New(), FullName: "Desk Agent", Email: "agent@desk.test",
		PasswordHash: "hash", Role: domain.RoleAgent, IsActive: true,
	})
	require.NoError(t, err)

	ticket, err := tickets.Create(ctx, newTestTicket(t, domain.ServiceFixe, time.Now().UTC()))
	require.NoError(t, err)

	var ids []int64
	for _, eventType := range []domain.EventType{domain.EventTicketCreated, domain.EventTicketAssigned, domain.EventTicketClosed} {
		saved, err := events.Create(ctx, &domain.TicketEvent{
			TicketID: ticket.ID,
			Type:     eventType,
			ActorID:  actor.ID,
			Payload:  []byte(`{"status":"x"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, actor.ID, saved.ActorID)
		ids = append(ids, saved.ID)
	}

	page, err := events.ListByTicketID(ctx, ticket.ID, ids[0], 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, domain.EventTicketAssigned, page[0].Type)
	assert.JSONEq(t, `{"status":"x"}`, string(page[1].Payload))

	limited, err := events.ListByTicketID(ctx, ticket.ID, 0, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTicketEventRepository_CreateManyWithImport(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	tickets := NewTicketRepository(testPool)
	events := NewTicketEventRepository(testPool)
	tx := NewTransactionManager(testPool)

	created := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
	batch := []*domain.Ticket{
		{ID: "IMP-10", ServiceType: domain.ServiceADSL, CauseType: domain.CauseClient, Status: domain.StatusInProgress, CreatedAt: created},
		{ID: "IMP-11", ServiceType: domain.ServiceFixe, CauseType: domain.CauseCasse, Status: domain.StatusInProgress, CreatedAt: created},
	}
	history := []*domain.TicketEvent{
		{TicketID: "IMP-10", Type: domain.EventTicketImported, Payload: []byte(`{"status":"IN_PROGRESS"}`)},
		{TicketID: "IMP-11", Type: domain.EventTicketImported},
	}

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := tickets.Upsert(ctx, batch); err != nil {
			return err
		}
		return events.CreateMany(ctx, history)
	})
	require.NoError(t, err)

	first, err := events.ListByTicketID(ctx, "IMP-10", 0, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, domain.EventTicketImported, first[0].Type)
	assert.Equal(t, uuid.Nil, first[0].ActorID)
	assert.JSONEq(t, `{"status":"IN_PROGRESS"}`, string(first[0].Payload))

	second, err := events.ListByTicketID(ctx, "IMP-11", 0, 10)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.JSONEq(t, `{}`, string(second[0].Payload))
}

func TestTicketEventRepository_CreateManyRollsBackImport(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	tickets := NewTicketRepository(testPool)
	events := NewTicketEventRepository(testPool)
	tx := NewTransactionManager(testPool)

	ticket := &domain.Ticket{ID: "IMP-20", ServiceType: domain.ServiceFibre, CauseType: domain.CauseTechnique,
		Status: domain.StatusInProgress, CreatedAt: time.Now().UTC()}

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := tickets.Upsert(ctx, []*domain.Ticket{ticket}); err != nil {
			return err
		}
		return events.CreateMany(ctx, []*domain.TicketEvent{{TicketID: "MISSING", Type: domain.EventTicketImported}})
	})
	require.Error(t, err)

	_, err = tickets.GetByID(ctx, "IMP-20")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}
