package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// TicketServiceDeps groups the collaborators of the ticket service.
type TicketServiceDeps struct {
	Tickets     ports.TicketRepository
	Events      ports.TicketEventRepository
	Technicians ports.TechnicianRepository
	Authz       ports.AuthorizationService
	Tx          ports.TransactionManager
	Codec       ports.TicketCodec
	Notifier    ports.Notifier
	Broadcaster ports.EventBroadcaster
	Policy      domain.DeadlinePolicy
	Clock       func() time.Time
	Logger      *slog.Logger
}

// TicketService implements business logic for ticket management
type TicketService struct {
	ticketRepo  ports.TicketRepository
	eventRepo   ports.TicketEventRepository
	techRepo    ports.TechnicianRepository
	authzSvc    ports.AuthorizationService
	txManager   ports.TransactionManager
	codec       ports.TicketCodec
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	policy      domain.DeadlinePolicy
	now         func() time.Time
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(deps TicketServiceDeps) ports.TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TicketService{
		ticketRepo:  deps.Tickets,
		eventRepo:   deps.Events,
		techRepo:    deps.Technicians,
		authzSvc:    deps.Authz,
		txManager:   deps.Tx,
		codec:       deps.Codec,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		policy:      deps.Policy,
		now:         clock,
		logger:      logger.With("service", "tickets"),
	}
}

// CreateTicket handles the use case for logging a new ticket
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	if err := s.require(ctx, params.ActorID, domain.PermTicketsWrite); err != nil {
		return nil, err
	}

	ticket, err := domain.NewTicket(domain.TicketParams{
		ServiceType:   params.ServiceType,
		CauseType:     params.CauseType,
		Description:   params.Description,
		CauseDetail:   params.CauseDetail,
		TechnicianID:  params.TechnicianID,
		LineReference: params.LineReference,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if ticket.TechnicianID != "" {
		if err := s.ensureAssignable(ctx, ticket.TechnicianID); err != nil {
			return nil, err
		}
	}

	var created *domain.Ticket
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.ticketRepo.Create(ctx, ticket)
		if err != nil {
			return err
		}
		return s.recordEvent(ctx, created.ID, domain.EventTicketCreated, params.ActorID, domain.NewTicketSnapshot(created))
	})
	if err != nil {
		return nil, err
	}

	s.broadcastTicket(domain.EventTicketCreated, created)
	return created, nil
}

// GetTicket retrieves a specific ticket with authorization
func (s *TicketService) GetTicket(ctx context.Context, ticketID string, viewerID uuid.UUID) (*domain.Ticket, error) {
	if err := s.require(ctx, viewerID, domain.PermTicketsRead); err != nil {
		return nil, err
	}
	return s.ticketRepo.GetByID(ctx, ticketID)
}

// ListTickets retrieves a page of tickets, newest first
func (s *TicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	if err := s.require(ctx, params.ViewerID, domain.PermTicketsRead); err != nil {
		return nil, err
	}

	return s.ticketRepo.List(ctx, ports.TicketFilter{
		Status:       params.Status,
		ServiceType:  params.ServiceType,
		CauseType:    params.CauseType,
		TechnicianID: params.TechnicianID,
		CreatedFrom:  params.CreatedFrom,
		CreatedTo:    params.CreatedTo,
		Limit:        params.Limit,
		Offset:       params.Offset,
	})
}

// CloseTicket resolves a ticket and fixes its deadline flag
func (s *TicketService) CloseTicket(ctx context.Context, params ports.CloseTicketParams) (*domain.Ticket, error) {
	updated, err := s.mutate(ctx, params.ActorID, params.TicketID, domain.EventTicketClosed, func(_ context.Context, t *domain.Ticket) error {
		return t.Close(s.now(), params.Reason, s.policy)
	})
	if err != nil {
		return nil, err
	}

	s.broadcastTicket(domain.EventTicketClosed, updated)
	return updated, nil
}

// ReopenTicket sends a closed ticket back to work and tells its technician
func (s *TicketService) ReopenTicket(ctx context.Context, params ports.ReopenTicketParams) (*domain.Ticket, error) {
	updated, err := s.mutate(ctx, params.ActorID, params.TicketID, domain.EventTicketReopened, func(_ context.Context, t *domain.Ticket) error {
		return t.Reopen(s.now())
	})
	if err != nil {
		return nil, err
	}

	if updated.TechnicianID != "" {
		s.notifyReopened(updated)
	}
	s.broadcastTicket(domain.EventTicketReopened, updated)
	return updated, nil
}

// AssignTechnician sets the technician working a ticket. An empty
// technician ID unassigns it.
func (s *TicketService) AssignTechnician(ctx context.Context, params ports.AssignTechnicianParams) (*domain.Ticket, error) {
	updated, err := s.mutate(ctx, params.ActorID, params.TicketID, domain.EventTicketAssigned, func(ctx context.Context, t *domain.Ticket) error {
		if params.TechnicianID != "" {
			if err := s.ensureAssignable(ctx, params.TechnicianID); err != nil {
				return err
			}
		}
		return t.AssignTechnician(params.TechnicianID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.broadcastTicket(domain.EventTicketAssigned, updated)
	return updated, nil
}

// ImportTickets decodes a spreadsheet and stores every row in one
// transaction. Any invalid row rejects the whole file.
func (s *TicketService) ImportTickets(ctx context.Context, params ports.ImportTicketsParams) (int, error) {
	if err := s.require(ctx, params.ActorID, domain.PermTicketsImport); err != nil {
		return 0, err
	}

	tickets, err := s.codec.Decode(params.Source, params.Format)
	if err != nil {
		return 0, err
	}
	if len(tickets) == 0 {
		return 0, apperrors.ErrEmptyImport
	}

	var imported int
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		imported, err = s.ticketRepo.Upsert(ctx, tickets)
		if err != nil {
			return err
		}
		return s.recordImported(ctx, params.ActorID, tickets)
	})
	if err != nil {
		return 0, err
	}

	earliest := lo.MinBy(tickets, func(a, b *domain.Ticket) bool { return a.CreatedAt.Before(b.CreatedAt) })
	latest := lo.MaxBy(tickets, func(a, b *domain.Ticket) bool { return a.CreatedAt.After(b.CreatedAt) })
	s.broadcast(domain.Event{
		Type: domain.EventTicketsImported,
		Payload: domain.ImportSummary{
			Imported: imported,
			From:     earliest.CreatedAt,
			To:       latest.CreatedAt,
		},
		OccurredAt: s.now().UTC(),
	})

	return imported, nil
}

// ExportTickets writes the tickets created in the range as a spreadsheet.
func (s *TicketService) ExportTickets(ctx context.Context, params ports.ExportTicketsParams, w io.Writer) (int, error) {
	if err := s.require(ctx, params.ActorID, domain.PermTicketsRead); err != nil {
		return 0, err
	}

	tickets, err := s.ticketRepo.List(ctx, ports.TicketFilter{
		CreatedFrom: params.CreatedFrom,
		CreatedTo:   params.CreatedTo,
	})
	if err != nil {
		return 0, err
	}

	if err := s.codec.Encode(w, params.Format, tickets); err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	return len(tickets), nil
}

// mutate loads a ticket, applies change and persists the result together
// with its history entry.
func (s *TicketService) mutate(
	ctx context.Context,
	actorID uuid.UUID,
	ticketID string,
	eventType domain.EventType,
	change func(ctx context.Context, t *domain.Ticket) error,
) (*domain.Ticket, error) {
	if err := s.require(ctx, actorID, domain.PermTicketsWrite); err != nil {
		return nil, err
	}

	var updated *domain.Ticket
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := change(ctx, ticket); err != nil {
			return err
		}

		updated, err = s.ticketRepo.Update(ctx, ticket)
		if err != nil {
			return err
		}
		return s.recordEvent(ctx, updated.ID, eventType, actorID, domain.NewTicketSnapshot(updated))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TicketService) ensureAssignable(ctx context.Context, technicianID string) error {
	tech, err := s.techRepo.GetByID(ctx, technicianID)
	if err != nil {
		return err
	}
	if !tech.Active {
		return apperrors.ErrTechnicianInactive
	}
	return nil
}

func (s *TicketService) require(ctx context.Context, userID uuid.UUID, permission string) error {
	return requirePermission(ctx, s.authzSvc, userID, permission)
}

func (s *TicketService) recordEvent(ctx context.Context, ticketID string, eventType domain.EventType, actorID uuid.UUID, payload any) error {
	raw, err := marshalEventPayload(payload)
	if err != nil {
		return err
	}

	_, err = s.eventRepo.Create(ctx, &domain.TicketEvent{
		TicketID: ticketID,
		Type:     eventType,
		ActorID:  actorID,
		Payload:  raw,
	})
	return err
}

// recordImported opens the history of every imported ticket.
func (s *TicketService) recordImported(ctx context.Context, actorID uuid.UUID, tickets []*domain.Ticket) error {
	events := make([]*domain.TicketEvent, 0, len(tickets))
	for _, t := range tickets {
		raw, err := marshalEventPayload(domain.NewTicketSnapshot(t))
		if err != nil {
			return err
		}
		events = append(events, &domain.TicketEvent{
			TicketID: t.ID,
			Type:     domain.EventTicketImported,
			ActorID:  actorID,
			Payload:  raw,
		})
	}
	return s.eventRepo.CreateMany(ctx, events)
}

// notifyReopened tells the assigned technician their fix did not hold
func (s *TicketService) notifyReopened(ticket *domain.Ticket) {
	params := ports.NotificationParams{
		TechnicianID: ticket.TechnicianID,
		Subject:      fmt.Sprintf("Ticket %s has been reopened", ticket.ID),
		Message: fmt.Sprintf("The %s ticket %s you resolved was reopened (reopen #%d).",
			ticket.ServiceType, ticket.ID, ticket.ReopenCount),
		TicketID: ticket.ID,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		s.notifier.Notify(context.Background(), params)
	}()
}

func (s *TicketService) broadcastTicket(eventType domain.EventType, ticket *domain.Ticket) {
	s.broadcast(domain.Event{
		Type:       eventType,
		TicketID:   ticket.ID,
		Payload:    domain.NewTicketSnapshot(ticket),
		OccurredAt: s.now().UTC(),
	})
}

func (s *TicketService) broadcast(event domain.Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.broadcaster.Broadcast(event); err != nil {
			s.logger.Warn("dashboard event not delivered",
				"event_type", event.Type,
				"ticket_id", event.TicketID,
				"error", err,
			)
		}
	}()
}

// Shutdown waits for pending notifications and broadcasts.
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}
