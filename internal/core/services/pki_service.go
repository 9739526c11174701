package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// PKIService feeds stored tickets to the aggregation core.
type PKIService struct {
	ticketRepo ports.TicketRepository
	authzSvc   ports.AuthorizationService
	scorecard  domain.Scorecard
	now        func() time.Time
}

var _ ports.PKIService = (*PKIService)(nil)

// NewPKIService creates a new PKI service
func NewPKIService(
	ticketRepo ports.TicketRepository,
	authzSvc ports.AuthorizationService,
	scorecard domain.Scorecard,
) ports.PKIService {
	return &PKIService{
		ticketRepo: ticketRepo,
		authzSvc:   authzSvc,
		scorecard:  scorecard,
		now:        time.Now,
	}
}

// Overview computes the dashboard figures over the optional created range.
func (s *PKIService) Overview(ctx context.Context, params ports.OverviewParams) (*domain.PKIOverview, error) {
	if err := s.requireRead(ctx, params.ViewerID); err != nil {
		return nil, err
	}

	tickets, err := s.ticketRepo.List(ctx, ports.TicketFilter{
		ServiceType: params.ServiceType,
		CreatedFrom: params.CreatedFrom,
		CreatedTo:   params.CreatedTo,
	})
	if err != nil {
		return nil, err
	}

	overview := s.scorecard.Overview(tickets, s.now().UTC())
	return &overview, nil
}

// Rollup buckets the tickets created inside the granularity's window.
func (s *PKIService) Rollup(ctx context.Context, params ports.RollupParams) ([]domain.RollupBucket, error) {
	if err := s.requireRead(ctx, params.ViewerID); err != nil {
		return nil, err
	}

	reference := params.Reference
	if reference.IsZero() {
		reference = s.now()
	}

	from, to, err := s.scorecard.RollupWindow(params.Granularity, reference)
	if err != nil {
		return nil, err
	}

	tickets, err := s.ticketRepo.List(ctx, ports.TicketFilter{
		ServiceType: params.ServiceType,
		CreatedFrom: &from,
		CreatedTo:   &to,
	})
	if err != nil {
		return nil, err
	}

	return s.scorecard.Rollup(tickets, params.Granularity, reference)
}

// ServicePKI scores caller-supplied counts for one service.
func (s *PKIService) ServicePKI(ctx context.Context, viewerID uuid.UUID, total, onTime int, serviceType domain.ServiceType) (domain.ServicePKI, error) {
	if err := s.requireRead(ctx, viewerID); err != nil {
		return domain.ServicePKI{}, err
	}

	errs := apperrors.NewValidationErrors()
	if !serviceType.IsValid() {
		errs.Add("service", "Must be one of: FIBRE, ADSL, DEGROUPAGE, FIXE")
	}
	if total < 0 {
		errs.Add("total", "Must not be negative")
	}
	if onTime < 0 || onTime > total {
		errs.Add("onTime", "Must be between 0 and total")
	}
	if err := errs.OrNil(); err != nil {
		return domain.ServicePKI{}, err
	}

	return s.scorecard.ServicePKI(total, onTime, serviceType), nil
}

func (s *PKIService) requireRead(ctx context.Context, userID uuid.UUID) error {
	return requirePermission(ctx, s.authzSvc, userID, domain.PermPKIRead)
}
