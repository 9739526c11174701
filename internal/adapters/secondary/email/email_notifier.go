package email

import (
	"context"
	"log/slog"

	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that logs the dispatch email
// instead of sending it. It implements the ports.Notifier interface.
type MockSMTPNotifier struct {
	technicianRepo ports.TechnicianRepository
	dispatchTo     string
	logger         *slog.Logger
}

// NewMockSMTPNotifier creates a mock notifier addressed to the dispatch
// mailbox that relays messages to field technicians.
func NewMockSMTPNotifier(technicianRepo ports.TechnicianRepository, dispatchTo string, logger *slog.Logger) ports.Notifier {
	return &MockSMTPNotifier{
		technicianRepo: technicianRepo,
		dispatchTo:     dispatchTo,
		logger:         logger.With("component", "email_notifier"),
	}
}

// Notify runs in a separate goroutine and handles its own errors.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	if params.TechnicianID == "" {
		n.logger.Debug("notification skipped, ticket has no technician", "ticket_id", params.TicketID)
		return
	}

	technician, err := n.technicianRepo.GetByID(ctx, params.TechnicianID)
	if err != nil {
		n.logger.Error("failed to get technician for notification",
			"technician_id", params.TechnicianID,
			"ticket_id", params.TicketID,
			"error", err,
		)
		return
	}

	n.logger.Info("mock email sent",
		"to_email", n.dispatchTo,
		"technician", technician.FullName,
		"technician_phone", technician.Phone,
		"zone", technician.Zone,
		"subject", params.Subject,
		"ticket_id", params.TicketID,
	)
}
