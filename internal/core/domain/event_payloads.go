package domain

import "time"

// TicketSnapshot matches the API response shape for tickets.
type TicketSnapshot struct {
	ID            string  `json:"id"`
	ServiceType   string  `json:"serviceType"`
	CauseType     string  `json:"causeType"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"createdAt"`
	ClosedAt      *string `json:"closedAt"`
	MetDeadline   bool    `json:"metDeadline"`
	Reopened      bool    `json:"reopened"`
	ReopenCount   int     `json:"reopenCount"`
	Description   string  `json:"description"`
	CauseDetail   string  `json:"causeDetail,omitempty"`
	ClosureReason string  `json:"closureReason,omitempty"`
	TechnicianID  *string `json:"technicianId"`
	LineReference string  `json:"lineReference,omitempty"`
	UpdatedAt     *string `json:"updatedAt"`
}

// NewTicketSnapshot builds a ticket snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	var technicianID *string
	if ticket.TechnicianID != "" {
		value := ticket.TechnicianID
		technicianID = &value
	}

	return TicketSnapshot{
		ID:            ticket.ID,
		ServiceType:   string(ticket.ServiceType),
		CauseType:     string(ticket.CauseType),
		Status:        string(ticket.Status),
		CreatedAt:     ticket.CreatedAt.UTC().Format(time.RFC3339),
		ClosedAt:      formatOptionalTime(ticket.ClosedAt),
		MetDeadline:   ticket.MetDeadline,
		Reopened:      ticket.Reopened,
		ReopenCount:   ticket.ReopenCount,
		Description:   ticket.Description,
		CauseDetail:   ticket.CauseDetail,
		ClosureReason: ticket.ClosureReason,
		TechnicianID:  technicianID,
		LineReference: ticket.LineReference,
		UpdatedAt:     formatOptionalTime(ticket.UpdatedAt),
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}
