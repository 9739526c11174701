package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketCreated   EventType = "TICKET_CREATED"
	EventTicketClosed    EventType = "TICKET_CLOSED"
	EventTicketReopened  EventType = "TICKET_REOPENED"
	EventTicketAssigned  EventType = "TICKET_ASSIGNED"
	EventTicketsImported EventType = "TICKETS_IMPORTED"

	// EventTicketImported starts the history of a ticket loaded from a
	// spreadsheet. It is persisted only, never broadcast.
	EventTicketImported EventType = "TICKET_IMPORTED"
)

// Event is the payload sent over WebSocket. An empty TicketID marks an
// event that only goes to dashboard subscribers.
type Event struct {
	Type       EventType   `json:"type"`
	TicketID   string      `json:"ticketId,omitempty"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// ImportSummary is the payload of a TICKETS_IMPORTED event.
type ImportSummary struct {
	Imported int       `json:"imported"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

// TicketEvent is one persisted entry of a ticket's history.
type TicketEvent struct {
	ID        int64
	TicketID  string
	Type      EventType
	ActorID   uuid.UUID
	Payload   json.RawMessage
	CreatedAt time.Time
}
