package events

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketArrivalRecorded EventType = "ticket_arrival_recorded"
	EventTicketClosed          EventType = "ticket_closed"
)

// Actor encapsulates the principal behind an event.
type Actor struct {
	PrincipalID string      `json:"principal_id"`
	Role        domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber  int64                 `json:"ticket_number"`
	InstitutionID string                `json:"institution_id"`
	EquipmentID   string                `json:"equipment_id"`
	Priority      domain.TicketPriority `json:"priority"`
	RequestType   string                `json:"request_type"`
}

// TicketArrivalRecordedPayload payload.
type TicketArrivalRecordedPayload struct {
	TechnicianID        string `json:"technician_id"`
	ResponseTimeMinutes int64  `json:"response_time_minutes"`
	SLABreached         bool   `json:"sla_breached"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	TechnicianID      *string `json:"technician_id,omitempty"`
	DiagnosisPreview  string  `json:"diagnosis_preview"`
	SolutionPreview   string  `json:"solution_preview"`
	CounterBNFinal    *int64  `json:"counter_bn_final,omitempty"`
	CounterColorFinal *int64  `json:"counter_color_final,omitempty"`
}
