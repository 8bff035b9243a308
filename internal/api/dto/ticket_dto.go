package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	InstitutionID string                `json:"institution_id"`
	EquipmentID   string                `json:"equipment_id"`
	Priority      domain.TicketPriority `json:"priority"`
	RequestType   string                `json:"request_type"`
	Description   string                `json:"description"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Diagnosis         string `json:"diagnosis"`
	Solution          string `json:"solution"`
	CounterBNFinal    *int64 `json:"counter_bn_final"`
	CounterColorFinal *int64 `json:"counter_color_final"`
}

// TicketResponse is the full wire shape of a ticket.
type TicketResponse struct {
	ID                  string                `json:"id"`
	TicketNumber        int64                 `json:"ticket_number"`
	InstitutionID       string                `json:"institution_id"`
	EquipmentID         string                `json:"equipment_id"`
	TechnicianID        *string               `json:"technician_id,omitempty"`
	Priority            domain.TicketPriority `json:"priority"`
	Status              domain.TicketStatus   `json:"status"`
	RequestType         string                `json:"request_type"`
	Description         string                `json:"description"`
	Diagnosis           *string               `json:"diagnosis,omitempty"`
	Solution            *string               `json:"solution,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	ArrivalTime         *time.Time            `json:"arrival_time,omitempty"`
	ClosedAt            *time.Time            `json:"closed_at,omitempty"`
	ResponseTimeMinutes *int64                `json:"response_time_minutes,omitempty"`
	CounterBNFinal      *int64                `json:"counter_bn_final,omitempty"`
	CounterColorFinal   *int64                `json:"counter_color_final,omitempty"`
}
