package domain

import "time"

// TicketStatus enumerates lifecycle states for service tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates contractual urgency levels.
type TicketPriority string

const (
	TicketPriorityBaja    TicketPriority = "BAJA"
	TicketPriorityMedia   TicketPriority = "MEDIA"
	TicketPriorityAlta    TicketPriority = "ALTA"
	TicketPriorityCritica TicketPriority = "CRITICA"
)

// Ticket is the aggregate for field-service requests. ResponseTimeMinutes is
// derived once when arrival is recorded and never recomputed.
type Ticket struct {
	ID                  string
	TicketNumber        int64
	InstitutionID       string
	EquipmentID         string
	TechnicianID        *string
	Priority            TicketPriority
	Status              TicketStatus
	RequestType         string
	Description         string
	Diagnosis           *string
	Solution            *string
	CreatedAt           time.Time
	ArrivalTime         *time.Time
	ClosedAt            *time.Time
	ResponseTimeMinutes *int64
	CounterBNFinal      *int64
	CounterColorFinal   *int64
	UpdatedAt           time.Time
}

// Terminal reports whether the ticket admits no further transitions.
func (t *Ticket) Terminal() bool {
	return t.Status == TicketStatusClosed
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusClosed},
	TicketStatusClosed:     {},
}

// ValidTransition reports whether moving from current to next is legal.
// Status is monotonic: Open -> InProgress -> Closed.
func ValidTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidPriority reports whether the value belongs to the closed priority set.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityBaja, TicketPriorityMedia, TicketPriorityAlta, TicketPriorityCritica:
		return true
	}
	return false
}
