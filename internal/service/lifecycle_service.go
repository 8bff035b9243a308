package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/authz"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/sla"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// LifecycleService drives the ticket state machine: Open -> InProgress ->
// Closed. Every operation takes the acting principal explicitly and is
// guarded by the access filter before any write.
type LifecycleService struct {
	tickets    repository.TicketRepository
	equipment  repository.EquipmentRepository
	filter     *authz.AccessFilter
	calculator *sla.Calculator
	clock      sla.Clock
	dispatcher events.Dispatcher
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo    repository.TicketRepository
	EquipmentRepo repository.EquipmentRepository
	Filter        *authz.AccessFilter
	Calculator    *sla.Calculator
	Clock         sla.Clock
	Dispatcher    events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	InstitutionID string
	EquipmentID   string
	Priority      domain.TicketPriority
	RequestType   string
	Description   string
}

// TicketCloseInput describes the close payload. Counters are optional meter
// readings recorded at close.
type TicketCloseInput struct {
	Diagnosis         string
	Solution          string
	CounterBNFinal    *int64
	CounterColorFinal *int64
}

// TicketQuery describes caller-supplied listing filters before scoping.
type TicketQuery struct {
	InstitutionID *string
	TechnicianID  *string
	Statuses      []domain.TicketStatus
	Priorities    []domain.TicketPriority
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock()
	}
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		equipment:  deps.EquipmentRepo,
		filter:     deps.Filter,
		calculator: deps.Calculator,
		clock:      clock,
		dispatcher: deps.Dispatcher,
	}
}

// Create opens a new ticket. The equipment must belong to the requested
// institution; a mismatch is a consistency violation, not a validation slip.
func (s *LifecycleService) Create(ctx context.Context, principal *domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.InstitutionID) == "" || strings.TrimSpace(input.EquipmentID) == "" {
		return nil, apperrors.NewValidationError("institution_id and equipment_id required", nil)
	}
	if strings.TrimSpace(input.Description) == "" || strings.TrimSpace(input.RequestType) == "" {
		return nil, apperrors.NewValidationError("request_type and description required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedia
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	if err := s.filter.AssertTicketCreate(principal, input.InstitutionID); err != nil {
		return nil, err
	}

	equipment, err := s.getEquipment(ctx, input.EquipmentID)
	if err != nil {
		return nil, err
	}
	if equipment.InstitutionID != input.InstitutionID {
		return nil, apperrors.NewConsistencyError("equipment does not belong to institution", map[string]any{
			"equipment_id":   equipment.ID,
			"institution_id": input.InstitutionID,
		})
	}

	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		InstitutionID: input.InstitutionID,
		EquipmentID:   input.EquipmentID,
		Priority:      input.Priority,
		Status:        domain.TicketStatusOpen,
		RequestType:   strings.TrimSpace(input.RequestType),
		Description:   strings.TrimSpace(input.Description),
		CreatedAt:     s.clock.Now(),
	}

	if err := withRetry(ctx, func(ctx context.Context) error {
		return s.tickets.Create(ctx, ticket)
	}); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, principal, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber:  ticket.TicketNumber,
			InstitutionID: ticket.InstitutionID,
			EquipmentID:   ticket.EquipmentID,
			Priority:      ticket.Priority,
			RequestType:   ticket.RequestType,
		},
	})
	return ticket, nil
}

// RecordArrival transitions an Open ticket to InProgress, stamping the
// arrival time and freezing the derived response minutes. The first
// responding technician claims the ticket; a different technician on an
// already-assigned ticket is denied.
func (s *LifecycleService) RecordArrival(ctx context.Context, principal *domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.filter.AssertTicketAccess(principal, ticket, authz.OpUpdate); err != nil {
		return nil, err
	}
	if ticket.Terminal() {
		return nil, apperrors.NewTerminalState("ticket is closed")
	}
	if ticket.Status != domain.TicketStatusOpen {
		return nil, apperrors.NewInvalidTransition("arrival may only be recorded on an open ticket", map[string]any{
			"status": ticket.Status,
		})
	}

	technicianID, err := arrivingTechnician(principal, ticket)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	minutes, err := s.calculator.ComputeResponseMinutes(ticket.CreatedAt, now)
	if err != nil {
		return nil, err
	}

	updated := *ticket
	updated.Status = domain.TicketStatusInProgress
	updated.TechnicianID = &technicianID
	updated.ArrivalTime = &now
	updated.ResponseTimeMinutes = &minutes

	if err := withRetry(ctx, func(ctx context.Context) error {
		return s.tickets.RecordArrival(ctx, &updated, domain.TicketStatusOpen)
	}); err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) {
			return nil, s.classifyPreconditionFailure(ctx, ticketID)
		}
		return nil, err
	}

	s.publishEvent(ctx, principal, events.Event{
		Type:     events.EventTicketArrivalRecorded,
		TicketID: updated.ID,
		Payload: events.TicketArrivalRecordedPayload{
			TechnicianID:        technicianID,
			ResponseTimeMinutes: minutes,
			SLABreached:         s.calculator.IsBreached(minutes),
		},
	})
	return &updated, nil
}

// Close transitions an InProgress ticket to the terminal Closed state,
// recording diagnosis, solution, and final meter counters.
func (s *LifecycleService) Close(ctx context.Context, principal *domain.Principal, ticketID string, input TicketCloseInput) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.filter.AssertTicketAccess(principal, ticket, authz.OpUpdate); err != nil {
		return nil, err
	}
	if ticket.Terminal() {
		return nil, apperrors.NewTerminalState("ticket is closed")
	}
	if ticket.Status != domain.TicketStatusInProgress {
		return nil, apperrors.NewInvalidTransition("only an in-progress ticket may be closed", map[string]any{
			"status": ticket.Status,
		})
	}

	diagnosis := strings.TrimSpace(input.Diagnosis)
	solution := strings.TrimSpace(input.Solution)
	if diagnosis == "" || solution == "" {
		return nil, apperrors.NewValidationError("diagnosis and solution required", nil)
	}

	now := s.clock.Now()
	if ticket.ArrivalTime != nil && now.Before(*ticket.ArrivalTime) {
		return nil, apperrors.NewValidationError("close time precedes arrival time", map[string]any{
			"arrival_time": *ticket.ArrivalTime,
			"closed_at":    now,
		})
	}

	updated := *ticket
	updated.Status = domain.TicketStatusClosed
	updated.Diagnosis = &diagnosis
	updated.Solution = &solution
	updated.ClosedAt = &now
	updated.CounterBNFinal = input.CounterBNFinal
	updated.CounterColorFinal = input.CounterColorFinal

	if err := withRetry(ctx, func(ctx context.Context) error {
		return s.tickets.Close(ctx, &updated, domain.TicketStatusInProgress)
	}); err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) {
			return nil, s.classifyPreconditionFailure(ctx, ticketID)
		}
		return nil, err
	}

	s.publishEvent(ctx, principal, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: updated.ID,
		Payload: events.TicketClosedPayload{
			TechnicianID:      updated.TechnicianID,
			DiagnosisPreview:  stringPreview(diagnosis, 120),
			SolutionPreview:   stringPreview(solution, 120),
			CounterBNFinal:    updated.CounterBNFinal,
			CounterColorFinal: updated.CounterColorFinal,
		},
	})
	return &updated, nil
}

// Get fetches a single ticket within the principal's scope.
func (s *LifecycleService) Get(ctx context.Context, principal *domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.filter.AssertTicketAccess(principal, ticket, authz.OpRead); err != nil {
		return nil, err
	}
	return ticket, nil
}

// List returns tickets restricted to the principal's visibility.
func (s *LifecycleService) List(ctx context.Context, principal *domain.Principal, query TicketQuery) ([]domain.Ticket, error) {
	base := repository.TicketFilter{
		InstitutionID: query.InstitutionID,
		TechnicianID:  query.TechnicianID,
		Statuses:      query.Statuses,
		Priorities:    query.Priorities,
		CreatedFrom:   query.CreatedFrom,
		CreatedTo:     query.CreatedTo,
		Limit:         query.Limit,
		Offset:        query.Offset,
	}
	scoped, err := s.filter.ScopedTicketFilter(principal, base)
	if err != nil {
		return nil, err
	}
	var tickets []domain.Ticket
	if err := withRetry(ctx, func(ctx context.Context) error {
		var listErr error
		tickets, listErr = s.tickets.ListWithFilter(ctx, scoped)
		return listErr
	}); err != nil {
		return nil, err
	}
	return tickets, nil
}

// EquipmentForTicket resolves the joined equipment record with the same
// scoping predicate applied to the join target, so a client cannot reach
// another institution's equipment through a ticket reference.
func (s *LifecycleService) EquipmentForTicket(ctx context.Context, principal *domain.Principal, ticketID string) (*domain.Equipment, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.filter.AssertTicketAccess(principal, ticket, authz.OpRead); err != nil {
		return nil, err
	}
	equipment, err := s.getEquipment(ctx, ticket.EquipmentID)
	if err != nil {
		return nil, err
	}
	if err := s.filter.AssertEquipmentAccess(principal, equipment, authz.OpRead); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (s *LifecycleService) getTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := withRetry(ctx, func(ctx context.Context) error {
		var getErr error
		ticket, getErr = s.tickets.GetByID(ctx, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *LifecycleService) getEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	var equipment *domain.Equipment
	err := withRetry(ctx, func(ctx context.Context) error {
		var getErr error
		equipment, getErr = s.equipment.GetByID(ctx, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("equipment", map[string]any{"id": id})
		}
		return nil, err
	}
	return equipment, nil
}

// classifyPreconditionFailure re-reads after a failed compare-and-set to
// tell a lost race apart from a deleted row. Callers re-fetch and retry
// manually; the service never retries conflicts.
func (s *LifecycleService) classifyPreconditionFailure(ctx context.Context, ticketID string) error {
	current, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if current.Terminal() {
		return apperrors.NewConflict("ticket was closed by another actor", map[string]any{"status": current.Status})
	}
	return apperrors.NewConflict("ticket was transitioned by another actor", map[string]any{"status": current.Status})
}

// arrivingTechnician resolves who the arrival is attributed to. Technicians
// claim for themselves; a supervisor may record on behalf of the assigned
// technician only.
func arrivingTechnician(principal *domain.Principal, ticket *domain.Ticket) (string, error) {
	if principal.Role == domain.RoleTechnician {
		return principal.ID, nil
	}
	if ticket.TechnicianID != nil {
		return *ticket.TechnicianID, nil
	}
	return "", apperrors.NewValidationError("no technician to attribute arrival to", nil)
}

func (s *LifecycleService) publishEvent(ctx context.Context, principal *domain.Principal, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	event.Actor = events.Actor{PrincipalID: principal.ID, Role: principal.Role}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
