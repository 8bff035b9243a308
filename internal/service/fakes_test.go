package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/repository"
)

// fixedClock returns a controllable time for deterministic lifecycle tests.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// fakeTicketRepo is an in-memory TicketRepository honoring the same
// compare-and-set contract as the SQL implementation.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	nextNum int64
	failure error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]domain.Ticket{}, nextNum: 1}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil {
		return r.failure
	}
	ticket.TicketNumber = r.nextNum
	r.nextNum++
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil {
		return nil, r.failure
	}
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil {
		return nil, r.failure
	}
	matched := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if filter.InstitutionID != nil && ticket.InstitutionID != *filter.InstitutionID {
			continue
		}
		if filter.TechnicianID != nil {
			if ticket.TechnicianID == nil || *ticket.TechnicianID != *filter.TechnicianID {
				continue
			}
		}
		if filter.EquipmentID != nil && ticket.EquipmentID != *filter.EquipmentID {
			continue
		}
		if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		matched = append(matched, ticket)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].TicketNumber > matched[j].TicketNumber
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.Ticket{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeTicketRepo) RecordArrival(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil {
		return r.failure
	}
	existing, ok := r.tickets[ticket.ID]
	if !ok || existing.Status != expectedStatus {
		return repository.ErrPreconditionFailed
	}
	if existing.TechnicianID != nil && ticket.TechnicianID != nil && *existing.TechnicianID != *ticket.TechnicianID {
		return repository.ErrPreconditionFailed
	}
	existing.Status = ticket.Status
	existing.TechnicianID = ticket.TechnicianID
	existing.ArrivalTime = ticket.ArrivalTime
	existing.ResponseTimeMinutes = ticket.ResponseTimeMinutes
	existing.UpdatedAt = time.Now().UTC()
	r.tickets[ticket.ID] = existing
	return nil
}

func (r *fakeTicketRepo) Close(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil {
		return r.failure
	}
	existing, ok := r.tickets[ticket.ID]
	if !ok || existing.Status != expectedStatus {
		return repository.ErrPreconditionFailed
	}
	existing.Status = ticket.Status
	existing.Diagnosis = ticket.Diagnosis
	existing.Solution = ticket.Solution
	existing.ClosedAt = ticket.ClosedAt
	existing.CounterBNFinal = ticket.CounterBNFinal
	existing.CounterColorFinal = ticket.CounterColorFinal
	existing.UpdatedAt = time.Now().UTC()
	r.tickets[ticket.ID] = existing
	return nil
}

func containsStatus(values []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsPriority(values []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

var errDuplicateSerial error = &pgconn.PgError{Code: "23505", ConstraintName: "equipment_serial_key"}

// fakeEquipmentRepo is an in-memory EquipmentRepository.
type fakeEquipmentRepo struct {
	mu        sync.Mutex
	equipment map[string]domain.Equipment
	createErr error
}

func newFakeEquipmentRepo() *fakeEquipmentRepo {
	return &fakeEquipmentRepo{equipment: map[string]domain.Equipment{}}
}

func (r *fakeEquipmentRepo) Create(ctx context.Context, equipment *domain.Equipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.equipment {
		if existing.Serial == equipment.Serial {
			return errDuplicateSerial
		}
	}
	r.equipment[equipment.ID] = *equipment
	return nil
}

func (r *fakeEquipmentRepo) Update(ctx context.Context, equipment *domain.Equipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.equipment[equipment.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.equipment[equipment.ID] = *equipment
	return nil
}

func (r *fakeEquipmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.equipment[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.equipment, id)
	return nil
}

func (r *fakeEquipmentRepo) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	equipment, ok := r.equipment[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := equipment
	return &copied, nil
}

func (r *fakeEquipmentRepo) GetBySerial(ctx context.Context, serial string) (*domain.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, equipment := range r.equipment {
		if equipment.Serial == serial {
			copied := equipment
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeEquipmentRepo) ListWithFilter(ctx context.Context, filter repository.EquipmentFilter) ([]domain.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []domain.Equipment{}
	for _, equipment := range r.equipment {
		if filter.InstitutionID != nil && equipment.InstitutionID != *filter.InstitutionID {
			continue
		}
		if filter.Brand != nil && equipment.Brand != *filter.Brand {
			continue
		}
		matched = append(matched, equipment)
	}
	return matched, nil
}

// fakeInstitutionRepo is an in-memory InstitutionRepository.
type fakeInstitutionRepo struct {
	mu           sync.Mutex
	institutions map[string]domain.Institution
}

func newFakeInstitutionRepo() *fakeInstitutionRepo {
	return &fakeInstitutionRepo{institutions: map[string]domain.Institution{}}
}

func (r *fakeInstitutionRepo) Create(ctx context.Context, institution *domain.Institution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.institutions[institution.ID] = *institution
	return nil
}

func (r *fakeInstitutionRepo) Update(ctx context.Context, institution *domain.Institution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.institutions[institution.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.institutions[institution.ID] = *institution
	return nil
}

func (r *fakeInstitutionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.institutions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.institutions, id)
	return nil
}

func (r *fakeInstitutionRepo) GetByID(ctx context.Context, id string) (*domain.Institution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	institution, ok := r.institutions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := institution
	return &copied, nil
}

func (r *fakeInstitutionRepo) List(ctx context.Context, limit, offset int) ([]domain.Institution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []domain.Institution{}
	for _, institution := range r.institutions {
		all = append(all, institution)
	}
	return all, nil
}

// fakePrincipalRepo is an in-memory PrincipalRepository.
type fakePrincipalRepo struct {
	mu         sync.Mutex
	principals map[string]domain.Principal
}

func newFakePrincipalRepo() *fakePrincipalRepo {
	return &fakePrincipalRepo{principals: map[string]domain.Principal{}}
}

func (r *fakePrincipalRepo) Create(ctx context.Context, principal *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principals[principal.ID] = *principal
	return nil
}

func (r *fakePrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	principal, ok := r.principals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := principal
	return &copied, nil
}

func (r *fakePrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, principal := range r.principals {
		if principal.Email == email {
			copied := principal
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePrincipalRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []domain.Principal{}
	for _, principal := range r.principals {
		if principal.Role == role {
			matched = append(matched, principal)
		}
	}
	return matched, nil
}

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *captureDispatcher) Events() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}

func supervisorPrincipal() *domain.Principal {
	return &domain.Principal{ID: "sup-1", FullName: "Ana Supervisor", Role: domain.RoleSupervisor, Status: domain.PrincipalStatusActive}
}

func technicianPrincipal(id string) *domain.Principal {
	return &domain.Principal{ID: id, FullName: "Tec " + id, Role: domain.RoleTechnician, Status: domain.PrincipalStatusActive}
}

func clientPrincipal(institutionID string) *domain.Principal {
	return &domain.Principal{ID: "cli-" + institutionID, FullName: "Cli " + institutionID, Role: domain.RoleClient, Status: domain.PrincipalStatusActive, InstitutionID: &institutionID}
}
