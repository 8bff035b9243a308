package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// ErrPreconditionFailed signals that a compare-and-set update matched no row:
// either the ticket is gone or another actor already transitioned it. Callers
// re-fetch to distinguish the two.
var ErrPreconditionFailed = errors.New("update precondition failed")

// TicketFilter captures ticket query parameters.
type TicketFilter struct {
	InstitutionID *string
	TechnicianID  *string
	EquipmentID   *string
	Statuses      []domain.TicketStatus
	Priorities    []domain.TicketPriority
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence. Mutations on existing
// tickets are guarded by compare-and-set preconditions on status (and
// technician assignment for arrivals) within a single atomic statement.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	RecordArrival(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus) error
	Close(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, institution_id, equipment_id, technician_id, priority, status, request_type, description, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING ticket_number, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.InstitutionID,
		ticket.EquipmentID,
		ticket.TechnicianID,
		ticket.Priority,
		ticket.Status,
		ticket.RequestType,
		ticket.Description,
		ticket.CreatedAt,
	).Scan(&ticket.TicketNumber, &ticket.UpdatedAt)
}

// RecordArrival transitions Open -> InProgress in one statement. The WHERE
// clause is the optimistic precondition: the row must still be in the
// expected status and either unassigned or assigned to the same technician.
func (r *ticketRepository) RecordArrival(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET status=$1, technician_id=$2, arrival_time=$3, response_time_minutes=$4, updated_at=NOW()
        WHERE id=$5 AND status=$6 AND (technician_id IS NULL OR technician_id=$2)`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.TechnicianID,
		ticket.ArrivalTime,
		ticket.ResponseTimeMinutes,
		ticket.ID,
		expectedStatus,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

// Close transitions InProgress -> Closed under the same compare-and-set
// discipline.
func (r *ticketRepository) Close(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET status=$1, diagnosis=$2, solution=$3, closed_at=$4,
            counter_bn_final=$5, counter_color_final=$6, updated_at=NOW()
        WHERE id=$7 AND status=$8`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Diagnosis,
		ticket.Solution,
		ticket.ClosedAt,
		ticket.CounterBNFinal,
		ticket.CounterColorFinal,
		ticket.ID,
		expectedStatus,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

const ticketColumns = `id, ticket_number, institution_id, equipment_id, technician_id,
               priority, status, request_type, description, diagnosis, solution,
               created_at, arrival_time, closed_at, response_time_minutes,
               counter_bn_final, counter_color_final, updated_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.InstitutionID != nil {
		args = append(args, *filter.InstitutionID)
		clauses = append(clauses, fmt.Sprintf("institution_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		clauses = append(clauses, fmt.Sprintf("equipment_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, ticket_number DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.InstitutionID,
		&ticket.EquipmentID,
		&ticket.TechnicianID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.RequestType,
		&ticket.Description,
		&ticket.Diagnosis,
		&ticket.Solution,
		&ticket.CreatedAt,
		&ticket.ArrivalTime,
		&ticket.ClosedAt,
		&ticket.ResponseTimeMinutes,
		&ticket.CounterBNFinal,
		&ticket.CounterColorFinal,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
