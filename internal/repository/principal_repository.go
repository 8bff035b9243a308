package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// PrincipalRepository encapsulates persistence of authenticated actors.
type PrincipalRepository interface {
	Create(ctx context.Context, principal *domain.Principal) error
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.Principal, error)
}

type principalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository instantiates repository.
func NewPrincipalRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepository{pool: pool}
}

func (r *principalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	const query = `
        INSERT INTO principals (id, full_name, email, phone, password_hash, role, status, institution_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		principal.ID,
		principal.FullName,
		principal.Email,
		principal.Phone,
		principal.PasswordHash,
		principal.Role,
		principal.Status,
		principal.InstitutionID,
	).Scan(&principal.CreatedAt, &principal.UpdatedAt)
}

const principalColumns = `id, full_name, email, phone, password_hash, role, status,
               institution_id, created_at, updated_at`

func (r *principalRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *principalRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Principal, error) {
	var principal domain.Principal
	if err := scanPrincipal(r.pool.QueryRow(ctx, query, arg), &principal); err != nil {
		return nil, err
	}
	return &principal, nil
}

func (r *principalRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE role=$1 ORDER BY full_name`
	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Principal
	for rows.Next() {
		var principal domain.Principal
		if err := scanPrincipal(rows, &principal); err != nil {
			return nil, err
		}
		result = append(result, principal)
	}
	return result, rows.Err()
}

func scanPrincipal(row pgx.Row, principal *domain.Principal) error {
	return row.Scan(
		&principal.ID,
		&principal.FullName,
		&principal.Email,
		&principal.Phone,
		&principal.PasswordHash,
		&principal.Role,
		&principal.Status,
		&principal.InstitutionID,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	)
}
