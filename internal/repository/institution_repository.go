package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// InstitutionRepository encapsulates institution persistence.
type InstitutionRepository interface {
	Create(ctx context.Context, institution *domain.Institution) error
	Update(ctx context.Context, institution *domain.Institution) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Institution, error)
	List(ctx context.Context, limit, offset int) ([]domain.Institution, error)
}

type institutionRepository struct {
	pool *pgxpool.Pool
}

// NewInstitutionRepository instantiates repository.
func NewInstitutionRepository(pool *pgxpool.Pool) InstitutionRepository {
	return &institutionRepository{pool: pool}
}

func (r *institutionRepository) Create(ctx context.Context, institution *domain.Institution) error {
	const query = `
        INSERT INTO institutions (id, name, address, city, phone, email, contract_manager, client_code, technician_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		institution.ID,
		institution.Name,
		institution.Address,
		institution.City,
		institution.Phone,
		institution.Email,
		institution.ContractManager,
		institution.ClientCode,
		institution.TechnicianID,
	).Scan(&institution.CreatedAt, &institution.UpdatedAt)
}

func (r *institutionRepository) Update(ctx context.Context, institution *domain.Institution) error {
	const query = `
        UPDATE institutions SET name=$1, address=$2, city=$3, phone=$4, email=$5,
            contract_manager=$6, client_code=$7, technician_id=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		institution.Name,
		institution.Address,
		institution.City,
		institution.Phone,
		institution.Email,
		institution.ContractManager,
		institution.ClientCode,
		institution.TechnicianID,
		institution.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *institutionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM institutions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const institutionColumns = `id, name, address, city, phone, email, contract_manager,
               client_code, technician_id, created_at, updated_at`

func (r *institutionRepository) GetByID(ctx context.Context, id string) (*domain.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE id=$1`
	var institution domain.Institution
	if err := scanInstitution(r.pool.QueryRow(ctx, query, id), &institution); err != nil {
		return nil, err
	}
	return &institution, nil
}

func (r *institutionRepository) List(ctx context.Context, limit, offset int) ([]domain.Institution, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + institutionColumns + ` FROM institutions ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Institution
	for rows.Next() {
		var institution domain.Institution
		if err := scanInstitution(rows, &institution); err != nil {
			return nil, err
		}
		result = append(result, institution)
	}
	return result, rows.Err()
}

func scanInstitution(row pgx.Row, institution *domain.Institution) error {
	return row.Scan(
		&institution.ID,
		&institution.Name,
		&institution.Address,
		&institution.City,
		&institution.Phone,
		&institution.Email,
		&institution.ContractManager,
		&institution.ClientCode,
		&institution.TechnicianID,
		&institution.CreatedAt,
		&institution.UpdatedAt,
	)
}
