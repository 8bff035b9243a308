package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// EquipmentFilter captures equipment query parameters.
type EquipmentFilter struct {
	InstitutionID *string
	Brand         *string
	Limit         int
	Offset        int
}

// EquipmentRepository encapsulates equipment persistence.
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *domain.Equipment) error
	Update(ctx context.Context, equipment *domain.Equipment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	GetBySerial(ctx context.Context, serial string) (*domain.Equipment, error)
	ListWithFilter(ctx context.Context, filter EquipmentFilter) ([]domain.Equipment, error)
}

type equipmentRepository struct {
	pool *pgxpool.Pool
}

// NewEquipmentRepository instantiates repository.
func NewEquipmentRepository(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepository{pool: pool}
}

func (r *equipmentRepository) Create(ctx context.Context, equipment *domain.Equipment) error {
	const query = `
        INSERT INTO equipment (id, institution_id, brand, model, serial, ip_address, physical_location, location_details)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		equipment.ID,
		equipment.InstitutionID,
		equipment.Brand,
		equipment.Model,
		equipment.Serial,
		equipment.IPAddress,
		equipment.PhysicalLocation,
		equipment.LocationDetails,
	).Scan(&equipment.CreatedAt, &equipment.UpdatedAt)
}

func (r *equipmentRepository) Update(ctx context.Context, equipment *domain.Equipment) error {
	const query = `
        UPDATE equipment SET institution_id=$1, brand=$2, model=$3, serial=$4, ip_address=$5,
            physical_location=$6, location_details=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		equipment.InstitutionID,
		equipment.Brand,
		equipment.Model,
		equipment.Serial,
		equipment.IPAddress,
		equipment.PhysicalLocation,
		equipment.LocationDetails,
		equipment.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *equipmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM equipment WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const equipmentColumns = `id, institution_id, brand, model, serial, ip_address,
               physical_location, location_details, created_at, updated_at`

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *equipmentRepository) GetBySerial(ctx context.Context, serial string) (*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE serial=$1`
	return r.fetchSingle(ctx, query, serial)
}

func (r *equipmentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Equipment, error) {
	var equipment domain.Equipment
	if err := scanEquipment(r.pool.QueryRow(ctx, query, arg), &equipment); err != nil {
		return nil, err
	}
	return &equipment, nil
}

func (r *equipmentRepository) ListWithFilter(ctx context.Context, filter EquipmentFilter) ([]domain.Equipment, error) {
	base := `SELECT ` + equipmentColumns + ` FROM equipment`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.InstitutionID != nil {
		args = append(args, *filter.InstitutionID)
		clauses = append(clauses, fmt.Sprintf("institution_id=$%d", len(args)))
	}
	if filter.Brand != nil {
		args = append(args, *filter.Brand)
		clauses = append(clauses, fmt.Sprintf("brand=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY brand, model LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Equipment
	for rows.Next() {
		var equipment domain.Equipment
		if err := scanEquipment(rows, &equipment); err != nil {
			return nil, err
		}
		result = append(result, equipment)
	}
	return result, rows.Err()
}

func scanEquipment(row pgx.Row, equipment *domain.Equipment) error {
	return row.Scan(
		&equipment.ID,
		&equipment.InstitutionID,
		&equipment.Brand,
		&equipment.Model,
		&equipment.Serial,
		&equipment.IPAddress,
		&equipment.PhysicalLocation,
		&equipment.LocationDetails,
		&equipment.CreatedAt,
		&equipment.UpdatedAt,
	)
}
