package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/authz"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
)

// importColumns is the fixed field order of the equipment batch format.
// [brand, model, serial, ip_address, physical_location, location_details, institution_id]
const importColumns = 7

// ImportSummary reports a batch outcome. There is no partial rollback; each
// row is an independent insert.
type ImportSummary struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// ImporterService performs bulk equipment imports from comma-delimited text.
type ImporterService struct {
	equipment repository.EquipmentRepository
	logger    *zap.Logger
}

// NewImporterService constructs the service.
func NewImporterService(equipment repository.EquipmentRepository, logger *zap.Logger) *ImporterService {
	return &ImporterService{equipment: equipment, logger: logger}
}

// ImportEquipment reads the batch, discards the header row, and inserts each
// well-formed row. Rows with fewer than seven fields or failing insertion are
// counted as failures and skipped; the rest of the batch continues.
func (s *ImporterService) ImportEquipment(ctx context.Context, principal *domain.Principal, input io.Reader) (ImportSummary, error) {
	if err := authDecision(principal, authz.KindEquipment, authz.Scope{}, authz.OpCreate); err != nil {
		return ImportSummary{}, err
	}

	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	summary := ImportSummary{}
	// The header line is discarded regardless of shape, even when it does not
	// parse as CSV.
	if _, err := reader.Read(); errors.Is(err, io.EOF) {
		return summary, nil
	}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// malformed row: skip-on-malformed policy, counted not reported
			summary.FailureCount++
			continue
		}
		if len(record) < importColumns {
			summary.FailureCount++
			continue
		}
		equipment := equipmentFromRecord(record)
		if equipment == nil {
			summary.FailureCount++
			continue
		}
		if err := s.equipment.Create(ctx, equipment); err != nil {
			s.logger.Warn("import row failed",
				zap.String("serial", equipment.Serial),
				zap.Error(err))
			summary.FailureCount++
			continue
		}
		summary.SuccessCount++
	}
	return summary, nil
}

func equipmentFromRecord(record []string) *domain.Equipment {
	brand := strings.TrimSpace(record[0])
	model := strings.TrimSpace(record[1])
	serial := strings.TrimSpace(record[2])
	institutionID := strings.TrimSpace(record[6])
	if brand == "" || model == "" || serial == "" || institutionID == "" {
		return nil
	}
	equipment := &domain.Equipment{
		ID:               uuid.NewString(),
		InstitutionID:    institutionID,
		Brand:            brand,
		Model:            model,
		Serial:           serial,
		PhysicalLocation: strings.TrimSpace(record[4]),
	}
	if ip := strings.TrimSpace(record[3]); ip != "" {
		equipment.IPAddress = &ip
	}
	if details := strings.TrimSpace(record[5]); details != "" {
		equipment.LocationDetails = &details
	}
	return equipment
}
