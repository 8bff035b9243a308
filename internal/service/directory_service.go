package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/authz"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// DirectoryService manages institution and equipment reference data.
// Mutations are supervisor-only; reads follow the same scoping as tickets.
type DirectoryService struct {
	institutions repository.InstitutionRepository
	equipment    repository.EquipmentRepository
	filter       *authz.AccessFilter
}

// DirectoryDependencies bundles repositories for the directory service.
type DirectoryDependencies struct {
	InstitutionRepo repository.InstitutionRepository
	EquipmentRepo   repository.EquipmentRepository
	Filter          *authz.AccessFilter
}

// InstitutionInput describes institution create/update payloads.
type InstitutionInput struct {
	Name            string
	Address         string
	City            string
	Phone           string
	Email           string
	ContractManager string
	ClientCode      string
	TechnicianID    *string
}

// EquipmentInput describes equipment create/update payloads.
type EquipmentInput struct {
	InstitutionID    string
	Brand            string
	Model            string
	Serial           string
	IPAddress        *string
	PhysicalLocation string
	LocationDetails  *string
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		institutions: deps.InstitutionRepo,
		equipment:    deps.EquipmentRepo,
		filter:       deps.Filter,
	}
}

// CreateInstitution registers a client institution.
func (s *DirectoryService) CreateInstitution(ctx context.Context, principal *domain.Principal, input InstitutionInput) (*domain.Institution, error) {
	if err := authDecision(principal, authz.KindInstitution, authz.Scope{}, authz.OpCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.ClientCode) == "" {
		return nil, apperrors.NewValidationError("name and client_code required", nil)
	}
	institution := &domain.Institution{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(input.Name),
		Address:         input.Address,
		City:            input.City,
		Phone:           input.Phone,
		Email:           input.Email,
		ContractManager: input.ContractManager,
		ClientCode:      input.ClientCode,
		TechnicianID:    input.TechnicianID,
	}
	if err := withRetry(ctx, func(ctx context.Context) error {
		return s.institutions.Create(ctx, institution)
	}); err != nil {
		return nil, err
	}
	return institution, nil
}

// UpdateInstitution modifies institution reference data.
func (s *DirectoryService) UpdateInstitution(ctx context.Context, principal *domain.Principal, id string, input InstitutionInput) (*domain.Institution, error) {
	institution, err := s.GetInstitution(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := s.filter.AssertInstitutionAccess(principal, institution, authz.OpUpdate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.ClientCode) == "" {
		return nil, apperrors.NewValidationError("name and client_code required", nil)
	}
	institution.Name = strings.TrimSpace(input.Name)
	institution.Address = input.Address
	institution.City = input.City
	institution.Phone = input.Phone
	institution.Email = input.Email
	institution.ContractManager = input.ContractManager
	institution.ClientCode = input.ClientCode
	institution.TechnicianID = input.TechnicianID
	if err := withRetry(ctx, func(ctx context.Context) error {
		return s.institutions.Update(ctx, institution)
	}); err != nil {
		return nil, err
	}
	return institution, nil
}

// DeleteInstitution removes an institution record.
func (s *DirectoryService) DeleteInstitution(ctx context.Context, principal *domain.Principal, id string) error {
	institution, err := s.GetInstitution(ctx, principal, id)
	if err != nil {
		return err
	}
	if err := s.filter.AssertInstitutionAccess(principal, institution, authz.OpDelete); err != nil {
		return err
	}
	return withRetry(ctx, func(ctx context.Context) error {
		return s.institutions.Delete(ctx, id)
	})
}

// GetInstitution fetches an institution within the principal's scope.
func (s *DirectoryService) GetInstitution(ctx context.Context, principal *domain.Principal, id string) (*domain.Institution, error) {
	var institution *domain.Institution
	err := withRetry(ctx, func(ctx context.Context) error {
		var getErr error
		institution, getErr = s.institutions.GetByID(ctx, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("institution", map[string]any{"id": id})
		}
		return nil, err
	}
	if err := s.filter.AssertInstitutionAccess(principal, institution, authz.OpRead); err != nil {
		return nil, err
	}
	return institution, nil
}

// ListInstitutions returns institutions visible to the principal. Clients see
// only their own.
func (s *DirectoryService) ListInstitutions(ctx context.Context, principal *domain.Principal, limit, offset int) ([]domain.Institution, error) {
	if principal != nil && principal.Role == domain.RoleClient {
		if principal.InstitutionID == nil {
			return nil, apperrors.NewAuthorizationError("client has no institution")
		}
		institution, err := s.GetInstitution(ctx, principal, *principal.InstitutionID)
		if err != nil {
			return nil, err
		}
		return []domain.Institution{*institution}, nil
	}
	if err := authDecision(principal, authz.KindInstitution, authz.Scope{}, authz.OpRead); err != nil {
		return nil, err
	}
	var institutions []domain.Institution
	if err := withRetry(ctx, func(ctx context.Context) error {
		var listErr error
		institutions, listErr = s.institutions.List(ctx, limit, offset)
		return listErr
	}); err != nil {
		return nil, err
	}
	return institutions, nil
}

// CreateEquipment registers a unit at an institution.
func (s *DirectoryService) CreateEquipment(ctx context.Context, principal *domain.Principal, input EquipmentInput) (*domain.Equipment, error) {
	if err := authDecision(principal, authz.KindEquipment, authz.Scope{}, authz.OpCreate); err != nil {
		return nil, err
	}
	equipment, err := buildEquipment(input)
	if err != nil {
		return nil, err
	}
	if err := s.assertInstitutionExists(ctx, input.InstitutionID); err != nil {
		return nil, err
	}
	if err := withRetry(ctx, func(ctx context.Context) error {
		return s.equipment.Create(ctx, equipment)
	}); err != nil {
		return nil, err
	}
	return equipment, nil
}

// UpdateEquipment modifies an equipment record.
func (s *DirectoryService) UpdateEquipment(ctx context.Context, principal *domain.Principal, id string, input EquipmentInput) (*domain.Equipment, error) {
	equipment, err := s.GetEquipment(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := s.filter.AssertEquipmentAccess(principal, equipment, authz.OpUpdate); err != nil {
		return nil, err
	}
	updated, err := buildEquipment(input)
	if err != nil {
		return nil, err
	}
	if err := s.assertInstitutionExists(ctx, input.InstitutionID); err != nil {
		return nil, err
	}
	updated.ID = equipment.ID
	updated.CreatedAt = equipment.CreatedAt
	if err := withRetry(ctx, func(ctx context.Context) error {
		return s.equipment.Update(ctx, updated)
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEquipment removes an equipment record.
func (s *DirectoryService) DeleteEquipment(ctx context.Context, principal *domain.Principal, id string) error {
	equipment, err := s.GetEquipment(ctx, principal, id)
	if err != nil {
		return err
	}
	if err := s.filter.AssertEquipmentAccess(principal, equipment, authz.OpDelete); err != nil {
		return err
	}
	return withRetry(ctx, func(ctx context.Context) error {
		return s.equipment.Delete(ctx, id)
	})
}

// GetEquipment fetches a unit within the principal's scope.
func (s *DirectoryService) GetEquipment(ctx context.Context, principal *domain.Principal, id string) (*domain.Equipment, error) {
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
	if err := s.filter.AssertEquipmentAccess(principal, equipment, authz.OpRead); err != nil {
		return nil, err
	}
	return equipment, nil
}

// ListEquipment returns units restricted to the principal's visibility.
func (s *DirectoryService) ListEquipment(ctx context.Context, principal *domain.Principal, base repository.EquipmentFilter) ([]domain.Equipment, error) {
	scoped, err := s.filter.ScopedEquipmentFilter(principal, base)
	if err != nil {
		return nil, err
	}
	var equipment []domain.Equipment
	if err := withRetry(ctx, func(ctx context.Context) error {
		var listErr error
		equipment, listErr = s.equipment.ListWithFilter(ctx, scoped)
		return listErr
	}); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (s *DirectoryService) assertInstitutionExists(ctx context.Context, id string) error {
	err := withRetry(ctx, func(ctx context.Context) error {
		_, getErr := s.institutions.GetByID(ctx, id)
		return getErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewValidationError("unknown institution", map[string]any{"institution_id": id})
	}
	return err
}

func buildEquipment(input EquipmentInput) (*domain.Equipment, error) {
	if strings.TrimSpace(input.InstitutionID) == "" || strings.TrimSpace(input.Brand) == "" ||
		strings.TrimSpace(input.Model) == "" || strings.TrimSpace(input.Serial) == "" {
		return nil, apperrors.NewValidationError("institution_id, brand, model, serial required", nil)
	}
	return &domain.Equipment{
		ID:               uuid.NewString(),
		InstitutionID:    strings.TrimSpace(input.InstitutionID),
		Brand:            strings.TrimSpace(input.Brand),
		Model:            strings.TrimSpace(input.Model),
		Serial:           strings.TrimSpace(input.Serial),
		IPAddress:        input.IPAddress,
		PhysicalLocation: input.PhysicalLocation,
		LocationDetails:  input.LocationDetails,
	}, nil
}

func authDecision(principal *domain.Principal, kind authz.EntityKind, scope authz.Scope, op authz.Operation) error {
	decision := authz.Authorize(principal, kind, scope, op)
	if decision.Allowed {
		return nil
	}
	return apperrors.NewAuthorizationError(decision.Reason)
}
