package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// DirectoryHandler exposes institution and equipment reference-data
// endpoints.
type DirectoryHandler struct {
	directory *service.DirectoryService
	importer  *service.ImporterService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directory *service.DirectoryService, importer *service.ImporterService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, importer: importer}
}

// CreateInstitution POST /institutions.
func (h *DirectoryHandler) CreateInstitution(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.InstitutionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	institution, err := h.directory.CreateInstitution(c.UserContext(), principal, institutionInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": institutionResponse(institution)})
}

// UpdateInstitution PUT /institutions/:id.
func (h *DirectoryHandler) UpdateInstitution(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.InstitutionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	institution, err := h.directory.UpdateInstitution(c.UserContext(), principal, c.Params("id"), institutionInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": institutionResponse(institution)})
}

// DeleteInstitution DELETE /institutions/:id.
func (h *DirectoryHandler) DeleteInstitution(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.directory.DeleteInstitution(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetInstitution GET /institutions/:id.
func (h *DirectoryHandler) GetInstitution(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	institution, err := h.directory.GetInstitution(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": institutionResponse(institution)})
}

// ListInstitutions GET /institutions.
func (h *DirectoryHandler) ListInstitutions(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	page := parseIntParam(c.Query("page"), 1)
	pageSize := parseIntParam(c.Query("page_size"), 50)
	institutions, err := h.directory.ListInstitutions(c.UserContext(), principal, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.InstitutionResponse, 0, len(institutions))
	for i := range institutions {
		items = append(items, institutionResponse(&institutions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateEquipment POST /equipment.
func (h *DirectoryHandler) CreateEquipment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.EquipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	equipment, err := h.directory.CreateEquipment(c.UserContext(), principal, equipmentInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// UpdateEquipment PUT /equipment/:id.
func (h *DirectoryHandler) UpdateEquipment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.EquipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	equipment, err := h.directory.UpdateEquipment(c.UserContext(), principal, c.Params("id"), equipmentInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// DeleteEquipment DELETE /equipment/:id.
func (h *DirectoryHandler) DeleteEquipment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.directory.DeleteEquipment(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetEquipment GET /equipment/:id.
func (h *DirectoryHandler) GetEquipment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	equipment, err := h.directory.GetEquipment(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// ListEquipment GET /equipment.
func (h *DirectoryHandler) ListEquipment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	filter := repository.EquipmentFilter{}
	if institution := c.Query("institution_id"); institution != "" {
		filter.InstitutionID = &institution
	}
	if brand := c.Query("brand"); brand != "" {
		filter.Brand = &brand
	}
	page := parseIntParam(c.Query("page"), 1)
	pageSize := parseIntParam(c.Query("page_size"), 50)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	equipment, err := h.directory.ListEquipment(c.UserContext(), principal, filter)
	if err != nil {
		return err
	}
	items := make([]dto.EquipmentResponse, 0, len(equipment))
	for i := range equipment {
		items = append(items, equipmentResponse(&equipment[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ImportEquipment POST /equipment/import.
func (h *DirectoryHandler) ImportEquipment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file upload required", nil)
	}
	reader, err := file.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}
	defer reader.Close()

	summary, err := h.importer.ImportEquipment(c.UserContext(), principal, reader)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ImportResultResponse{
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
	}})
}

func institutionInput(req dto.InstitutionRequest) service.InstitutionInput {
	return service.InstitutionInput{
		Name:            req.Name,
		Address:         req.Address,
		City:            req.City,
		Phone:           req.Phone,
		Email:           req.Email,
		ContractManager: req.ContractManager,
		ClientCode:      req.ClientCode,
		TechnicianID:    req.TechnicianID,
	}
}

func institutionResponse(institution *domain.Institution) dto.InstitutionResponse {
	return dto.InstitutionResponse{
		ID:              institution.ID,
		Name:            institution.Name,
		Address:         institution.Address,
		City:            institution.City,
		Phone:           institution.Phone,
		Email:           institution.Email,
		ContractManager: institution.ContractManager,
		ClientCode:      institution.ClientCode,
		TechnicianID:    institution.TechnicianID,
		CreatedAt:       institution.CreatedAt,
	}
}

func equipmentInput(req dto.EquipmentRequest) service.EquipmentInput {
	return service.EquipmentInput{
		InstitutionID:    req.InstitutionID,
		Brand:            req.Brand,
		Model:            req.Model,
		Serial:           req.Serial,
		IPAddress:        req.IPAddress,
		PhysicalLocation: req.PhysicalLocation,
		LocationDetails:  req.LocationDetails,
	}
}

func equipmentResponse(equipment *domain.Equipment) dto.EquipmentResponse {
	return dto.EquipmentResponse{
		ID:               equipment.ID,
		InstitutionID:    equipment.InstitutionID,
		Brand:            equipment.Brand,
		Model:            equipment.Model,
		Serial:           equipment.Serial,
		IPAddress:        equipment.IPAddress,
		PhysicalLocation: equipment.PhysicalLocation,
		LocationDetails:  equipment.LocationDetails,
		CreatedAt:        equipment.CreatedAt,
	}
}
