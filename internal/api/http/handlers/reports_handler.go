package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// ReportsHandler exposes audit report and SLA compliance endpoints.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// GetAuditReport GET /reports/audit.
func (h *ReportsHandler) GetAuditReport(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	start, end, institutionID, err := parseReportRange(c)
	if err != nil {
		return err
	}
	rows, err := h.reports.BuildReport(c.UserContext(), principal, start, end, institutionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows})
}

// GetCompliance GET /reports/compliance.
func (h *ReportsHandler) GetCompliance(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	start, end, institutionID, err := parseReportRange(c)
	if err != nil {
		return err
	}
	result, err := h.reports.Compliance(c.UserContext(), principal, start, end, institutionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ComplianceResponse{
		Total:          result.Total,
		ClosedCount:    result.ClosedCount,
		BreachCount:    result.BreachCount,
		ComplianceRate: result.ComplianceRate,
	}})
}

func parseReportRange(c *fiber.Ctx) (time.Time, time.Time, *string, error) {
	start := parseTimeParam(c.Query("start"))
	end := parseTimeParam(c.Query("end"))
	if start == nil || end == nil {
		return time.Time{}, time.Time{}, nil, apperrors.NewValidationError("start and end required (RFC3339)", nil)
	}
	if end.Before(*start) {
		return time.Time{}, time.Time{}, nil, apperrors.NewValidationError("end precedes start", nil)
	}
	var institutionID *string
	if institution := c.Query("institution_id"); institution != "" {
		institutionID = &institution
	}
	return *start, *end, institutionID, nil
}
