package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.Create(c.UserContext(), principal, service.TicketCreateInput{
		InstitutionID: req.InstitutionID,
		EquipmentID:   req.EquipmentID,
		Priority:      req.Priority,
		RequestType:   req.RequestType,
		Description:   req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.lifecycle.List(c.UserContext(), principal, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.lifecycle.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicketEquipment GET /tickets/:id/equipment.
func (h *TicketsHandler) GetTicketEquipment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	equipment, err := h.lifecycle.EquipmentForTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// RecordArrival POST /tickets/:id/arrival.
func (h *TicketsHandler) RecordArrival(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.lifecycle.RecordArrival(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.Close(c.UserContext(), principal, c.Params("id"), service.TicketCloseInput{
		Diagnosis:         req.Diagnosis,
		Solution:          req.Solution,
		CounterBNFinal:    req.CounterBNFinal,
		CounterColorFinal: req.CounterColorFinal,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func requirePrincipal(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketQuery {
	query := service.TicketQuery{}
	if institution := c.Query("institution_id"); institution != "" {
		query.InstitutionID = &institution
	}
	if technician := c.Query("technician_id"); technician != "" {
		query.TechnicianID = &technician
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			query.Statuses = append(query.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			query.Priorities = append(query.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if from := parseTimeParam(c.Query("created_from")); from != nil {
		query.CreatedFrom = from
	}
	if to := parseTimeParam(c.Query("created_to")); to != nil {
		query.CreatedTo = to
	}
	page := parseIntParam(c.Query("page"), 1)
	pageSize := parseIntParam(c.Query("page_size"), 50)
	query.Offset = (page - 1) * pageSize
	query.Limit = pageSize
	return query
}

func parseTimeParam(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntParam(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                  ticket.ID,
		TicketNumber:        ticket.TicketNumber,
		InstitutionID:       ticket.InstitutionID,
		EquipmentID:         ticket.EquipmentID,
		TechnicianID:        ticket.TechnicianID,
		Priority:            ticket.Priority,
		Status:              ticket.Status,
		RequestType:         ticket.RequestType,
		Description:         ticket.Description,
		Diagnosis:           ticket.Diagnosis,
		Solution:            ticket.Solution,
		CreatedAt:           ticket.CreatedAt,
		ArrivalTime:         ticket.ArrivalTime,
		ClosedAt:            ticket.ClosedAt,
		ResponseTimeMinutes: ticket.ResponseTimeMinutes,
		CounterBNFinal:      ticket.CounterBNFinal,
		CounterColorFinal:   ticket.CounterColorFinal,
	}
}
