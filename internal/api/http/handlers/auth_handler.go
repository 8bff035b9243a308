package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// AuthHandler exposes login and supervisor-only account administration.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	token, expiresAt, principal, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Principal:   principalResponse(principal),
	}})
}

// CreatePrincipal POST /auth/principals.
func (h *AuthHandler) CreatePrincipal(c *fiber.Ctx) error {
	actor, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreatePrincipalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	principal, err := h.auth.CreatePrincipal(c.UserContext(), actor, service.PrincipalInput{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		Password:      req.Password,
		Role:          req.Role,
		InstitutionID: req.InstitutionID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": principalResponse(principal)})
}

func principalResponse(principal *domain.Principal) dto.PrincipalResponse {
	return dto.PrincipalResponse{
		ID:            principal.ID,
		FullName:      principal.FullName,
		Email:         principal.Email,
		Phone:         principal.Phone,
		Role:          principal.Role,
		Status:        principal.Status,
		InstitutionID: principal.InstitutionID,
	}
}
