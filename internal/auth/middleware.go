package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

const principalKey = "auth_principal"

// Middleware validates bearer tokens and resolves the acting Principal from
// the principals table. Everything past this point receives the principal as
// an explicit parameter; there is no ambient current-user state.
type Middleware struct {
	tokens     *TokenManager
	principals repository.PrincipalRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, principals repository.PrincipalRepository) *Middleware {
	return &Middleware{tokens: tokens, principals: principals}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal, err := m.principals.GetByID(c.Context(), claims.PrincipalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("principal not found")
		}
		return apperrors.MapError(err)
	}
	if principal.Status != domain.PrincipalStatusActive {
		return apperrors.NewUnauthorized("principal suspended")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated actor.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}
