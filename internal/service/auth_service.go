package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/authz"
	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// AuthService is the identity edge: it authenticates credentials and issues
// tokens that the middleware later resolves into a Principal. Account
// administration is supervisor-only.
type AuthService struct {
	principals repository.PrincipalRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// PrincipalInput describes account creation payloads.
type PrincipalInput struct {
	FullName      string
	Email         string
	Phone         *string
	Password      string
	Role          domain.Role
	InstitutionID *string
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, principals repository.PrincipalRepository) *AuthService {
	return &AuthService{
		principals: principals,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, time.Time, *domain.Principal, error) {
	principal, err := s.principals.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return "", time.Time{}, nil, apperrors.MapError(err)
	}
	if principal.Status != domain.PrincipalStatusActive {
		return "", time.Time{}, nil, apperrors.NewUnauthorized("account suspended")
	}
	if err := auth.ComparePassword(principal.PasswordHash, password); err != nil {
		return "", time.Time{}, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokens.GenerateToken(principal.ID, principal.Role)
	if err != nil {
		return "", time.Time{}, nil, apperrors.MapError(err)
	}
	return token, expiresAt, principal, nil
}

// CreatePrincipal registers an account. Clients must carry an institution;
// other roles must not.
func (s *AuthService) CreatePrincipal(ctx context.Context, actor *domain.Principal, input PrincipalInput) (*domain.Principal, error) {
	if err := authDecision(actor, authz.KindPrincipal, authz.Scope{}, authz.OpCreate); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.FullName) == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("full_name, email, password required", nil)
	}
	switch input.Role {
	case domain.RoleClient:
		if input.InstitutionID == nil {
			return nil, apperrors.NewValidationError("client accounts require an institution", nil)
		}
	case domain.RoleTechnician, domain.RoleSupervisor:
		if input.InstitutionID != nil {
			return nil, apperrors.NewValidationError("only client accounts carry an institution", nil)
		}
	default:
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	principal := &domain.Principal{
		ID:            uuid.NewString(),
		FullName:      strings.TrimSpace(input.FullName),
		Email:         email,
		Phone:         input.Phone,
		PasswordHash:  hash,
		Role:          input.Role,
		Status:        domain.PrincipalStatusActive,
		InstitutionID: input.InstitutionID,
	}
	if err := withRetry(ctx, func(ctx context.Context) error {
		return s.principals.Create(ctx, principal)
	}); err != nil {
		return nil, err
	}
	return principal, nil
}
