package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Principal   PrincipalResponse `json:"principal"`
}

// CreatePrincipalRequest payload.
type CreatePrincipalRequest struct {
	FullName      string      `json:"full_name"`
	Email         string      `json:"email"`
	Phone         *string     `json:"phone"`
	Password      string      `json:"password"`
	Role          domain.Role `json:"role"`
	InstitutionID *string     `json:"institution_id"`
}

// PrincipalResponse wire shape; never carries the password hash.
type PrincipalResponse struct {
	ID            string                 `json:"id"`
	FullName      string                 `json:"full_name"`
	Email         string                 `json:"email"`
	Phone         *string                `json:"phone,omitempty"`
	Role          domain.Role            `json:"role"`
	Status        domain.PrincipalStatus `json:"status"`
	InstitutionID *string                `json:"institution_id,omitempty"`
}
