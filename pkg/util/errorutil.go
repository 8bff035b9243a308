package util

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL class 23 covers integrity-constraint violations (unique, foreign
// key, check). These are permanent failures of the submitted data, never of
// the connection.
const (
	pgIntegrityClass  = "23"
	pgUniqueViolation = "23505"
)

// IsIntegrityViolation reports whether err is a PostgreSQL
// integrity-constraint violation.
func IsIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, pgIntegrityClass)
}

// Error codes for the workflow core. Validation, authorization, transition,
// and consistency failures are terminal; CONFLICT means the caller lost an
// optimistic-concurrency race and must re-fetch; UPSTREAM_UNAVAILABLE is the
// only retryable kind.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeAuthorization     = "AUTHORIZATION_DENIED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeTerminalState     = "TERMINAL_STATE"
	CodeConsistency       = "CONSISTENCY_VIOLATION"
	CodeConflict          = "CONFLICT"
	CodeUpstream          = "UPSTREAM_UNAVAILABLE"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewAuthorizationError(message string) error {
	return NewDomainError(CodeAuthorization, message, http.StatusForbidden, nil)
}

func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidTransition, message, http.StatusConflict, details)
}

func NewTerminalState(message string) error {
	return NewDomainError(CodeTerminalState, message, http.StatusConflict, nil)
}

func NewConsistencyError(message string, details map[string]any) error {
	return NewDomainError(CodeConsistency, message, http.StatusUnprocessableEntity, details)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewUpstreamError(err error) error {
	return &DomainError{
		Code:       CodeUpstream,
		Message:    "persistence temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err is a DomainError with the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// IsConflict reports a lost optimistic-concurrency race.
func IsConflict(err error) bool { return IsCode(err, CodeConflict) }

// IsTerminal reports a non-retryable failure: any DomainError other than
// UPSTREAM_UNAVAILABLE.
func IsTerminal(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code != CodeUpstream
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, pgIntegrityClass) {
		details := map[string]any{"constraint": pgErr.ConstraintName}
		if pgErr.Code == pgUniqueViolation {
			return &DomainError{
				Code:       CodeConflict,
				Message:    "duplicate value for unique field",
				HTTPStatus: http.StatusConflict,
				Details:    details,
				Err:        err,
			}
		}
		return &DomainError{
			Code:       CodeConsistency,
			Message:    "submitted data violates a database constraint",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    details,
			Err:        err,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
