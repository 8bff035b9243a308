package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failure retried until success", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("connection reset")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("exhausted retries surface as upstream", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, func(ctx context.Context) error {
			attempts++
			return errors.New("connection reset")
		})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstream))
		assert.Equal(t, maxPersistenceAttempts, attempts)
	})

	t.Run("domain errors are not retried", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, func(ctx context.Context) error {
			attempts++
			return apperrors.NewValidationError("bad input", nil)
		})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
		assert.Equal(t, 1, attempts)
	})

	t.Run("precondition failures are not retried", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, func(ctx context.Context) error {
			attempts++
			return repository.ErrPreconditionFailed
		})
		assert.ErrorIs(t, err, repository.ErrPreconditionFailed)
		assert.Equal(t, 1, attempts)
	})

	t.Run("missing rows are not retried", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, func(ctx context.Context) error {
			attempts++
			return pgx.ErrNoRows
		})
		assert.ErrorIs(t, err, pgx.ErrNoRows)
		assert.Equal(t, 1, attempts)
	})

	t.Run("unique violations fail once as conflict", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, func(ctx context.Context) error {
			attempts++
			return &pgconn.PgError{Code: "23505", ConstraintName: "equipment_serial_key"}
		})
		assert.Equal(t, 1, attempts)
		assert.True(t, apperrors.IsConflict(err))
		assert.False(t, apperrors.IsCode(err, apperrors.CodeUpstream))
	})

	t.Run("foreign key violations fail once as consistency", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, func(ctx context.Context) error {
			attempts++
			return &pgconn.PgError{Code: "23503", ConstraintName: "tickets_equipment_id_fkey"}
		})
		assert.Equal(t, 1, attempts)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConsistency))
	})
}
