package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"

	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// maxPersistenceAttempts bounds internal retries of transient persistence
// failures. Conflict, validation, and not-found outcomes are never retried.
const maxPersistenceAttempts = 3

func retryable(err error) bool {
	if apperrors.IsTerminal(err) {
		return false
	}
	if errors.Is(err, repository.ErrPreconditionFailed) || errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	// Unique, foreign-key, and check violations are permanent; replaying the
	// same statement cannot succeed.
	if apperrors.IsIntegrityViolation(err) {
		return false
	}
	return true
}

// withRetry runs op, retrying transient persistence failures with exponential
// backoff up to the attempt bound, then surfaces UPSTREAM_UNAVAILABLE.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(maxPersistenceAttempts-1, retry.NewExponential(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if retryable(err) {
			return apperrors.NewUpstreamError(err)
		}
		if apperrors.IsIntegrityViolation(err) {
			return apperrors.MapError(err)
		}
	}
	return err
}
