package sla

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// DefaultThresholdMinutes is the contractual maximum technician response time.
const DefaultThresholdMinutes = 240

// Calculator derives response durations and breach status from ticket
// timestamps. It is stateless and safe for concurrent use.
type Calculator struct {
	thresholdMinutes int64
}

// NewCalculator builds a calculator; a non-positive threshold falls back to
// the contractual default.
func NewCalculator(thresholdMinutes int64) *Calculator {
	if thresholdMinutes <= 0 {
		thresholdMinutes = DefaultThresholdMinutes
	}
	return &Calculator{thresholdMinutes: thresholdMinutes}
}

// ThresholdMinutes returns the configured SLA limit.
func (c *Calculator) ThresholdMinutes() int64 {
	return c.thresholdMinutes
}

// ComputeResponseMinutes returns the floor of elapsed whole minutes between
// creation and arrival. A negative result indicates clock skew and is
// rejected.
func (c *Calculator) ComputeResponseMinutes(createdAt, arrivalTime time.Time) (int64, error) {
	elapsed := arrivalTime.Sub(createdAt)
	if elapsed < 0 {
		return 0, apperrors.NewValidationError("arrival precedes creation", map[string]any{
			"created_at":   createdAt,
			"arrival_time": arrivalTime,
		})
	}
	return int64(elapsed / time.Minute), nil
}

// IsBreached reports whether a response time exceeds the SLA threshold.
// Exactly meeting the threshold is compliant.
func (c *Calculator) IsBreached(minutes int64) bool {
	return minutes > c.thresholdMinutes
}

// Compliance summarizes SLA performance over a ticket set.
type Compliance struct {
	Total          int
	ClosedCount    int
	BreachCount    int
	ComplianceRate float64
}

// Aggregate restricts tickets to those created within [start, end] (and the
// institution, when given) and computes compliance. An empty set counts as
// fully compliant. Tickets without a recorded response time cannot have
// breached yet and are counted as compliant.
func (c *Calculator) Aggregate(tickets []domain.Ticket, start, end time.Time, institutionID *string) Compliance {
	result := Compliance{}
	for i := range tickets {
		t := &tickets[i]
		if t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
			continue
		}
		if institutionID != nil && t.InstitutionID != *institutionID {
			continue
		}
		result.Total++
		if t.Status == domain.TicketStatusClosed {
			result.ClosedCount++
		}
		if t.ResponseTimeMinutes != nil && c.IsBreached(*t.ResponseTimeMinutes) {
			result.BreachCount++
		}
	}
	if result.Total == 0 {
		result.ComplianceRate = 100
		return result
	}
	result.ComplianceRate = float64(result.Total-result.BreachCount) / float64(result.Total) * 100
	return result
}
