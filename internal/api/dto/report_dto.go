package dto

// ComplianceResponse summarizes SLA performance for a date range.
type ComplianceResponse struct {
	Total          int     `json:"total"`
	ClosedCount    int     `json:"closed_count"`
	BreachCount    int     `json:"breach_count"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// ImportResultResponse reports a bulk equipment import outcome.
type ImportResultResponse struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}
