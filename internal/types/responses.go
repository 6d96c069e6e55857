package types

import "time"

// PaginationResponse represents pagination information for list endpoints
type PaginationResponse struct {
	// Total number of items returned on this page
	Total int `json:"total"`

	// Current page number (1-based)
	Page int `json:"page"`

	// Maximum number of items per page
	Limit int `json:"limit"`

	// Number of items skipped from the beginning of the result set
	Offset int `json:"offset"`
}

// ListResponse defines a generic response structure for listing resources
type ListResponse[T any] struct {
	// Array of resource items
	Rows []T `json:"rows"`

	// Pagination information for the result set
	Pagination PaginationResponse `json:"pagination"`
}

// SettlementResponse reports the outcome of an operation that moved escrowed
// funds
type SettlementResponse struct {
	// Job the settlement applies to
	JobID uint `json:"job_id"`

	// Amount moved, in micro-credits
	Amount int64 `json:"amount"`

	// Resulting job phase
	Phase string `json:"phase"`
}

// ProviderStatsView is the read-model of a provider's participation record,
// with the derived quality average included
type ProviderStatsView struct {
	ProviderID     string    `json:"provider_id"`
	Completed      int64     `json:"completed"`
	Failed         int64     `json:"failed"`
	DisputesLost   int64     `json:"disputes_lost"`
	TotalEarnings  int64     `json:"total_earnings"`
	Reputation     int64     `json:"reputation"`
	QualityAverage int64     `json:"quality_average"`
	LastActiveAt   time.Time `json:"last_active_at"`
}

// PlatformAnalytics aggregates marketplace-wide counters for operators
type PlatformAnalytics struct {
	// TotalJobs is the number of jobs ever submitted
	TotalJobs int64 `json:"total_jobs"`

	// JobsByPhase counts jobs per current phase
	JobsByPhase map[string]int64 `json:"jobs_by_phase"`

	// EscrowOutstanding is the total still locked in escrow, in micro-credits
	EscrowOutstanding int64 `json:"escrow_outstanding"`

	// FeesCollected is the platform fee account balance, in micro-credits
	FeesCollected int64 `json:"fees_collected"`

	DisputesOpen     int64 `json:"disputes_open"`
	DisputesResolved int64 `json:"disputes_resolved"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	// Error message describing what went wrong
	Error string `json:"error"`

	// Optional additional details about the error
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	// Optional data returned by the operation
	Data interface{} `json:"data,omitempty"`
}
