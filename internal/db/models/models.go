// Package models defines the persisted records of the clearing engine
package models

const (
	// DefaultLimit is the max number of rows that are retrieved from the DB per listing API call
	DefaultLimit = 50

	// PlatformAccountID is the balance-ledger account that collects platform fees
	PlatformAccountID = "platform"
)

// ListOptions represents pagination and filtering options for list operations
type ListOptions struct {
	Limit  int `json:"limit"`  // Number of items to return
	Offset int `json:"offset"` // Number of items to skip

	// Phase filters jobs by their current phase when set
	Phase *JobPhase `json:"phase,omitempty"`
}
