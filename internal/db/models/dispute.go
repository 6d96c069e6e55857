package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DisputeOutcome represents the arbiter's ruling on a dispute
type DisputeOutcome int

// Dispute outcome constants
const (
	// DisputeOutcomeUnresolved indicates the dispute is still open
	DisputeOutcomeUnresolved DisputeOutcome = iota
	// DisputeOutcomeFavorProvider indicates the provider's result stood
	DisputeOutcomeFavorProvider
	// DisputeOutcomeFavorClient indicates the client was refunded
	DisputeOutcomeFavorClient
)

var disputeOutcomeNames = []string{"unresolved", "favor_provider", "favor_client"}

// ParseDisputeOutcome converts a string representation to DisputeOutcome
func ParseDisputeOutcome(str string) (DisputeOutcome, error) {
	for i, name := range disputeOutcomeNames {
		if name == str {
			return DisputeOutcome(i), nil
		}
	}
	return DisputeOutcomeUnresolved, fmt.Errorf("invalid dispute outcome: %s", str)
}

func (o DisputeOutcome) String() string {
	if int(o) < 0 || int(o) >= len(disputeOutcomeNames) {
		return disputeOutcomeNames[DisputeOutcomeUnresolved]
	}
	return disputeOutcomeNames[o]
}

// MarshalJSON implements the json.Marshaler interface for DisputeOutcome
func (o DisputeOutcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for DisputeOutcome
func (o *DisputeOutcome) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	outcome, err := ParseDisputeOutcome(str)
	if err != nil {
		return err
	}
	*o = outcome
	return nil
}

// Dispute records one contested job outcome. A job carries at most one
// dispute and the record is immutable once resolved.
type Dispute struct {
	gorm.Model
	JobID      uint           `json:"job_id" gorm:"not null;uniqueIndex"`
	Initiator  string         `json:"initiator" gorm:"not null"`
	Reason     string         `json:"reason" gorm:"type:text"`
	Resolved   bool           `json:"resolved" gorm:"not null;default:false;index"`
	ResolverID string         `json:"resolver_id,omitempty"`
	Outcome    DisputeOutcome `json:"outcome"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}
