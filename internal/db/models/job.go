package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JobCreatedAtField is the database field name for the job creation timestamp
const JobCreatedAtField = "created_at"

// JobPhase represents the current state of a job in its lifecycle
type JobPhase int

// Job phase constants. Transitions between phases are enforced exclusively by
// the ledger; nothing else writes the phase column.
const (
	// JobPhaseUnknown represents an unknown or invalid phase
	JobPhaseUnknown JobPhase = iota
	// JobPhasePending indicates the job is funded and waiting to be claimed
	JobPhasePending
	// JobPhaseClaimed indicates a provider has claimed the job
	JobPhaseClaimed
	// JobPhaseRunning indicates the provider has started execution
	JobPhaseRunning
	// JobPhaseCompleted indicates the provider delivered a result and payment was settled
	JobPhaseCompleted
	// JobPhaseCancelled indicates the client cancelled before a claim; funds refunded
	JobPhaseCancelled
	// JobPhaseExpired indicates the deadline passed before completion; funds refunded
	JobPhaseExpired
	// JobPhaseDisputed indicates a party contested the completed result
	JobPhaseDisputed
	// JobPhaseResolved indicates an arbiter settled the dispute
	JobPhaseResolved
)

var jobPhaseNames = []string{
	"unknown",
	"pending",
	"claimed",
	"running",
	"completed",
	"cancelled",
	"expired",
	"disputed",
	"resolved",
}

// ParseJobPhase converts a string representation of a job phase to JobPhase type
func ParseJobPhase(str string) (JobPhase, error) {
	for i, name := range jobPhaseNames {
		if name == str {
			return JobPhase(i), nil
		}
	}
	return JobPhaseUnknown, fmt.Errorf("invalid job phase: %s", str)
}

func (p JobPhase) String() string {
	if int(p) < 0 || int(p) >= len(jobPhaseNames) {
		return jobPhaseNames[JobPhaseUnknown]
	}
	return jobPhaseNames[p]
}

// Terminal reports whether no further transitions can leave this phase.
// Completed is terminal only once the dispute window has closed, which is a
// temporal property the ledger checks separately.
func (p JobPhase) Terminal() bool {
	switch p {
	case JobPhaseCancelled, JobPhaseExpired, JobPhaseResolved:
		return true
	default:
		return false
	}
}

// MarshalJSON implements the json.Marshaler interface for JobPhase
func (p JobPhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for JobPhase
func (p *JobPhase) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	phase, err := ParseJobPhase(str)
	if err != nil {
		return err
	}

	*p = phase
	return nil
}

// JobType is the enumerated workload category of a job
type JobType string

// Supported workload categories
const (
	JobTypeTraining  JobType = "training"
	JobTypeInference JobType = "inference"
	JobTypeRender    JobType = "render"
	JobTypeGeneric   JobType = "generic"
)

// ValidJobType reports whether t is a known workload category
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeTraining, JobTypeInference, JobTypeRender, JobTypeGeneric:
		return true
	default:
		return false
	}
}

// Job represents one submitted unit of work and is the system of record for
// its lifecycle. Rows are never deleted, only transitioned to a terminal
// phase.
type Job struct {
	gorm.Model
	ClientID   string   `json:"client_id" gorm:"not null;index"`
	ProviderID string   `json:"provider_id,omitempty" gorm:"index"` // empty until claimed
	JobType    JobType  `json:"job_type" gorm:"not null;index"`
	Amount     int64    `json:"amount" gorm:"not null"` // micro-credits locked in escrow
	Phase      JobPhase `json:"phase" gorm:"index"`

	// Opaque content fingerprints; never interpreted by the engine
	SpecHash   string `json:"spec_hash" gorm:"not null"`
	ProofHash  string `json:"proof_hash,omitempty"`
	OutputHash string `json:"output_hash,omitempty"`

	Deadline          time.Time       `json:"deadline" gorm:"not null;index"`
	EstimatedDuration time.Duration   `json:"estimated_duration,omitempty"`
	Priority          int             `json:"priority"`
	Private           bool            `json:"private"`
	Metadata          json.RawMessage `json:"metadata,omitempty" gorm:"type:jsonb"`

	QualityScore int  `json:"quality_score"` // 0-100, set on completion or rating
	Disputed     bool `json:"disputed" gorm:"not null;default:false"`

	// FeeCharged is the platform fee split out at settlement; zero until the
	// job completes
	FeeCharged int64 `json:"fee_charged"`

	// Halted marks a job whose escrow failed reconciliation; all further
	// mutation is refused until manual resolution
	Halted bool `json:"halted" gorm:"not null;default:false"`

	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
}
