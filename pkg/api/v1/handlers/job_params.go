// Package handlers provides HTTP request handling
package handlers

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator for RPC parameters. It checks shape
// only; semantic validation (hashes, amounts, phases) belongs to the engine.
var validate = validator.New()

// JobSubmitParams defines the parameters for submitting a job
type JobSubmitParams struct {
	ClientID string `json:"client_id" validate:"required"`
	JobType  string `json:"job_type" validate:"required"`
	SpecHash string `json:"spec_hash" validate:"required"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`

	// Deadline is RFC 3339; it must lie in the future
	Deadline time.Time `json:"deadline" validate:"required"`

	// EstimatedDurationSeconds is the client's runtime estimate, informational
	EstimatedDurationSeconds int64 `json:"estimated_duration_seconds,omitempty" validate:"gte=0"`

	Priority int             `json:"priority,omitempty"`
	Private  bool            `json:"private,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Validate validates the parameters for submitting a job
func (p JobSubmitParams) Validate() error {
	return validate.Struct(p)
}

// JobClaimParams defines the parameters for claiming a job
type JobClaimParams struct {
	ProviderID string `json:"provider_id" validate:"required"`
	JobID      uint   `json:"job_id" validate:"required"`
}

// Validate validates the parameters for claiming a job
func (p JobClaimParams) Validate() error {
	return validate.Struct(p)
}

// JobStartParams defines the parameters for starting execution
type JobStartParams struct {
	ProviderID string `json:"provider_id" validate:"required"`
	JobID      uint   `json:"job_id" validate:"required"`
}

// Validate validates the parameters for starting execution
func (p JobStartParams) Validate() error {
	return validate.Struct(p)
}

// JobCompleteParams defines the parameters for completing a job
type JobCompleteParams struct {
	ProviderID   string `json:"provider_id" validate:"required"`
	JobID        uint   `json:"job_id" validate:"required"`
	OutputHash   string `json:"output_hash" validate:"required"`
	ProofHash    string `json:"proof_hash" validate:"required"`
	QualityScore int    `json:"quality_score" validate:"gte=0,lte=100"`
}

// Validate validates the parameters for completing a job
func (p JobCompleteParams) Validate() error {
	return validate.Struct(p)
}

// JobCancelParams defines the parameters for cancelling a job
type JobCancelParams struct {
	ClientID string `json:"client_id" validate:"required"`
	JobID    uint   `json:"job_id" validate:"required"`
}

// Validate validates the parameters for cancelling a job
func (p JobCancelParams) Validate() error {
	return validate.Struct(p)
}

// JobExpireParams defines the parameters for expiring a job past its deadline
type JobExpireParams struct {
	JobID uint `json:"job_id" validate:"required"`
}

// Validate validates the parameters for expiring a job
func (p JobExpireParams) Validate() error {
	return validate.Struct(p)
}

// JobRateParams defines the parameters for rating a completed job
type JobRateParams struct {
	ClientID string `json:"client_id" validate:"required"`
	JobID    uint   `json:"job_id" validate:"required"`
	Rating   int    `json:"rating" validate:"gte=0,lte=100"`
}

// Validate validates the parameters for rating a job
func (p JobRateParams) Validate() error {
	return validate.Struct(p)
}
