// Package handlers provides HTTP request handling
package handlers

// DisputeCreateParams defines the parameters for contesting a job outcome
type DisputeCreateParams struct {
	CallerID string `json:"caller_id" validate:"required"`
	JobID    uint   `json:"job_id" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// Validate validates the parameters for creating a dispute
func (p DisputeCreateParams) Validate() error {
	return validate.Struct(p)
}

// DisputeResolveParams defines the parameters for ruling on a dispute
type DisputeResolveParams struct {
	ArbiterID     string `json:"arbiter_id" validate:"required"`
	JobID         uint   `json:"job_id" validate:"required"`
	FavorProvider bool   `json:"favor_provider"`
}

// Validate validates the parameters for resolving a dispute
func (p DisputeResolveParams) Validate() error {
	return validate.Struct(p)
}
