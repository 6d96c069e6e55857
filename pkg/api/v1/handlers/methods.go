// Package handlers provides HTTP request handling
package handlers

// RPC method constants for standardized method naming
const (
	// Job methods
	JobSubmit   = "job.submit"
	JobClaim    = "job.claim"
	JobStart    = "job.start"
	JobComplete = "job.complete"
	JobCancel   = "job.cancel"
	JobExpire   = "job.expire"
	JobRate     = "job.rate"

	// Dispute methods
	DisputeCreate  = "dispute.create"
	DisputeResolve = "dispute.resolve"
)

// IsJobMethod checks if the given method is a job operation
func IsJobMethod(method string) bool {
	switch method {
	case JobSubmit, JobClaim, JobStart, JobComplete, JobCancel, JobExpire, JobRate:
		return true
	default:
		return false
	}
}

// IsDisputeMethod checks if the given method is a dispute operation
func IsDisputeMethod(method string) bool {
	switch method {
	case DisputeCreate, DisputeResolve:
		return true
	default:
		return false
	}
}
