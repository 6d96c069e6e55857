// Package deadline classifies jobs against their recorded time bounds. It is
// a stateless evaluator: callers supply now explicitly so behavior is
// deterministic and testable without a live clock.
package deadline

import (
	"time"

	"github.com/meshcompute/clearing/internal/db/models"
)

// IsExpired reports whether a job's deadline has passed while it was still
// waiting on a claim or completion. Only Pending and Claimed jobs expire;
// later phases have either delivered a result or already settled.
func IsExpired(job *models.Job, now time.Time) bool {
	if job.Phase != models.JobPhasePending && job.Phase != models.JobPhaseClaimed {
		return false
	}
	return !now.Before(job.Deadline)
}

// DisputeWindowOpen reports whether a dispute may still be raised against a
// completed job. The boundary instant itself is accepted.
func DisputeWindowOpen(job *models.Job, window time.Duration, now time.Time) bool {
	if job.CompletedAt == nil {
		return false
	}
	return !now.After(job.CompletedAt.Add(window))
}
