package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meshcompute/clearing/internal/db/models"
)

func TestIsExpired(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		phase models.JobPhase
		now   time.Time
		want  bool
	}{
		{
			name:  "pending before deadline",
			phase: models.JobPhasePending,
			now:   deadline.Add(-time.Second),
			want:  false,
		},
		{
			name:  "pending at the deadline instant",
			phase: models.JobPhasePending,
			now:   deadline,
			want:  true,
		},
		{
			name:  "pending after deadline",
			phase: models.JobPhasePending,
			now:   deadline.Add(time.Second),
			want:  true,
		},
		{
			name:  "claimed after deadline",
			phase: models.JobPhaseClaimed,
			now:   deadline.Add(time.Hour),
			want:  true,
		},
		{
			name:  "running jobs do not expire",
			phase: models.JobPhaseRunning,
			now:   deadline.Add(time.Hour),
			want:  false,
		},
		{
			name:  "completed jobs do not expire",
			phase: models.JobPhaseCompleted,
			now:   deadline.Add(time.Hour),
			want:  false,
		},
		{
			name:  "cancelled jobs do not expire",
			phase: models.JobPhaseCancelled,
			now:   deadline.Add(time.Hour),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &models.Job{Phase: tt.phase, Deadline: deadline}
			assert.Equal(t, tt.want, IsExpired(job, tt.now))
		})
	}
}

func TestDisputeWindowOpen(t *testing.T) {
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	job := &models.Job{Phase: models.JobPhaseCompleted, CompletedAt: &completedAt}

	assert.True(t, DisputeWindowOpen(job, window, completedAt))
	assert.True(t, DisputeWindowOpen(job, window, completedAt.Add(time.Hour)))

	// Boundary instant is accepted; one step past it is not
	assert.True(t, DisputeWindowOpen(job, window, completedAt.Add(window)))
	assert.False(t, DisputeWindowOpen(job, window, completedAt.Add(window).Add(time.Nanosecond)))

	// A job that never completed has no window
	assert.False(t, DisputeWindowOpen(&models.Job{Phase: models.JobPhaseRunning}, window, completedAt))
}
