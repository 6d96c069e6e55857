package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meshcompute/clearing/internal/db/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		failed    int64
		want      int64
	}{
		{
			name: "no history scores as newcomer",
			want: models.ReputationNewcomer,
		},
		{
			name:      "all successes",
			completed: 10,
			want:      models.ReputationScale,
		},
		{
			name:   "all failures",
			failed: 4,
			want:   0,
		},
		{
			name:      "even split",
			completed: 5,
			failed:    5,
			want:      500,
		},
		{
			name:      "two thirds truncates",
			completed: 2,
			failed:    1,
			want:      666,
		},
		{
			name:      "single failure among many successes",
			completed: 99,
			failed:    1,
			want:      990,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.completed, tt.failed))
		})
	}
}
