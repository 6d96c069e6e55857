package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
)

// PhaseEventRepository provides access to the append-only phase history log
type PhaseEventRepository struct {
	db *gorm.DB
}

// NewPhaseEventRepository creates a new phase event repository instance
func NewPhaseEventRepository(db *gorm.DB) *PhaseEventRepository {
	return &PhaseEventRepository{db: db}
}

// Append records one committed phase transition. The log has no update or
// delete path.
func (r *PhaseEventRepository) Append(ctx context.Context, event *models.PhaseEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByJobID returns the full transition history of a job, oldest first
func (r *PhaseEventRepository) ListByJobID(ctx context.Context, jobID uint) ([]models.PhaseEvent, error) {
	var events []models.PhaseEvent
	err := r.db.WithContext(ctx).
		Where(&models.PhaseEvent{JobID: jobID}).
		Order("at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list phase events: %w", err)
	}
	return events, nil
}
