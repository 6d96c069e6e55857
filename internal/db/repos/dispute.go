package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/types"
)

// DisputeRepository provides access to dispute database operations
type DisputeRepository struct {
	db *gorm.DB
}

// NewDisputeRepository creates a new dispute repository instance
func NewDisputeRepository(db *gorm.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create creates a new dispute record
func (r *DisputeRepository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

// Save persists all fields of an existing dispute
func (r *DisputeRepository) Save(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Save(dispute).Error
}

// GetActiveByJobID retrieves the unresolved dispute for a job
func (r *DisputeRepository) GetActiveByJobID(ctx context.Context, jobID uint) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where(&models.Dispute{JobID: jobID}).
		Where("resolved = ?", false).
		First(&dispute).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNoActiveDispute.Wrapf("job %d", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return &dispute, nil
}

// GetByJobID retrieves the dispute for a job regardless of resolution state
func (r *DisputeRepository) GetByJobID(ctx context.Context, jobID uint) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).Where(&models.Dispute{JobID: jobID}).First(&dispute).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNoActiveDispute.Wrapf("job %d", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return &dispute, nil
}

// CountByResolved returns the number of open and resolved disputes
func (r *DisputeRepository) CountByResolved(ctx context.Context) (open, resolved int64, err error) {
	err = r.db.WithContext(ctx).Model(&models.Dispute{}).
		Where("resolved = ?", false).Count(&open).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count open disputes: %w", err)
	}
	err = r.db.WithContext(ctx).Model(&models.Dispute{}).
		Where("resolved = ?", true).Count(&resolved).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count resolved disputes: %w", err)
	}
	return open, resolved, nil
}
