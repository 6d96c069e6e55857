package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/types"
)

// EscrowRepository provides access to escrow entry database operations
type EscrowRepository struct {
	db *gorm.DB
}

// NewEscrowRepository creates a new escrow repository instance
func NewEscrowRepository(db *gorm.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// Create creates a new escrow entry
func (r *EscrowRepository) Create(ctx context.Context, entry *models.EscrowEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Save persists all fields of an existing escrow entry
func (r *EscrowRepository) Save(ctx context.Context, entry *models.EscrowEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// GetByJobID retrieves the escrow entry for a job
func (r *EscrowRepository) GetByJobID(ctx context.Context, jobID uint) (*models.EscrowEntry, error) {
	var entry models.EscrowEntry
	err := r.db.WithContext(ctx).Where(&models.EscrowEntry{JobID: jobID}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrEscrowNotFound.Wrapf("job %d", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow entry: %w", err)
	}
	return &entry, nil
}

// SumRemaining returns the total still-locked balance across all entries
func (r *EscrowRepository) SumRemaining(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.EscrowEntry{}).
		Where("status = ?", models.EscrowStatusLocked).
		Select("COALESCE(SUM(remaining), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum escrow remaining: %w", err)
	}
	return total, nil
}
