// Package repos provides access to the persisted tables of the clearing engine
package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/types"
)

// JobRepository provides access to job-related database operations
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job in the database
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Save persists all fields of an existing job
func (r *JobRepository) Save(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// GetByID retrieves a job by its ID
func (r *JobRepository) GetByID(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).First(&job, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound.Wrapf("job %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ClaimPending atomically assigns a provider to a pending, unclaimed job.
// The conditional update is the cross-process claim guard: of two concurrent
// claims exactly one matches the WHERE clause, the other sees zero rows.
func (r *JobRepository) ClaimPending(ctx context.Context, id uint, providerID string, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND phase = ? AND provider_id = ?", id, models.JobPhasePending, "").
		Updates(map[string]interface{}{
			"phase":       models.JobPhaseClaimed,
			"provider_id": providerID,
			"claimed_at":  now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to claim job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return types.ErrAlreadyClaimed.Wrapf("job %d", id)
	}
	return nil
}

// List returns jobs visible to a participant (as client or provider), newest
// first. An empty participant lists all jobs.
func (r *JobRepository) List(ctx context.Context, participant string, opts *models.ListOptions) ([]models.Job, error) {
	var jobs []models.Job

	db := r.db.WithContext(ctx).Model(&models.Job{})
	if participant != "" {
		db = db.Where("client_id = ? OR provider_id = ?", participant, participant)
	}
	if opts.Phase != nil {
		db = db.Where("phase = ?", *opts.Phase)
	}

	err := db.Limit(opts.Limit).Offset(opts.Offset).
		Order(models.JobCreatedAtField + " DESC").
		Find(&jobs).Error
	return jobs, err
}

// CountByPhase returns the number of jobs per phase
func (r *JobRepository) CountByPhase(ctx context.Context) (map[models.JobPhase]int64, error) {
	type row struct {
		Phase models.JobPhase
		N     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select("phase, count(*) as n").
		Group("phase").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by phase: %w", err)
	}

	counts := make(map[models.JobPhase]int64, len(rows))
	for _, r := range rows {
		counts[r.Phase] = r.N
	}
	return counts, nil
}

// SumLockedAmounts returns the total amount of all jobs whose escrow should
// still be outstanding, i.e. whose phase keeps funds locked
func (r *JobRepository) SumLockedAmounts(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("phase IN ?", []models.JobPhase{models.JobPhasePending, models.JobPhaseClaimed, models.JobPhaseRunning}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum locked amounts: %w", err)
	}
	return total, nil
}
