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

// ProviderRepository provides access to provider stats database operations
type ProviderRepository struct {
	db *gorm.DB
}

// NewProviderRepository creates a new provider repository instance
func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// GetOrCreate fetches the stats row for a provider, creating a newcomer
// record on first claim
func (r *ProviderRepository) GetOrCreate(ctx context.Context, providerID string) (*models.ProviderStats, error) {
	var stats models.ProviderStats
	err := r.db.WithContext(ctx).
		Where(&models.ProviderStats{ProviderID: providerID}).
		Attrs(models.ProviderStats{
			Reputation:   models.ReputationNewcomer,
			LastActiveAt: time.Now().UTC(),
		}).
		FirstOrCreate(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get provider stats for %s: %w", providerID, err)
	}
	return &stats, nil
}

// GetByProviderID retrieves the stats row for a provider
func (r *ProviderRepository) GetByProviderID(ctx context.Context, providerID string) (*models.ProviderStats, error) {
	var stats models.ProviderStats
	err := r.db.WithContext(ctx).Where(&models.ProviderStats{ProviderID: providerID}).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound.Wrapf("provider %s", providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider stats: %w", err)
	}
	return &stats, nil
}

// Save persists all fields of an existing stats row
func (r *ProviderRepository) Save(ctx context.Context, stats *models.ProviderStats) error {
	return r.db.WithContext(ctx).Save(stats).Error
}
