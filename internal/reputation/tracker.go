// Package reputation maintains per-provider participation counters and the
// derived scores consumed by claim gating and dispute resolution.
package reputation

import (
	"context"
	"time"

	"cosmossdk.io/math"
	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/db/repos"
)

// Tracker mutates provider stats on the ledger's instruction, always inside
// the ledger's transaction
type Tracker struct{}

// NewTracker creates a new reputation tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordSuccess increments the completed counter and accumulates earnings
func (t *Tracker) RecordSuccess(ctx context.Context, tx *gorm.DB, providerID string, earnings int64) error {
	return t.update(ctx, tx, providerID, func(stats *models.ProviderStats) {
		stats.Completed++
		stats.TotalEarnings += earnings
	})
}

// RecordFailure increments the failed counter
func (t *Tracker) RecordFailure(ctx context.Context, tx *gorm.DB, providerID string) error {
	return t.update(ctx, tx, providerID, func(stats *models.ProviderStats) {
		stats.Failed++
	})
}

// RecordDisputeOutcome applies a dispute ruling to the provider's record. A
// lost dispute counts as a failure so the eligibility score reflects it.
func (t *Tracker) RecordDisputeOutcome(ctx context.Context, tx *gorm.DB, providerID string, providerWon bool) error {
	return t.update(ctx, tx, providerID, func(stats *models.ProviderStats) {
		if !providerWon {
			stats.DisputesLost++
			stats.Failed++
		}
	})
}

// RecordRating accumulates one quality rating (0-100) into the informational
// quality average. Ratings never feed the eligibility score.
func (t *Tracker) RecordRating(ctx context.Context, tx *gorm.DB, providerID string, rating int) error {
	return t.update(ctx, tx, providerID, func(stats *models.ProviderStats) {
		stats.RatingSum += int64(rating)
		stats.RatingCount++
	})
}

func (t *Tracker) update(ctx context.Context, tx *gorm.DB, providerID string, mutate func(*models.ProviderStats)) error {
	providers := repos.NewProviderRepository(tx)
	stats, err := providers.GetOrCreate(ctx, providerID)
	if err != nil {
		return err
	}

	mutate(stats)
	stats.Reputation = Score(stats.Completed, stats.Failed)
	stats.LastActiveAt = time.Now().UTC()

	return providers.Save(ctx, stats)
}

// Score recomputes the success-rate reputation from the raw counters:
// completed/(completed+failed) scaled to [0, ReputationScale]. A provider
// with no history scores ReputationNewcomer.
func Score(completed, failed int64) int64 {
	total := completed + failed
	if total == 0 {
		return models.ReputationNewcomer
	}
	score := math.NewInt(completed).
		MulRaw(models.ReputationScale).
		QuoRaw(total)
	return score.Int64()
}
