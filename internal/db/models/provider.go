package models

import (
	"time"

	"gorm.io/gorm"
)

// Reputation scale constants. Scores are recomputed from counters on every
// update, never incrementally drifted.
const (
	// ReputationScale is the upper bound of the reputation range
	ReputationScale = 1000
	// ReputationNewcomer is the starting score for a provider with no
	// history, so a single early failure does not permanently brand them
	ReputationNewcomer = 500
)

// ProviderStats is the per-provider participation record, created lazily on
// first claim and mutated only by the ledger at phase transitions.
type ProviderStats struct {
	gorm.Model
	ProviderID    string `json:"provider_id" gorm:"not null;uniqueIndex"`
	Completed     int64  `json:"completed" gorm:"not null;default:0"`
	Failed        int64  `json:"failed" gorm:"not null;default:0"`
	DisputesLost  int64  `json:"disputes_lost" gorm:"not null;default:0"`
	TotalEarnings int64  `json:"total_earnings" gorm:"not null;default:0"`

	// Reputation is the success-rate score on [0, ReputationScale], used to
	// gate claim eligibility
	Reputation int64 `json:"reputation" gorm:"not null"`

	// RatingSum/RatingCount back the informational quality average (0-100),
	// which is deliberately kept separate from Reputation
	RatingSum   int64 `json:"rating_sum" gorm:"not null;default:0"`
	RatingCount int64 `json:"rating_count" gorm:"not null;default:0"`

	LastActiveAt time.Time `json:"last_active_at"`
}

// QualityAverage returns the mean quality rating, or 0 when never rated
func (p *ProviderStats) QualityAverage() int64 {
	if p.RatingCount == 0 {
		return 0
	}
	return p.RatingSum / p.RatingCount
}
