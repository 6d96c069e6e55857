// Package directory answers provider eligibility questions for the ledger.
// The node/capacity directory is an external collaborator; this package
// defines its narrow contract plus the reference implementation that gates
// claims on the reputation score.
package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/repos"
	"github.com/meshcompute/clearing/internal/reputation"
	"github.com/meshcompute/clearing/internal/types"
)

// Directory reports whether a provider may claim jobs
type Directory interface {
	// IsEligible returns nil when the provider passes, ErrNotEligible otherwise
	IsEligible(ctx context.Context, providerID string) error
}

// ReputationGate is the default eligibility check: a provider must hold at
// least MinReputation on the success-rate scale. Providers with no history
// score as newcomers and pass any threshold at or below the newcomer score.
type ReputationGate struct {
	db            *gorm.DB
	minReputation int64
}

// NewReputationGate creates a reputation-threshold eligibility check
func NewReputationGate(db *gorm.DB, minReputation int64) *ReputationGate {
	return &ReputationGate{db: db, minReputation: minReputation}
}

// IsEligible implements Directory
func (g *ReputationGate) IsEligible(ctx context.Context, providerID string) error {
	stats, err := repos.NewProviderRepository(g.db).GetByProviderID(ctx, providerID)
	if errors.Is(err, types.ErrNotFound) {
		// No record yet: a newcomer's derived score applies
		if score := reputation.Score(0, 0); score < g.minReputation {
			return types.ErrNotEligible.Wrapf("provider %s: newcomer score %d below %d", providerID, score, g.minReputation)
		}
		return nil
	}
	if err != nil {
		return err
	}

	if stats.Reputation < g.minReputation {
		return types.ErrNotEligible.Wrapf("provider %s: reputation %d below %d", providerID, stats.Reputation, g.minReputation)
	}
	return nil
}
