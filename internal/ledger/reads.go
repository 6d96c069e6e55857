package ledger

import (
	"context"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/db/repos"
	"github.com/meshcompute/clearing/internal/types"
)

// GetJob returns a job by ID
func (l *Ledger) GetJob(ctx context.Context, jobID uint) (*models.Job, error) {
	return repos.NewJobRepository(l.db).GetByID(ctx, jobID)
}

// GetJobHistory returns the full phase transition log of a job, oldest first
func (l *Ledger) GetJobHistory(ctx context.Context, jobID uint) ([]models.PhaseEvent, error) {
	if _, err := repos.NewJobRepository(l.db).GetByID(ctx, jobID); err != nil {
		return nil, err
	}
	return repos.NewPhaseEventRepository(l.db).ListByJobID(ctx, jobID)
}

// ListJobs returns jobs visible to a participant, newest first. An empty
// participant lists across all parties.
func (l *Ledger) ListJobs(ctx context.Context, participant string, opts *models.ListOptions) ([]models.Job, error) {
	if opts == nil {
		opts = &models.ListOptions{Limit: models.DefaultLimit}
	}
	if opts.Limit <= 0 {
		opts.Limit = models.DefaultLimit
	}
	return repos.NewJobRepository(l.db).List(ctx, participant, opts)
}

// GetEscrow returns the escrow entry custodying a job's payment
func (l *Ledger) GetEscrow(ctx context.Context, jobID uint) (*models.EscrowEntry, error) {
	return repos.NewEscrowRepository(l.db).GetByJobID(ctx, jobID)
}

// GetDispute returns the dispute record for a job, resolved or not
func (l *Ledger) GetDispute(ctx context.Context, jobID uint) (*models.Dispute, error) {
	return repos.NewDisputeRepository(l.db).GetByJobID(ctx, jobID)
}

// GetProviderStats returns the participation record and derived scores of a
// provider
func (l *Ledger) GetProviderStats(ctx context.Context, providerID string) (*types.ProviderStatsView, error) {
	stats, err := repos.NewProviderRepository(l.db).GetByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return &types.ProviderStatsView{
		ProviderID:     stats.ProviderID,
		Completed:      stats.Completed,
		Failed:         stats.Failed,
		DisputesLost:   stats.DisputesLost,
		TotalEarnings:  stats.TotalEarnings,
		Reputation:     stats.Reputation,
		QualityAverage: stats.QualityAverage(),
		LastActiveAt:   stats.LastActiveAt,
	}, nil
}

// GetPlatformAnalytics aggregates marketplace state: jobs per phase, escrow
// outstanding, platform fees collected and dispute counts. Reads are not
// snapshotted against each other; the numbers are informational.
func (l *Ledger) GetPlatformAnalytics(ctx context.Context) (*types.PlatformAnalytics, error) {
	counts, err := repos.NewJobRepository(l.db).CountByPhase(ctx)
	if err != nil {
		return nil, err
	}

	outstanding, err := repos.NewEscrowRepository(l.db).SumRemaining(ctx)
	if err != nil {
		return nil, err
	}

	fees, err := repos.NewAccountRepository(l.db).Balance(ctx, models.PlatformAccountID)
	if err != nil {
		return nil, err
	}

	open, resolved, err := repos.NewDisputeRepository(l.db).CountByResolved(ctx)
	if err != nil {
		return nil, err
	}

	analytics := &types.PlatformAnalytics{
		JobsByPhase:       make(map[string]int64, len(counts)),
		EscrowOutstanding: outstanding,
		FeesCollected:     fees,
		DisputesOpen:      open,
		DisputesResolved:  resolved,
	}
	for phase, n := range counts {
		analytics.JobsByPhase[phase.String()] = n
		analytics.TotalJobs += n
	}
	return analytics, nil
}
