// Package dispute manages the contested-outcome sub-state of a job: raising
// a dispute inside the time window and applying an arbiter's ruling. Fund
// movement is always delegated back to the escrow vault; phase transitions
// stay with the ledger.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/db/repos"
	"github.com/meshcompute/clearing/internal/deadline"
	"github.com/meshcompute/clearing/internal/escrow"
	"github.com/meshcompute/clearing/internal/reputation"
	"github.com/meshcompute/clearing/internal/types"
)

// Arbiter validates and records dispute state changes
type Arbiter struct {
	vault   *escrow.Vault
	tracker *reputation.Tracker
	window  time.Duration
}

// NewArbiter creates a dispute arbiter with the configured dispute window
func NewArbiter(vault *escrow.Vault, tracker *reputation.Tracker, window time.Duration) *Arbiter {
	return &Arbiter{vault: vault, tracker: tracker, window: window}
}

// Raise opens a dispute against a completed job. The caller must be a party
// to the job, the job must not already be disputed, and now must fall inside
// the dispute window (the boundary instant is accepted).
func (a *Arbiter) Raise(ctx context.Context, tx *gorm.DB, job *models.Job, initiator, reason string, now time.Time) (*models.Dispute, error) {
	if initiator != job.ClientID && initiator != job.ProviderID {
		return nil, types.ErrUnauthorized.Wrapf("%s is not a party to job %d", initiator, job.ID)
	}
	if job.Phase != models.JobPhaseCompleted {
		return nil, types.ErrInvalidTransition.Wrapf("job %d is %s, disputes require completed", job.ID, job.Phase)
	}
	if job.Disputed {
		return nil, types.ErrAlreadyDisputed.Wrapf("job %d", job.ID)
	}
	if !deadline.DisputeWindowOpen(job, a.window, now) {
		return nil, types.ErrWindowClosed.Wrapf("job %d completed at %s, window %s", job.ID, job.CompletedAt.Format(time.RFC3339), a.window)
	}

	record := &models.Dispute{
		JobID:     job.ID,
		Initiator: initiator,
		Reason:    reason,
		Outcome:   models.DisputeOutcomeUnresolved,
	}
	if err := repos.NewDisputeRepository(tx).Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create dispute: %w", err)
	}
	return record, nil
}

// Resolve applies an arbiter ruling to the active dispute of a job and
// returns the resolved record plus any amount refunded to the client.
//
// A ruling for the client refunds whatever escrow is still unreleased. Since
// completion settles payment immediately, the usual case is that nothing is
// left in the vault; the provider's share then becomes a reversal obligation,
// clawed back through the balance ledger right away when the provider balance
// covers it. The platform fee is not reversed.
func (a *Arbiter) Resolve(ctx context.Context, tx *gorm.DB, job *models.Job, resolverID string, favorProvider bool) (*models.Dispute, int64, error) {
	record, err := repos.NewDisputeRepository(tx).GetActiveByJobID(ctx, job.ID)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()
	record.Resolved = true
	record.ResolverID = resolverID
	record.ResolvedAt = &now
	if favorProvider {
		record.Outcome = models.DisputeOutcomeFavorProvider
	} else {
		record.Outcome = models.DisputeOutcomeFavorClient
	}
	if err := repos.NewDisputeRepository(tx).Save(ctx, record); err != nil {
		return nil, 0, fmt.Errorf("failed to resolve dispute: %w", err)
	}

	if err := a.tracker.RecordDisputeOutcome(ctx, tx, job.ProviderID, favorProvider); err != nil {
		return nil, 0, err
	}

	if favorProvider {
		return record, 0, nil
	}

	refunded, err := a.refundClient(ctx, tx, job, record)
	if err != nil {
		return nil, 0, err
	}
	return record, refunded, nil
}

// refundClient returns still-unreleased escrow to the client, falling back to
// a reversal obligation when payment already went out
func (a *Arbiter) refundClient(ctx context.Context, tx *gorm.DB, job *models.Job, record *models.Dispute) (int64, error) {
	refunded, err := a.vault.Refund(ctx, tx, job.ID, job.ClientID)
	if err == nil {
		return refunded, nil
	}
	if !errors.Is(err, types.ErrAlreadyReleased) && !errors.Is(err, types.ErrEscrowNotFound) {
		return 0, err
	}

	// Payment was already released on completion; claw back the provider's
	// share. The obligation row survives even when the immediate debit fails,
	// so an underfunded provider still owes the reversal.
	obligation := &models.ReversalObligation{
		JobID:      job.ID,
		DisputeID:  record.ID,
		ProviderID: job.ProviderID,
		ClientID:   job.ClientID,
		Amount:     job.Amount - job.FeeCharged,
	}

	accounts := repos.NewAccountRepository(tx)
	debitErr := accounts.Debit(ctx, job.ProviderID, obligation.Amount)
	if debitErr == nil {
		if err := accounts.Credit(ctx, job.ClientID, obligation.Amount); err != nil {
			return 0, err
		}
		now := time.Now().UTC()
		obligation.Settled = true
		obligation.SettledAt = &now
	} else if !errors.Is(debitErr, types.ErrInsufficientFunds) {
		return 0, debitErr
	}

	if err := tx.WithContext(ctx).Create(obligation).Error; err != nil {
		return 0, fmt.Errorf("failed to record reversal obligation: %w", err)
	}

	if obligation.Settled {
		return obligation.Amount, nil
	}
	return 0, nil
}
