// Package escrow implements the vault that custodies locked job funds.
//
// The vault never decides when money moves; it executes lock, release, split
// and refund instructions from the ledger, always inside the transaction the
// ledger opened, and guards each entry against double settlement. Value moves
// through the balance-ledger accounts table, the service's stand-in for
// whatever payment ledger a deployment integrates.
package escrow

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/db/repos"
	"github.com/meshcompute/clearing/internal/types"
)

// Payout is one recipient of a split release
type Payout struct {
	To     string
	Amount int64
}

// Vault performs all fund custody operations. It is stateless; every method
// operates on the transaction handle the ledger passes in so fund movement
// commits atomically with the phase transition that caused it.
type Vault struct{}

// NewVault creates a new escrow vault
func NewVault() *Vault {
	return &Vault{}
}

// Lock debits the client and creates the escrow entry for a job. Locking
// twice for the same job fails on the entry's unique job index.
func (v *Vault) Lock(ctx context.Context, tx *gorm.DB, job *models.Job) error {
	if job.Amount <= 0 {
		return types.ErrInvalidAmount.Wrapf("job %d: %d", job.ID, job.Amount)
	}

	accounts := repos.NewAccountRepository(tx)
	if err := accounts.Debit(ctx, job.ClientID, job.Amount); err != nil {
		return fmt.Errorf("failed to lock escrow funds: %w", err)
	}

	entry := &models.EscrowEntry{
		JobID:     job.ID,
		ClientID:  job.ClientID,
		Amount:    job.Amount,
		Remaining: job.Amount,
		Status:    models.EscrowStatusLocked,
		LockedAt:  time.Now().UTC(),
	}
	if err := repos.NewEscrowRepository(tx).Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create escrow entry: %w", err)
	}
	return nil
}

// Release pays the full remaining balance of a job's escrow to a single
// recipient and returns the amount moved
func (v *Vault) Release(ctx context.Context, tx *gorm.DB, jobID uint, to string) (int64, error) {
	entry, err := v.lockedEntry(ctx, tx, jobID)
	if err != nil {
		return 0, err
	}
	return entry.Remaining, v.settle(ctx, tx, entry, models.EscrowStatusReleased, []Payout{{To: to, Amount: entry.Remaining}})
}

// SplitRelease pays the remaining balance out to multiple recipients. The
// payouts must account for every remaining unit; anything else is refused
// before funds move.
func (v *Vault) SplitRelease(ctx context.Context, tx *gorm.DB, jobID uint, payouts []Payout) error {
	entry, err := v.lockedEntry(ctx, tx, jobID)
	if err != nil {
		return err
	}

	var total int64
	for _, p := range payouts {
		if p.Amount < 0 {
			return types.ErrInvalidAmount.Wrapf("payout to %s: %d", p.To, p.Amount)
		}
		total += p.Amount
	}
	if total != entry.Remaining {
		return types.ErrInvalidAmount.Wrapf("split total %d does not cover remaining %d", total, entry.Remaining)
	}

	return v.settle(ctx, tx, entry, models.EscrowStatusReleased, payouts)
}

// Refund returns the full remaining balance to a recipient (normally the
// client) and returns the amount moved
func (v *Vault) Refund(ctx context.Context, tx *gorm.DB, jobID uint, to string) (int64, error) {
	entry, err := v.lockedEntry(ctx, tx, jobID)
	if err != nil {
		return 0, err
	}
	return entry.Remaining, v.settle(ctx, tx, entry, models.EscrowStatusRefunded, []Payout{{To: to, Amount: entry.Remaining}})
}

// Reconcile verifies the primary safety invariant: the sum of still-locked
// escrow balances equals the sum of amounts of all jobs whose phase keeps
// funds locked. A mismatch is the engine's one fatal error class.
func (v *Vault) Reconcile(ctx context.Context, db *gorm.DB) error {
	escrowTotal, err := repos.NewEscrowRepository(db).SumRemaining(ctx)
	if err != nil {
		return err
	}
	jobTotal, err := repos.NewJobRepository(db).SumLockedAmounts(ctx)
	if err != nil {
		return err
	}
	if escrowTotal != jobTotal {
		return types.ErrReconcileMismatch.Wrapf("escrow holds %d, jobs require %d", escrowTotal, jobTotal)
	}
	return nil
}

func (v *Vault) lockedEntry(ctx context.Context, tx *gorm.DB, jobID uint) (*models.EscrowEntry, error) {
	entry, err := repos.NewEscrowRepository(tx).GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.EscrowStatusLocked {
		return nil, types.ErrAlreadyReleased.Wrapf("job %d escrow is %s", jobID, entry.Status)
	}
	return entry, nil
}

// settle zeroes the entry and credits the recipients. State is written before
// the credits so a failed credit aborts the surrounding transaction rather
// than leaving a spendable entry behind.
func (v *Vault) settle(ctx context.Context, tx *gorm.DB, entry *models.EscrowEntry, status models.EscrowStatus, payouts []Payout) error {
	now := time.Now().UTC()
	entry.Remaining = 0
	entry.Status = status
	switch status {
	case models.EscrowStatusReleased:
		entry.ReleasedAt = &now
	case models.EscrowStatusRefunded:
		entry.RefundedAt = &now
	}
	if err := repos.NewEscrowRepository(tx).Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to update escrow entry: %w", err)
	}

	accounts := repos.NewAccountRepository(tx)
	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		if err := accounts.Credit(ctx, p.To, p.Amount); err != nil {
			return fmt.Errorf("failed to pay out escrow: %w", err)
		}
	}
	return nil
}
