// Package ledger implements the job state machine and is the system of
// record for the marketplace. Every external operation enters here; the
// ledger validates the caller and current phase, instructs the vault, the
// reputation tracker and the dispute arbiter, and commits the new phase
// atomically with any fund movement. No other component writes a job's phase.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cosmossdk.io/math"
	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/db/repos"
	"github.com/meshcompute/clearing/internal/deadline"
	"github.com/meshcompute/clearing/internal/directory"
	"github.com/meshcompute/clearing/internal/dispute"
	"github.com/meshcompute/clearing/internal/escrow"
	"github.com/meshcompute/clearing/internal/events"
	"github.com/meshcompute/clearing/internal/logger"
	"github.com/meshcompute/clearing/internal/reputation"
	"github.com/meshcompute/clearing/internal/types"
)

// Fee arithmetic denominator: fees are configured in basis points
const bpsDenominator = 10000

// SystemActor is recorded in the phase log for transitions nobody owns, such
// as deadline expiry
const SystemActor = "system"

// Config carries the deployment-time knobs of the engine
type Config struct {
	// FeeBps is the platform fee in basis points (250 = 2.5%)
	FeeBps int64

	// DisputeWindow is how long after completion a dispute may be raised
	DisputeWindow time.Duration

	// Arbiters lists the participant IDs holding the arbiter capability
	Arbiters []string

	// MinClaimReputation gates providers below this score out of claiming
	MinClaimReputation int64
}

// DefaultConfig returns the stock engine configuration
func DefaultConfig() Config {
	return Config{
		FeeBps:             250,
		DisputeWindow:      24 * time.Hour,
		MinClaimReputation: 250,
	}
}

// Ledger orchestrates all mutations of the job, escrow, provider-stats and
// dispute tables
type Ledger struct {
	db        *gorm.DB
	vault     *escrow.Vault
	tracker   *reputation.Tracker
	arbiter   *dispute.Arbiter
	directory directory.Directory
	publisher events.Publisher
	cfg       Config
	arbiters  map[string]struct{}
	locks     keyedMutex
}

// New creates a ledger over the given database. A nil directory falls back to
// the reputation gate; a nil publisher disables event emission.
func New(db *gorm.DB, cfg Config, dir directory.Directory, publisher events.Publisher) *Ledger {
	vault := escrow.NewVault()
	tracker := reputation.NewTracker()

	if dir == nil {
		dir = directory.NewReputationGate(db, cfg.MinClaimReputation)
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	arbiters := make(map[string]struct{}, len(cfg.Arbiters))
	for _, id := range cfg.Arbiters {
		arbiters[id] = struct{}{}
	}

	return &Ledger{
		db:        db,
		vault:     vault,
		tracker:   tracker,
		arbiter:   dispute.NewArbiter(vault, tracker, cfg.DisputeWindow),
		directory: dir,
		publisher: publisher,
		cfg:       cfg,
		arbiters:  arbiters,
	}
}

// Vault exposes the escrow vault for reconciliation checks
func (l *Ledger) Vault() *escrow.Vault {
	return l.vault
}

// SubmitParams carries the inputs of a job submission
type SubmitParams struct {
	ClientID          string
	JobType           models.JobType
	SpecHash          string
	EstimatedDuration time.Duration
	Amount            int64
	Deadline          time.Time
	Priority          int
	Private           bool
	Metadata          json.RawMessage
}

// SubmitJob validates a submission, locks the payment in escrow and creates
// the job in Pending
func (l *Ledger) SubmitJob(ctx context.Context, params SubmitParams) (*models.Job, error) {
	if params.Amount <= 0 {
		return nil, types.ErrInvalidAmount.Wrapf("%d", params.Amount)
	}
	if err := types.ValidateContentHash(params.SpecHash); err != nil {
		return nil, err
	}
	if !models.ValidJobType(params.JobType) {
		return nil, types.ErrInvalidJobType.Wrapf("%q", params.JobType)
	}
	if !params.Deadline.After(time.Now()) {
		return nil, types.ErrInvalidDeadline.Wrapf("%s", params.Deadline.Format(time.RFC3339))
	}

	job := &models.Job{
		ClientID:          params.ClientID,
		JobType:           params.JobType,
		Amount:            params.Amount,
		SpecHash:          params.SpecHash,
		Deadline:          params.Deadline.UTC(),
		EstimatedDuration: params.EstimatedDuration,
		Priority:          params.Priority,
		Private:           params.Private,
		Metadata:          params.Metadata,
		Phase:             models.JobPhasePending,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := repos.NewJobRepository(tx).Create(ctx, job); err != nil {
			return err
		}
		if err := l.vault.Lock(ctx, tx, job); err != nil {
			return err
		}
		return l.logPhase(ctx, tx, job.ID, models.JobPhaseUnknown, models.JobPhasePending, params.ClientID)
	})
	if err != nil {
		return nil, err
	}

	l.emit("job.submitted", job, models.JobPhaseUnknown, params.ClientID, job.Amount)
	return job, nil
}

// ClaimJob assigns a pending job to an eligible provider. Under concurrent
// claims exactly one caller wins; the rest observe ErrAlreadyClaimed.
func (l *Ledger) ClaimJob(ctx context.Context, providerID string, jobID uint, now time.Time) (*models.Job, error) {
	unlock := l.locks.lock(jobID)
	defer unlock()

	var job *models.Job
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = l.loadMutable(ctx, tx, jobID)
		if err != nil {
			return err
		}

		switch {
		case job.Phase == models.JobPhasePending:
			// proceed
		case job.ProviderID != "":
			return types.ErrAlreadyClaimed.Wrapf("job %d held by %s", jobID, job.ProviderID)
		default:
			return types.ErrInvalidTransition.Wrapf("claim on %s job %d", job.Phase, jobID)
		}

		if providerID == job.ClientID {
			return types.ErrUnauthorized.Wrapf("client cannot claim own job %d", jobID)
		}
		if deadline.IsExpired(job, now) {
			return types.ErrInvalidTransition.Wrapf("job %d deadline passed", jobID)
		}
		if err := l.directory.IsEligible(ctx, providerID); err != nil {
			return err
		}

		claimedAt := now.UTC()
		if err := repos.NewJobRepository(tx).ClaimPending(ctx, jobID, providerID, claimedAt); err != nil {
			return err
		}
		job.Phase = models.JobPhaseClaimed
		job.ProviderID = providerID
		job.ClaimedAt = &claimedAt

		// Stats row is created lazily on first claim
		if _, err := repos.NewProviderRepository(tx).GetOrCreate(ctx, providerID); err != nil {
			return err
		}

		return l.logPhase(ctx, tx, jobID, models.JobPhasePending, models.JobPhaseClaimed, providerID)
	})
	if err != nil {
		return nil, err
	}

	l.emit("job.claimed", job, models.JobPhasePending, providerID, 0)
	return job, nil
}

// StartExecution moves a claimed job to Running
func (l *Ledger) StartExecution(ctx context.Context, providerID string, jobID uint) (*models.Job, error) {
	unlock := l.locks.lock(jobID)
	defer unlock()

	var job *models.Job
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = l.loadMutable(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if job.ProviderID != providerID {
			return types.ErrUnauthorized.Wrapf("%s is not the provider of job %d", providerID, jobID)
		}
		if job.Phase != models.JobPhaseClaimed {
			return types.ErrInvalidTransition.Wrapf("start on %s job %d", job.Phase, jobID)
		}

		now := time.Now().UTC()
		job.Phase = models.JobPhaseRunning
		job.StartedAt = &now
		if err := repos.NewJobRepository(tx).Save(ctx, job); err != nil {
			return err
		}
		return l.logPhase(ctx, tx, jobID, models.JobPhaseClaimed, models.JobPhaseRunning, providerID)
	})
	if err != nil {
		return nil, err
	}

	l.emit("job.started", job, models.JobPhaseClaimed, providerID, 0)
	return job, nil
}

// CompleteJob records the provider's result, splits the escrow between the
// provider and the platform fee account, and settles the job. The release and
// the phase transition commit together or not at all.
func (l *Ledger) CompleteJob(ctx context.Context, providerID string, jobID uint, outputHash, proofHash string, qualityScore int) (*models.Job, error) {
	if err := types.ValidateQualityScore(qualityScore); err != nil {
		return nil, err
	}
	if err := types.ValidateContentHash(outputHash); err != nil {
		return nil, err
	}
	if err := types.ValidateContentHash(proofHash); err != nil {
		return nil, err
	}

	unlock := l.locks.lock(jobID)
	defer unlock()

	var job *models.Job
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = l.loadMutable(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if job.ProviderID != providerID {
			return types.ErrUnauthorized.Wrapf("%s is not the provider of job %d", providerID, jobID)
		}
		if job.Phase != models.JobPhaseRunning {
			return types.ErrInvalidTransition.Wrapf("complete on %s job %d", job.Phase, jobID)
		}

		fee := platformFee(job.Amount, l.cfg.FeeBps)
		providerAmount := job.Amount - fee
		if err := l.vault.SplitRelease(ctx, tx, jobID, []escrow.Payout{
			{To: providerID, Amount: providerAmount},
			{To: models.PlatformAccountID, Amount: fee},
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		job.Phase = models.JobPhaseCompleted
		job.OutputHash = outputHash
		job.ProofHash = proofHash
		job.QualityScore = qualityScore
		job.FeeCharged = fee
		job.CompletedAt = &now
		if err := repos.NewJobRepository(tx).Save(ctx, job); err != nil {
			return err
		}

		if err := l.tracker.RecordSuccess(ctx, tx, providerID, providerAmount); err != nil {
			return err
		}
		if err := l.logPhase(ctx, tx, jobID, models.JobPhaseRunning, models.JobPhaseCompleted, providerID); err != nil {
			return err
		}
		return l.vault.Reconcile(ctx, tx)
	})
	if err != nil {
		return nil, l.haltOnMismatch(ctx, jobID, err)
	}

	l.emit("job.completed", job, models.JobPhaseRunning, providerID, job.Amount-job.FeeCharged)
	return job, nil
}

// CancelJob refunds and cancels a still-pending job; only the client may
// cancel. Returns the refunded amount.
func (l *Ledger) CancelJob(ctx context.Context, clientID string, jobID uint) (int64, error) {
	unlock := l.locks.lock(jobID)
	defer unlock()

	var job *models.Job
	var refunded int64
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = l.loadMutable(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if job.ClientID != clientID {
			return types.ErrUnauthorized.Wrapf("%s is not the client of job %d", clientID, jobID)
		}
		if job.Phase != models.JobPhasePending {
			return types.ErrInvalidTransition.Wrapf("cancel on %s job %d", job.Phase, jobID)
		}

		refunded, err = l.vault.Refund(ctx, tx, jobID, clientID)
		if err != nil {
			return err
		}

		job.Phase = models.JobPhaseCancelled
		if err := repos.NewJobRepository(tx).Save(ctx, job); err != nil {
			return err
		}
		if err := l.logPhase(ctx, tx, jobID, models.JobPhasePending, models.JobPhaseCancelled, clientID); err != nil {
			return err
		}
		return l.vault.Reconcile(ctx, tx)
	})
	if err != nil {
		return 0, l.haltOnMismatch(ctx, jobID, err)
	}

	l.emit("job.cancelled", job, models.JobPhasePending, clientID, refunded)
	return refunded, nil
}

// ExpireJob settles a job whose deadline passed before completion. Callable
// by anyone; the client is refunded in full, and a provider that sat on a
// claim is charged a failure.
func (l *Ledger) ExpireJob(ctx context.Context, jobID uint, now time.Time) (*models.Job, error) {
	unlock := l.locks.lock(jobID)
	defer unlock()

	var job *models.Job
	var fromPhase models.JobPhase
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = l.loadMutable(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if !deadline.IsExpired(job, now) {
			return types.ErrNotExpired.Wrapf("job %d (%s, deadline %s)", jobID, job.Phase, job.Deadline.Format(time.RFC3339))
		}

		fromPhase = job.Phase
		if fromPhase == models.JobPhaseClaimed {
			if err := l.tracker.RecordFailure(ctx, tx, job.ProviderID); err != nil {
				return err
			}
		}

		if _, err := l.vault.Refund(ctx, tx, jobID, job.ClientID); err != nil {
			return err
		}

		job.Phase = models.JobPhaseExpired
		if err := repos.NewJobRepository(tx).Save(ctx, job); err != nil {
			return err
		}
		if err := l.logPhase(ctx, tx, jobID, fromPhase, models.JobPhaseExpired, SystemActor); err != nil {
			return err
		}
		return l.vault.Reconcile(ctx, tx)
	})
	if err != nil {
		return nil, l.haltOnMismatch(ctx, jobID, err)
	}

	l.emit("job.expired", job, fromPhase, SystemActor, job.Amount)
	return job, nil
}

// CreateDispute contests a completed job's outcome within the dispute window
func (l *Ledger) CreateDispute(ctx context.Context, callerID string, jobID uint, reason string, now time.Time) (*models.Dispute, error) {
	unlock := l.locks.lock(jobID)
	defer unlock()

	var job *models.Job
	var record *models.Dispute
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = l.loadMutable(ctx, tx, jobID)
		if err != nil {
			return err
		}

		record, err = l.arbiter.Raise(ctx, tx, job, callerID, reason, now)
		if err != nil {
			return err
		}

		job.Phase = models.JobPhaseDisputed
		job.Disputed = true
		if err := repos.NewJobRepository(tx).Save(ctx, job); err != nil {
			return err
		}
		return l.logPhase(ctx, tx, jobID, models.JobPhaseCompleted, models.JobPhaseDisputed, callerID)
	})
	if err != nil {
		return nil, err
	}

	l.emit("dispute.created", job, models.JobPhaseCompleted, callerID, 0)
	return record, nil
}

// ResolveDispute applies an arbiter ruling and settles the job
func (l *Ledger) ResolveDispute(ctx context.Context, arbiterID string, jobID uint, favorProvider bool) (*models.Dispute, error) {
	if _, ok := l.arbiters[arbiterID]; !ok {
		return nil, types.ErrUnauthorized.Wrapf("%s does not hold the arbiter capability", arbiterID)
	}

	unlock := l.locks.lock(jobID)
	defer unlock()

	var job *models.Job
	var record *models.Dispute
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = l.loadMutable(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if job.Phase != models.JobPhaseDisputed {
			return types.ErrNoActiveDispute.Wrapf("job %d is %s", jobID, job.Phase)
		}

		record, _, err = l.arbiter.Resolve(ctx, tx, job, arbiterID, favorProvider)
		if err != nil {
			return err
		}

		job.Phase = models.JobPhaseResolved
		if err := repos.NewJobRepository(tx).Save(ctx, job); err != nil {
			return err
		}
		if err := l.logPhase(ctx, tx, jobID, models.JobPhaseDisputed, models.JobPhaseResolved, arbiterID); err != nil {
			return err
		}
		return l.vault.Reconcile(ctx, tx)
	})
	if err != nil {
		return nil, l.haltOnMismatch(ctx, jobID, err)
	}

	l.emit("dispute.resolved", job, models.JobPhaseDisputed, arbiterID, 0)
	return record, nil
}

// RateJobQuality records the client's quality rating for a completed job.
// The rating feeds the provider's informational quality average, never the
// eligibility score.
func (l *Ledger) RateJobQuality(ctx context.Context, raterID string, jobID uint, rating int) error {
	if err := types.ValidateQualityScore(rating); err != nil {
		return err
	}

	unlock := l.locks.lock(jobID)
	defer unlock()

	return l.db.Transaction(func(tx *gorm.DB) error {
		job, err := l.loadMutable(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if job.ClientID != raterID {
			return types.ErrUnauthorized.Wrapf("%s is not the client of job %d", raterID, jobID)
		}
		if job.Phase != models.JobPhaseCompleted && job.Phase != models.JobPhaseResolved {
			return types.ErrInvalidTransition.Wrapf("rate on %s job %d", job.Phase, jobID)
		}

		job.QualityScore = rating
		if err := repos.NewJobRepository(tx).Save(ctx, job); err != nil {
			return err
		}
		return l.tracker.RecordRating(ctx, tx, job.ProviderID, rating)
	})
}

// loadMutable fetches a job for mutation, refusing jobs halted after an
// invariant failure
func (l *Ledger) loadMutable(ctx context.Context, tx *gorm.DB, jobID uint) (*models.Job, error) {
	job, err := repos.NewJobRepository(tx).GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Halted {
		return nil, types.ErrJobHalted.Wrapf("job %d", jobID)
	}
	return job, nil
}

// logPhase appends one row to the phase history inside the caller's
// transaction
func (l *Ledger) logPhase(ctx context.Context, tx *gorm.DB, jobID uint, from, to models.JobPhase, actor string) error {
	return repos.NewPhaseEventRepository(tx).Append(ctx, &models.PhaseEvent{
		JobID:     jobID,
		FromPhase: from,
		ToPhase:   to,
		Actor:     actor,
		At:        time.Now().UTC(),
	})
}

// haltOnMismatch marks a job halted when its operation failed the
// reconciliation check. The failed transaction already rolled back; the halt
// flag prevents further mutation until manual resolution.
func (l *Ledger) haltOnMismatch(ctx context.Context, jobID uint, err error) error {
	if !errors.Is(err, types.ErrReconcileMismatch) {
		return err
	}

	logger.ErrorWithFields("escrow reconciliation mismatch, halting job", map[string]interface{}{
		"job_id": jobID,
		"error":  err.Error(),
	})
	haltErr := l.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", jobID).
		Update("halted", true).Error
	if haltErr != nil {
		logger.Errorf("failed to halt job %d: %v", jobID, haltErr)
	}
	return err
}

// emit publishes a lifecycle event after commit; delivery failures are logged
// and never fail the operation
func (l *Ledger) emit(eventType string, job *models.Job, from models.JobPhase, actor string, amount int64) {
	event := events.NewEvent(eventType, job.ID, from, job.Phase, actor, amount)
	if err := l.publisher.Publish(context.Background(), event); err != nil {
		logger.WarnWithFields("failed to publish lifecycle event", map[string]interface{}{
			"event":  eventType,
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

// platformFee computes the fee split out to the platform account at
// settlement, in basis points of the gross amount
func platformFee(amount, feeBps int64) int64 {
	return math.NewInt(amount).MulRaw(feeBps).QuoRaw(bpsDenominator).Int64()
}
