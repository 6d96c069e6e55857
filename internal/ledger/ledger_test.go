package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/db/repos"
	"github.com/meshcompute/clearing/internal/reputation"
	"github.com/meshcompute/clearing/internal/types"
)

func (s *LedgerTestSuite) TestSubmitJobLocksEscrow() {
	s.fund(testClient, 5000)

	job, err := s.ledger.SubmitJob(s.ctx, SubmitParams{
		ClientID: testClient,
		JobType:  models.JobTypeTraining,
		SpecHash: testSpecHash,
		Amount:   1000,
		Deadline: time.Now().Add(time.Hour),
	})
	s.Require().NoError(err)
	s.Equal(models.JobPhasePending, job.Phase)

	// Payment left the client and sits in escrow
	s.Equal(int64(4000), s.balance(testClient))

	entry, err := s.ledger.GetEscrow(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.EscrowStatusLocked, entry.Status)
	s.Equal(int64(1000), entry.Remaining)

	events, err := s.ledger.GetJobHistory(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(models.JobPhasePending, events[0].ToPhase)

	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestSubmitJobValidation() {
	s.fund(testClient, 5000)

	params := SubmitParams{
		ClientID: testClient,
		JobType:  models.JobTypeGeneric,
		SpecHash: testSpecHash,
		Amount:   1000,
		Deadline: time.Now().Add(time.Hour),
	}

	bad := params
	bad.Amount = 0
	_, err := s.ledger.SubmitJob(s.ctx, bad)
	s.True(errors.Is(err, types.ErrInvalidAmount))

	bad = params
	bad.SpecHash = "not-hex"
	_, err = s.ledger.SubmitJob(s.ctx, bad)
	s.True(errors.Is(err, types.ErrInvalidHash))

	bad = params
	bad.JobType = "mining"
	_, err = s.ledger.SubmitJob(s.ctx, bad)
	s.True(errors.Is(err, types.ErrInvalidJobType))

	bad = params
	bad.Deadline = time.Now().Add(-time.Minute)
	_, err = s.ledger.SubmitJob(s.ctx, bad)
	s.True(errors.Is(err, types.ErrInvalidDeadline))
}

func (s *LedgerTestSuite) TestSubmitJobUnfundedClient() {
	_, err := s.ledger.SubmitJob(s.ctx, SubmitParams{
		ClientID: "broke-client",
		JobType:  models.JobTypeGeneric,
		SpecHash: testSpecHash,
		Amount:   1000,
		Deadline: time.Now().Add(time.Hour),
	})
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrInsufficientFunds))

	// Nothing was created
	jobs, err := s.ledger.ListJobs(s.ctx, "broke-client", nil)
	s.Require().NoError(err)
	s.Empty(jobs)
}

func (s *LedgerTestSuite) TestFullLifecycleSettlement() {
	job := s.runToCompleted(1000)

	s.Equal(models.JobPhaseCompleted, job.Phase)
	s.Equal(int64(25), job.FeeCharged) // 250 bps of 1000
	s.NotNil(job.CompletedAt)

	// Provider got the net amount, the platform its fee, the client nothing back
	s.Equal(int64(975), s.balance(testProvider))
	s.Equal(int64(25), s.balance(models.PlatformAccountID))
	s.Equal(int64(0), s.balance(testClient))

	entry, err := s.ledger.GetEscrow(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.EscrowStatusReleased, entry.Status)
	s.Equal(int64(0), entry.Remaining)

	stats, err := s.ledger.GetProviderStats(s.ctx, testProvider)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Completed)
	s.Equal(int64(975), stats.TotalEarnings)
	s.Equal(int64(models.ReputationScale), stats.Reputation)

	events, err := s.ledger.GetJobHistory(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 4)
	s.Equal(models.JobPhaseCompleted, events[3].ToPhase)

	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestClaimGuards() {
	job := s.submitJob(1000)

	// The client cannot claim its own job
	_, err := s.ledger.ClaimJob(s.ctx, testClient, job.ID, time.Now())
	s.True(errors.Is(err, types.ErrUnauthorized))

	// A claim after the deadline is refused
	_, err = s.ledger.ClaimJob(s.ctx, testProvider, job.ID, time.Now().Add(2*time.Hour))
	s.True(errors.Is(err, types.ErrInvalidTransition))

	// A provider with a failing record is gated out
	tracker := reputation.NewTracker()
	s.Require().NoError(tracker.RecordFailure(s.ctx, s.db, "bad-provider"))
	_, err = s.ledger.ClaimJob(s.ctx, "bad-provider", job.ID, time.Now())
	s.True(errors.Is(err, types.ErrNotEligible))

	// A second claim after a successful one conflicts
	_, err = s.ledger.ClaimJob(s.ctx, testProvider, job.ID, time.Now())
	s.Require().NoError(err)
	_, err = s.ledger.ClaimJob(s.ctx, "provider-2", job.ID, time.Now())
	s.True(errors.Is(err, types.ErrAlreadyClaimed))
}

func (s *LedgerTestSuite) TestConcurrentClaimsExactlyOneWins() {
	job := s.submitJob(1000)

	const claimants = 8
	var wg sync.WaitGroup
	errs := make([]error, claimants)

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			providerID := "provider-" + string(rune('a'+n))
			_, errs[n] = s.ledger.ClaimJob(s.ctx, providerID, job.ID, time.Now())
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, types.ErrAlreadyClaimed):
			conflicts++
		default:
			s.Failf("unexpected claim error", "%v", err)
		}
	}
	s.Equal(1, wins)
	s.Equal(claimants-1, conflicts)

	got, err := s.ledger.GetJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobPhaseClaimed, got.Phase)
	s.NotEmpty(got.ProviderID)
}

func (s *LedgerTestSuite) TestStartGuards() {
	job := s.submitJob(1000)

	// Cannot start an unclaimed job
	_, err := s.ledger.StartExecution(s.ctx, testProvider, job.ID)
	s.True(errors.Is(err, types.ErrUnauthorized))

	_, err = s.ledger.ClaimJob(s.ctx, testProvider, job.ID, time.Now())
	s.Require().NoError(err)

	// Only the claiming provider may start
	_, err = s.ledger.StartExecution(s.ctx, "provider-2", job.ID)
	s.True(errors.Is(err, types.ErrUnauthorized))

	_, err = s.ledger.StartExecution(s.ctx, testProvider, job.ID)
	s.Require().NoError(err)

	// Starting twice conflicts
	_, err = s.ledger.StartExecution(s.ctx, testProvider, job.ID)
	s.True(errors.Is(err, types.ErrInvalidTransition))
}

func (s *LedgerTestSuite) TestCompleteGuards() {
	job := s.submitJob(1000)
	_, err := s.ledger.ClaimJob(s.ctx, testProvider, job.ID, time.Now())
	s.Require().NoError(err)

	// Completion requires the job to be running
	_, err = s.ledger.CompleteJob(s.ctx, testProvider, job.ID, testOutputHash, testProofHash, 90)
	s.True(errors.Is(err, types.ErrInvalidTransition))

	_, err = s.ledger.StartExecution(s.ctx, testProvider, job.ID)
	s.Require().NoError(err)

	// Wrong provider is refused
	_, err = s.ledger.CompleteJob(s.ctx, "provider-2", job.ID, testOutputHash, testProofHash, 90)
	s.True(errors.Is(err, types.ErrUnauthorized))

	// Malformed result fingerprints are refused before any state change
	_, err = s.ledger.CompleteJob(s.ctx, testProvider, job.ID, "zz", testProofHash, 90)
	s.True(errors.Is(err, types.ErrInvalidHash))
	_, err = s.ledger.CompleteJob(s.ctx, testProvider, job.ID, testOutputHash, testProofHash, 101)
	s.True(errors.Is(err, types.ErrInvalidScore))

	_, err = s.ledger.CompleteJob(s.ctx, testProvider, job.ID, testOutputHash, testProofHash, 90)
	s.Require().NoError(err)

	// A second completion cannot release funds again
	_, err = s.ledger.CompleteJob(s.ctx, testProvider, job.ID, testOutputHash, testProofHash, 90)
	s.True(errors.Is(err, types.ErrInvalidTransition))
	s.Equal(int64(975), s.balance(testProvider))

	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestCancelRefundsInFull() {
	job := s.submitJob(1000)

	// Only the client may cancel
	_, err := s.ledger.CancelJob(s.ctx, testProvider, job.ID)
	s.True(errors.Is(err, types.ErrUnauthorized))

	refunded, err := s.ledger.CancelJob(s.ctx, testClient, job.ID)
	s.Require().NoError(err)
	s.Equal(int64(1000), refunded)
	s.Equal(int64(1000), s.balance(testClient))

	got, err := s.ledger.GetJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobPhaseCancelled, got.Phase)

	// Cancelling again conflicts and moves nothing
	_, err = s.ledger.CancelJob(s.ctx, testClient, job.ID)
	s.True(errors.Is(err, types.ErrInvalidTransition))
	s.Equal(int64(1000), s.balance(testClient))

	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestCancelAfterClaimRefused() {
	job := s.submitJob(1000)
	_, err := s.ledger.ClaimJob(s.ctx, testProvider, job.ID, time.Now())
	s.Require().NoError(err)

	_, err = s.ledger.CancelJob(s.ctx, testClient, job.ID)
	s.True(errors.Is(err, types.ErrInvalidTransition))

	entry, err := s.ledger.GetEscrow(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.EscrowStatusLocked, entry.Status)
}

func (s *LedgerTestSuite) TestExpirePendingJob() {
	job := s.submitJob(1000)
	past := time.Now().Add(2 * time.Hour)

	// Before the deadline expiry is refused
	_, err := s.ledger.ExpireJob(s.ctx, job.ID, time.Now())
	s.True(errors.Is(err, types.ErrNotExpired))

	expired, err := s.ledger.ExpireJob(s.ctx, job.ID, past)
	s.Require().NoError(err)
	s.Equal(models.JobPhaseExpired, expired.Phase)
	s.Equal(int64(1000), s.balance(testClient))

	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestExpireClaimedJobPenalizesProvider() {
	job := s.submitJob(1000)
	_, err := s.ledger.ClaimJob(s.ctx, testProvider, job.ID, time.Now())
	s.Require().NoError(err)

	_, err = s.ledger.ExpireJob(s.ctx, job.ID, time.Now().Add(2*time.Hour))
	s.Require().NoError(err)

	// The client is made whole and the provider carries the failure
	s.Equal(int64(1000), s.balance(testClient))
	stats, err := s.ledger.GetProviderStats(s.ctx, testProvider)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Failed)
	s.Equal(int64(0), stats.Reputation)

	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestDisputeFavorProvider() {
	job := s.runToCompleted(1000)

	record, err := s.ledger.CreateDispute(s.ctx, testClient, job.ID, "output looks wrong", time.Now())
	s.Require().NoError(err)
	s.False(record.Resolved)

	got, err := s.ledger.GetJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobPhaseDisputed, got.Phase)

	record, err = s.ledger.ResolveDispute(s.ctx, testArbiter, job.ID, true)
	s.Require().NoError(err)
	s.True(record.Resolved)
	s.Equal(models.DisputeOutcomeFavorProvider, record.Outcome)

	// The provider keeps the payment and its record is unblemished
	s.Equal(int64(975), s.balance(testProvider))
	stats, err := s.ledger.GetProviderStats(s.ctx, testProvider)
	s.Require().NoError(err)
	s.Equal(int64(0), stats.DisputesLost)

	got, err = s.ledger.GetJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobPhaseResolved, got.Phase)

	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestDisputeFavorClientClawsBackPayment() {
	job := s.runToCompleted(1000)

	_, err := s.ledger.CreateDispute(s.ctx, testClient, job.ID, "results unusable", time.Now())
	s.Require().NoError(err)

	record, err := s.ledger.ResolveDispute(s.ctx, testArbiter, job.ID, false)
	s.Require().NoError(err)
	s.Equal(models.DisputeOutcomeFavorClient, record.Outcome)

	// The provider's share is reversed; the platform fee is not
	s.Equal(int64(0), s.balance(testProvider))
	s.Equal(int64(975), s.balance(testClient))
	s.Equal(int64(25), s.balance(models.PlatformAccountID))

	var obligation models.ReversalObligation
	s.Require().NoError(s.db.Where("job_id = ?", job.ID).First(&obligation).Error)
	s.True(obligation.Settled)
	s.Equal(int64(975), obligation.Amount)

	stats, err := s.ledger.GetProviderStats(s.ctx, testProvider)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.DisputesLost)
	s.Equal(int64(1), stats.Failed)
	s.Equal(int64(500), stats.Reputation) // 1 completed, 1 failed

	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestDisputeGuards() {
	job := s.submitJob(1000)

	// Disputes require a completed job
	_, err := s.ledger.CreateDispute(s.ctx, testClient, job.ID, "too slow", time.Now())
	s.True(errors.Is(err, types.ErrInvalidTransition))

	_, err = s.ledger.ClaimJob(s.ctx, testProvider, job.ID, time.Now())
	s.Require().NoError(err)
	_, err = s.ledger.StartExecution(s.ctx, testProvider, job.ID)
	s.Require().NoError(err)
	_, err = s.ledger.CompleteJob(s.ctx, testProvider, job.ID, testOutputHash, testProofHash, 90)
	s.Require().NoError(err)

	// Only parties to the job may dispute
	_, err = s.ledger.CreateDispute(s.ctx, "stranger", job.ID, "not my job", time.Now())
	s.True(errors.Is(err, types.ErrUnauthorized))

	// The window closes eventually
	_, err = s.ledger.CreateDispute(s.ctx, testClient, job.ID, "too late", time.Now().Add(25*time.Hour))
	s.True(errors.Is(err, types.ErrWindowClosed))

	_, err = s.ledger.CreateDispute(s.ctx, testClient, job.ID, "bad output", time.Now())
	s.Require().NoError(err)

	// A disputed job cannot be disputed again
	_, err = s.ledger.CreateDispute(s.ctx, testProvider, job.ID, "me too", time.Now())
	s.True(errors.Is(err, types.ErrInvalidTransition))
}

func (s *LedgerTestSuite) TestResolveGuards() {
	job := s.runToCompleted(1000)

	// Resolution without an open dispute is refused
	_, err := s.ledger.ResolveDispute(s.ctx, testArbiter, job.ID, true)
	s.True(errors.Is(err, types.ErrNoActiveDispute))

	_, err = s.ledger.CreateDispute(s.ctx, testClient, job.ID, "bad output", time.Now())
	s.Require().NoError(err)

	// Only configured arbiters may rule
	_, err = s.ledger.ResolveDispute(s.ctx, testClient, job.ID, false)
	s.True(errors.Is(err, types.ErrUnauthorized))
	_, err = s.ledger.ResolveDispute(s.ctx, "provider-2", job.ID, false)
	s.True(errors.Is(err, types.ErrUnauthorized))

	_, err = s.ledger.ResolveDispute(s.ctx, testArbiter, job.ID, true)
	s.Require().NoError(err)

	// A resolved dispute cannot be ruled on again
	_, err = s.ledger.ResolveDispute(s.ctx, testArbiter, job.ID, false)
	s.True(errors.Is(err, types.ErrNoActiveDispute))
}

func (s *LedgerTestSuite) TestRateJobQuality() {
	job := s.runToCompleted(1000)

	// Only the client rates
	err := s.ledger.RateJobQuality(s.ctx, testProvider, job.ID, 80)
	s.True(errors.Is(err, types.ErrUnauthorized))

	s.Require().NoError(s.ledger.RateJobQuality(s.ctx, testClient, job.ID, 80))

	stats, err := s.ledger.GetProviderStats(s.ctx, testProvider)
	s.Require().NoError(err)
	s.Equal(int64(80), stats.QualityAverage)

	// Ratings never feed the eligibility score
	s.Equal(int64(models.ReputationScale), stats.Reputation)
}

func (s *LedgerTestSuite) TestRateJobRequiresSettledPhase() {
	job := s.submitJob(1000)

	err := s.ledger.RateJobQuality(s.ctx, testClient, job.ID, 80)
	s.True(errors.Is(err, types.ErrInvalidTransition))
}

func (s *LedgerTestSuite) TestHaltedJobRefusesMutation() {
	job := s.submitJob(1000)

	s.Require().NoError(s.db.Model(&models.Job{}).
		Where("id = ?", job.ID).
		Update("halted", true).Error)

	_, err := s.ledger.ClaimJob(s.ctx, testProvider, job.ID, time.Now())
	s.True(errors.Is(err, types.ErrJobHalted))
	_, err = s.ledger.CancelJob(s.ctx, testClient, job.ID)
	s.True(errors.Is(err, types.ErrJobHalted))
}

func (s *LedgerTestSuite) TestValueConservationAcrossMixedSequence() {
	// Each helper funds the client with exactly the job amount, so total
	// external funding is the sum of the four submissions
	const funding = 10_000

	completed := s.runToCompleted(1000)
	cancelled := s.submitJob(2000)
	expired := s.submitJob(3000)
	pending := s.submitJob(4000)

	_, err := s.ledger.CancelJob(s.ctx, testClient, cancelled.ID)
	s.Require().NoError(err)
	_, err = s.ledger.ExpireJob(s.ctx, expired.ID, time.Now().Add(2*time.Hour))
	s.Require().NoError(err)

	// Every micro-credit is either in an account or still locked for the
	// pending job
	escrowRemaining, err := repos.NewEscrowRepository(s.db).SumRemaining(s.ctx)
	s.Require().NoError(err)
	s.Equal(pending.Amount, escrowRemaining)

	total := s.balance(testClient) + s.balance(testProvider) + s.balance(models.PlatformAccountID) + escrowRemaining
	s.Equal(int64(funding), total)

	_ = completed
	s.assertBooksBalance()
}

func (s *LedgerTestSuite) TestListJobsAndAnalytics() {
	s.runToCompleted(1000)
	job := s.submitJob(2000)

	jobs, err := s.ledger.ListJobs(s.ctx, testClient, nil)
	s.Require().NoError(err)
	s.Len(jobs, 2)

	phase := models.JobPhasePending
	jobs, err = s.ledger.ListJobs(s.ctx, testClient, &models.ListOptions{Limit: 10, Phase: &phase})
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(job.ID, jobs[0].ID)

	analytics, err := s.ledger.GetPlatformAnalytics(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), analytics.TotalJobs)
	s.Equal(int64(1), analytics.JobsByPhase[models.JobPhaseCompleted.String()])
	s.Equal(int64(1), analytics.JobsByPhase[models.JobPhasePending.String()])
	s.Equal(int64(2000), analytics.EscrowOutstanding)
	s.Equal(int64(25), analytics.FeesCollected)
	s.Equal(int64(0), analytics.DisputesOpen)
}
