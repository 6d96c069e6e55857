package repos

import (
	"errors"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/types"
)

func (s *DBRepositoryTestSuite) TestEscrowGetByJobID() {
	job := s.createTestJob("client-1", models.JobPhasePending)
	s.createTestEscrow(job.ID, "client-1", 1000)

	entry, err := s.escrowRepo.GetByJobID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(job.ID, entry.JobID)
	s.Equal(int64(1000), entry.Remaining)
	s.Equal(models.EscrowStatusLocked, entry.Status)
}

func (s *DBRepositoryTestSuite) TestEscrowGetByJobIDNotFound() {
	_, err := s.escrowRepo.GetByJobID(s.ctx, 404)
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrEscrowNotFound))
}

func (s *DBRepositoryTestSuite) TestEscrowSumRemaining() {
	jobA := s.createTestJob("client-1", models.JobPhasePending)
	jobB := s.createTestJob("client-1", models.JobPhasePending)
	jobC := s.createTestJob("client-1", models.JobPhaseCompleted)

	s.createTestEscrow(jobA.ID, "client-1", 1000)
	s.createTestEscrow(jobB.ID, "client-1", 500)

	// Released entries no longer count
	released := s.createTestEscrow(jobC.ID, "client-1", 700)
	released.Status = models.EscrowStatusReleased
	released.Remaining = 0
	s.Require().NoError(s.escrowRepo.Save(s.ctx, released))

	total, err := s.escrowRepo.SumRemaining(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1500), total)
}

func (s *DBRepositoryTestSuite) TestProviderGetOrCreateNewcomer() {
	stats, err := s.providerRepo.GetOrCreate(s.ctx, "provider-1")
	s.Require().NoError(err)
	s.Equal("provider-1", stats.ProviderID)
	s.Equal(int64(models.ReputationNewcomer), stats.Reputation)

	// Second call returns the same row
	again, err := s.providerRepo.GetOrCreate(s.ctx, "provider-1")
	s.Require().NoError(err)
	s.Equal(stats.ID, again.ID)
}

func (s *DBRepositoryTestSuite) TestProviderGetByProviderIDNotFound() {
	_, err := s.providerRepo.GetByProviderID(s.ctx, "ghost")
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrNotFound))
}

func (s *DBRepositoryTestSuite) TestDisputeActiveLookup() {
	job := s.createTestJob("client-1", models.JobPhaseDisputed)

	record := &models.Dispute{JobID: job.ID, Initiator: "client-1", Reason: "bad output"}
	s.Require().NoError(s.disputeRepo.Create(s.ctx, record))

	active, err := s.disputeRepo.GetActiveByJobID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, active.ID)

	active.Resolved = true
	s.Require().NoError(s.disputeRepo.Save(s.ctx, active))

	_, err = s.disputeRepo.GetActiveByJobID(s.ctx, job.ID)
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrNoActiveDispute))

	// The resolution-agnostic lookup still finds it
	got, err := s.disputeRepo.GetByJobID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, got.ID)
}

func (s *DBRepositoryTestSuite) TestPhaseEventAppendAndList() {
	job := s.createTestJob("client-1", models.JobPhasePending)

	transitions := []struct {
		from, to models.JobPhase
	}{
		{models.JobPhaseUnknown, models.JobPhasePending},
		{models.JobPhasePending, models.JobPhaseClaimed},
		{models.JobPhaseClaimed, models.JobPhaseRunning},
	}
	for _, tr := range transitions {
		s.Require().NoError(s.eventRepo.Append(s.ctx, &models.PhaseEvent{
			JobID:     job.ID,
			FromPhase: tr.from,
			ToPhase:   tr.to,
			Actor:     "client-1",
		}))
	}

	events, err := s.eventRepo.ListByJobID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	for i, tr := range transitions {
		s.Equal(tr.from, events[i].FromPhase)
		s.Equal(tr.to, events[i].ToPhase)
	}
}
