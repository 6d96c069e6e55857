package repos

import (
	"errors"
	"time"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/types"
)

func (s *DBRepositoryTestSuite) TestJobGetByID() {
	job := s.createTestJob("client-1", models.JobPhasePending)

	got, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(job.ID, got.ID)
	s.Equal("client-1", got.ClientID)
	s.Equal(models.JobPhasePending, got.Phase)
}

func (s *DBRepositoryTestSuite) TestJobGetByIDNotFound() {
	_, err := s.jobRepo.GetByID(s.ctx, 9999)
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrNotFound))
}

func (s *DBRepositoryTestSuite) TestClaimPending() {
	job := s.createTestJob("client-1", models.JobPhasePending)

	err := s.jobRepo.ClaimPending(s.ctx, job.ID, "provider-1", time.Now().UTC())
	s.Require().NoError(err)

	got, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobPhaseClaimed, got.Phase)
	s.Equal("provider-1", got.ProviderID)
	s.NotNil(got.ClaimedAt)
}

func (s *DBRepositoryTestSuite) TestClaimPendingAlreadyClaimed() {
	job := s.createTestJob("client-1", models.JobPhasePending)

	err := s.jobRepo.ClaimPending(s.ctx, job.ID, "provider-1", time.Now().UTC())
	s.Require().NoError(err)

	// Second claim sees zero matching rows
	err = s.jobRepo.ClaimPending(s.ctx, job.ID, "provider-2", time.Now().UTC())
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrAlreadyClaimed))

	got, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal("provider-1", got.ProviderID)
}

func (s *DBRepositoryTestSuite) TestListByParticipant() {
	s.createTestJob("client-1", models.JobPhasePending)
	s.createTestJob("client-2", models.JobPhasePending)
	claimed := s.createTestJob("client-2", models.JobPhasePending)
	s.Require().NoError(s.jobRepo.ClaimPending(s.ctx, claimed.ID, "provider-1", time.Now().UTC()))

	jobs, err := s.jobRepo.List(s.ctx, "client-2", &models.ListOptions{Limit: models.DefaultLimit})
	s.Require().NoError(err)
	s.Len(jobs, 2)

	// The provider sees jobs it claimed
	jobs, err = s.jobRepo.List(s.ctx, "provider-1", &models.ListOptions{Limit: models.DefaultLimit})
	s.Require().NoError(err)
	s.Len(jobs, 1)
	s.Equal(claimed.ID, jobs[0].ID)

	// Empty participant lists everything
	jobs, err = s.jobRepo.List(s.ctx, "", &models.ListOptions{Limit: models.DefaultLimit})
	s.Require().NoError(err)
	s.Len(jobs, 3)
}

func (s *DBRepositoryTestSuite) TestListPhaseFilter() {
	s.createTestJob("client-1", models.JobPhasePending)
	s.createTestJob("client-1", models.JobPhaseCompleted)

	phase := models.JobPhaseCompleted
	jobs, err := s.jobRepo.List(s.ctx, "client-1", &models.ListOptions{Limit: models.DefaultLimit, Phase: &phase})
	s.Require().NoError(err)
	s.Len(jobs, 1)
	s.Equal(models.JobPhaseCompleted, jobs[0].Phase)
}

func (s *DBRepositoryTestSuite) TestCountByPhase() {
	s.createTestJob("client-1", models.JobPhasePending)
	s.createTestJob("client-1", models.JobPhasePending)
	s.createTestJob("client-1", models.JobPhaseCompleted)

	counts, err := s.jobRepo.CountByPhase(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), counts[models.JobPhasePending])
	s.Equal(int64(1), counts[models.JobPhaseCompleted])
}

func (s *DBRepositoryTestSuite) TestSumLockedAmounts() {
	s.createTestJob("client-1", models.JobPhasePending)
	s.createTestJob("client-1", models.JobPhaseClaimed)
	s.createTestJob("client-1", models.JobPhaseRunning)

	// Settled phases do not count toward the locked total
	s.createTestJob("client-1", models.JobPhaseCompleted)
	s.createTestJob("client-1", models.JobPhaseCancelled)

	total, err := s.jobRepo.SumLockedAmounts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3000), total)
}
