package escrow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/db/repos"
	"github.com/meshcompute/clearing/internal/types"
)

type VaultTestSuite struct {
	suite.Suite
	db    *gorm.DB
	ctx   context.Context
	vault *Vault
}

func (s *VaultTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_json=1"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")

	err = db.AutoMigrate(&models.Job{}, &models.EscrowEntry{}, &models.Account{})
	require.NoError(s.T(), err, "Failed to run database migrations")

	s.db = db
	s.ctx = context.Background()
	s.vault = NewVault()
}

func (s *VaultTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// lockedJob funds the client and locks a fresh escrow entry
func (s *VaultTestSuite) lockedJob(amount int64) *models.Job {
	accounts := repos.NewAccountRepository(s.db)
	s.Require().NoError(accounts.Credit(s.ctx, "client-1", amount))

	job := &models.Job{
		ClientID: "client-1",
		JobType:  models.JobTypeGeneric,
		Amount:   amount,
		SpecHash: "0123456789abcdef0123456789abcdef",
		Deadline: time.Now().Add(time.Hour),
		Phase:    models.JobPhasePending,
	}
	s.Require().NoError(repos.NewJobRepository(s.db).Create(s.ctx, job))
	s.Require().NoError(s.vault.Lock(s.ctx, s.db, job))
	return job
}

func (s *VaultTestSuite) balance(owner string) int64 {
	balance, err := repos.NewAccountRepository(s.db).Balance(s.ctx, owner)
	s.Require().NoError(err)
	return balance
}

func (s *VaultTestSuite) TestLockDebitsClient() {
	job := s.lockedJob(1000)

	s.Equal(int64(0), s.balance("client-1"))

	entry, err := repos.NewEscrowRepository(s.db).GetByJobID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.EscrowStatusLocked, entry.Status)
	s.Equal(int64(1000), entry.Remaining)
}

func (s *VaultTestSuite) TestReleasePaysRecipient() {
	job := s.lockedJob(1000)

	moved, err := s.vault.Release(s.ctx, s.db, job.ID, "provider-1")
	s.Require().NoError(err)
	s.Equal(int64(1000), moved)
	s.Equal(int64(1000), s.balance("provider-1"))

	// A second release finds nothing to move
	_, err = s.vault.Release(s.ctx, s.db, job.ID, "provider-1")
	s.True(errors.Is(err, types.ErrAlreadyReleased))
	s.Equal(int64(1000), s.balance("provider-1"))
}

func (s *VaultTestSuite) TestSplitReleaseMustCoverRemaining() {
	job := s.lockedJob(1000)

	err := s.vault.SplitRelease(s.ctx, s.db, job.ID, []Payout{
		{To: "provider-1", Amount: 900},
		{To: "platform", Amount: 99},
	})
	s.True(errors.Is(err, types.ErrInvalidAmount))

	// The refused split moved nothing
	s.Equal(int64(0), s.balance("provider-1"))

	err = s.vault.SplitRelease(s.ctx, s.db, job.ID, []Payout{
		{To: "provider-1", Amount: 975},
		{To: "platform", Amount: 25},
	})
	s.Require().NoError(err)
	s.Equal(int64(975), s.balance("provider-1"))
	s.Equal(int64(25), s.balance("platform"))
}

func (s *VaultTestSuite) TestRefundReturnsToClient() {
	job := s.lockedJob(1000)

	moved, err := s.vault.Refund(s.ctx, s.db, job.ID, "client-1")
	s.Require().NoError(err)
	s.Equal(int64(1000), moved)
	s.Equal(int64(1000), s.balance("client-1"))

	// Refund after refund is refused
	_, err = s.vault.Refund(s.ctx, s.db, job.ID, "client-1")
	s.True(errors.Is(err, types.ErrAlreadyReleased))

	// Release after refund is refused too
	_, err = s.vault.Release(s.ctx, s.db, job.ID, "provider-1")
	s.True(errors.Is(err, types.ErrAlreadyReleased))
}

func (s *VaultTestSuite) TestReconcileDetectsDrift() {
	job := s.lockedJob(1000)
	s.Require().NoError(s.vault.Reconcile(s.ctx, s.db))

	// Tamper with the entry behind the vault's back
	s.Require().NoError(s.db.Model(&models.EscrowEntry{}).
		Where("job_id = ?", job.ID).
		Update("remaining", 999).Error)

	err := s.vault.Reconcile(s.ctx, s.db)
	s.True(errors.Is(err, types.ErrReconcileMismatch))
}

func TestVault(t *testing.T) {
	suite.Run(t, new(VaultTestSuite))
}
