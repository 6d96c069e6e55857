package repos

import (
	"errors"

	"github.com/meshcompute/clearing/internal/types"
)

func (s *DBRepositoryTestSuite) TestAccountBalanceMissingReadsZero() {
	balance, err := s.accountRepo.Balance(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Equal(int64(0), balance)
}

func (s *DBRepositoryTestSuite) TestAccountCreditDebitRoundTrip() {
	s.Require().NoError(s.accountRepo.Credit(s.ctx, "alice", 500))
	s.Require().NoError(s.accountRepo.Credit(s.ctx, "alice", 250))

	balance, err := s.accountRepo.Balance(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(750), balance)

	s.Require().NoError(s.accountRepo.Debit(s.ctx, "alice", 750))

	balance, err = s.accountRepo.Balance(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(0), balance)
}

func (s *DBRepositoryTestSuite) TestAccountDebitInsufficient() {
	s.Require().NoError(s.accountRepo.Credit(s.ctx, "bob", 100))

	err := s.accountRepo.Debit(s.ctx, "bob", 101)
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrInsufficientFunds))

	// Balance is untouched after the refused debit
	balance, err := s.accountRepo.Balance(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(int64(100), balance)
}

func (s *DBRepositoryTestSuite) TestAccountDebitMissingAccount() {
	err := s.accountRepo.Debit(s.ctx, "carol", 1)
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrInsufficientFunds))
}
