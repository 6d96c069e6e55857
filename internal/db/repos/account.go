package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/types"
)

// AccountRepository provides access to the balance-ledger accounts table
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetOrCreate fetches the account row for an owner, creating it with a zero
// balance on first use
func (r *AccountRepository) GetOrCreate(ctx context.Context, owner string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where(&models.Account{Owner: owner}).
		FirstOrCreate(&account, models.Account{Owner: owner}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get account for %s: %w", owner, err)
	}
	return &account, nil
}

// Balance returns the current balance of an owner; a missing account reads as zero
func (r *AccountRepository) Balance(ctx context.Context, owner string) (int64, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where(&models.Account{Owner: owner}).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance for %s: %w", owner, err)
	}
	return account.Balance, nil
}

// Debit subtracts amount from an owner's balance. The conditional update
// refuses to take an account below zero.
func (r *AccountRepository) Debit(ctx context.Context, owner string, amount int64) error {
	if _, err := r.GetOrCreate(ctx, owner); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("owner = ? AND balance >= ?", owner, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to debit %s: %w", owner, result.Error)
	}
	if result.RowsAffected == 0 {
		return types.ErrInsufficientFunds.Wrapf("account %s, amount %d", owner, amount)
	}
	return nil
}

// Credit adds amount to an owner's balance, creating the account if needed
func (r *AccountRepository) Credit(ctx context.Context, owner string, amount int64) error {
	if _, err := r.GetOrCreate(ctx, owner); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("owner = ?", owner).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", owner, err)
	}
	return nil
}
