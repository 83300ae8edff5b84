package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "cryptotopup/internal/errors"
	"cryptotopup/internal/model"
	"cryptotopup/internal/repository"
)

// ReferralReward describes a bonus credited to a referrer.
type ReferralReward struct {
	Referrer    *model.User
	AmountMinor int64
	Transaction *model.Transaction
}

// ReferralService pays referrers a share of their referrals' top-ups.
type ReferralService interface {
	// ProcessTopup returns nil when no bonus applies.
	ProcessTopup(ctx context.Context, user *model.User, amountMinor int64) (*ReferralReward, error)
}

type referralService struct {
	tx      repository.TxManager
	percent int
}

// NewReferralService creates a referral service paying percent of every top-up.
func NewReferralService(tx repository.TxManager, percent int) ReferralService {
	return &referralService{tx: tx, percent: percent}
}

func (s *referralService) ProcessTopup(ctx context.Context, user *model.User, amountMinor int64) (*ReferralReward, error) {
	if user == nil || user.ReferredByID == nil || s.percent <= 0 {
		return nil, nil
	}
	bonus := amountMinor * int64(s.percent) / 100
	if bonus <= 0 {
		return nil, nil
	}

	var reward *ReferralReward
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		referrer, err := repos.Users.FindByID(ctx, *user.ReferredByID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		ledger := &model.Transaction{
			UserID:      referrer.ID,
			Type:        model.TransactionTypeReferralReward,
			AmountMinor: bonus,
			Description: fmt.Sprintf("Referral bonus for top-up by user %d", user.ID),
			IsCompleted: true,
			CompletedAt: &now,
		}
		if err := repos.Transactions.Create(ctx, ledger); err != nil {
			return fmt.Errorf("create referral transaction: %w", err)
		}
		if err := repos.Users.AddBalance(ctx, referrer.ID, bonus); err != nil {
			return fmt.Errorf("credit referrer: %w", err)
		}
		referrer.BalanceMinor += bonus
		reward = &ReferralReward{Referrer: referrer, AmountMinor: bonus, Transaction: ledger}
		return nil
	})
	if errors.Is(err, apperrors.ErrUserNotFound) {
		// referrer was deleted
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reward, nil
}
