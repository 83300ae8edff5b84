package repository

import (
	"context"

	"gorm.io/gorm"

	"cryptotopup/internal/model"
)

// TransactionRepository defines ledger persistence operations.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *model.Transaction) error
	CountByUser(ctx context.Context, userID uint, txType model.TransactionType) (int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new ledger repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create creates a new ledger entry.
func (r *transactionRepository) Create(ctx context.Context, transaction *model.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

// CountByUser counts ledger entries of one type for a user.
func (r *transactionRepository) CountByUser(ctx context.Context, userID uint, txType model.TransactionType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("user_id = ? AND type = ?", userID, txType).
		Count(&count).Error
	return count, err
}
