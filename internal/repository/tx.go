package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the repositories bound to one database handle.
type Repositories struct {
	Payments     PaymentRepository
	Users        UserRepository
	Transactions TransactionRepository
}

// TxManager runs a unit of work inside a database transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type txManager struct {
	db *gorm.DB
}

// NewTxManager creates a transaction manager.
func NewTxManager(db *gorm.DB) TxManager {
	return &txManager{db: db}
}

// NewRepositories binds every repository to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Payments:     NewPaymentRepository(db),
		Users:        NewUserRepository(db),
		Transactions: NewTransactionRepository(db),
	}
}

// WithTransaction executes fn within a database transaction.
// Returning an error from fn rolls everything back.
func (m *txManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}
