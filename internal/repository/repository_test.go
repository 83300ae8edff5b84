package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cryptotopup/internal/db"
	apperrors "cryptotopup/internal/errors"
	"cryptotopup/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func strPtr(s string) *string { return &s }

func seedPayment(t *testing.T, repo PaymentRepository, orderID string, createdAt time.Time) *model.CryptoPayment {
	t.Helper()
	p := &model.CryptoPayment{
		UserID:      1,
		OrderID:     orderID,
		ExternalID:  strPtr(orderID),
		AmountMinor: 10000,
		Currency:    "RUB",
		PaymentURL:  strPtr("https://pay.example/" + orderID),
		Metadata:    datatypes.JSONMap{"source": "test"},
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestPaymentRepository_CreateForcesInitialState(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))
	txID := uint(99)
	now := time.Now().UTC()

	p := &model.CryptoPayment{
		UserID:        1,
		OrderID:       "shk_1_aaaaaaaaaa",
		AmountMinor:   500,
		Currency:      "RUB",
		Status:        model.PaymentStatusPaid,
		IsPaid:        true,
		PaidAt:        &now,
		TransactionID: &txID,
	}
	require.NoError(t, repo.Create(context.Background(), p))

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusNew, stored.Status)
	assert.False(t, stored.IsPaid)
	assert.Nil(t, stored.PaidAt)
	assert.Nil(t, stored.TransactionID)
}

func TestPaymentRepository_UpdateIsSparse(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))
	ctx := context.Background()
	p := seedPayment(t, repo, "shk_1_bbbbbbbbbb", time.Now().UTC())

	updated, err := repo.Update(ctx, p, PaymentPatch{
		Status:    strPtr(model.PaymentStatusPending),
		InvoiceID: strPtr("inv-1"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusPending, updated.Status)
	assert.Equal(t, "inv-1", *updated.InvoiceID)
	assert.Equal(t, "https://pay.example/shk_1_bbbbbbbbbb", *updated.PaymentURL)
	assert.Equal(t, "test", updated.Metadata["source"])
	assert.False(t, updated.IsPaid)
	assert.Nil(t, updated.CallbackPayload)
}

func TestPaymentRepository_Lookups(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))
	ctx := context.Background()
	p := seedPayment(t, repo, "shk_1_cccccccccc", time.Now().UTC())
	_, err := repo.Update(ctx, p, PaymentPatch{InvoiceID: strPtr("inv-c")})
	require.NoError(t, err)

	tests := []struct {
		name    string
		find    func() (*model.CryptoPayment, error)
		wantErr error
	}{
		{name: "by order id", find: func() (*model.CryptoPayment, error) { return repo.FindByOrderID(ctx, "shk_1_cccccccccc") }},
		{name: "by external id", find: func() (*model.CryptoPayment, error) { return repo.FindByExternalID(ctx, "shk_1_cccccccccc") }},
		{name: "by invoice id", find: func() (*model.CryptoPayment, error) { return repo.FindByInvoiceID(ctx, "inv-c") }},
		{name: "empty order id", find: func() (*model.CryptoPayment, error) { return repo.FindByOrderID(ctx, "") }, wantErr: apperrors.ErrPaymentNotFound},
		{name: "empty external id", find: func() (*model.CryptoPayment, error) { return repo.FindByExternalID(ctx, "") }, wantErr: apperrors.ErrPaymentNotFound},
		{name: "empty invoice id", find: func() (*model.CryptoPayment, error) { return repo.FindByInvoiceID(ctx, "") }, wantErr: apperrors.ErrPaymentNotFound},
		{name: "unknown invoice id", find: func() (*model.CryptoPayment, error) { return repo.FindByInvoiceID(ctx, "inv-zzz") }, wantErr: apperrors.ErrPaymentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := tt.find()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, p.ID, found.ID)
		})
	}
}

func TestPaymentRepository_LinkTransactionOnce(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))
	ctx := context.Background()
	p := seedPayment(t, repo, "shk_1_dddddddddd", time.Now().UTC())
	paidAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.LinkTransaction(ctx, p.ID, 7, paidAt, datatypes.JSONMap{"status": "PAID"}))

	err := repo.LinkTransaction(ctx, p.ID, 8, paidAt, nil)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyFinalized)

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.True(t, stored.IsFinalized())
	assert.Equal(t, uint(7), *stored.TransactionID)
	assert.Equal(t, model.PaymentStatusPaid, stored.Status)
	assert.Equal(t, "PAID", stored.CallbackPayload["status"])
	require.NotNil(t, stored.PaidAt)
	assert.True(t, paidAt.Equal(*stored.PaidAt))
}

func TestPaymentRepository_ListOpenAndBetween(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	old := seedPayment(t, repo, "shk_1_old0000000", now.Add(-72*time.Hour))
	open := seedPayment(t, repo, "shk_1_open000000", now.Add(-time.Hour))
	paid := seedPayment(t, repo, "shk_1_paid000000", now.Add(-time.Hour))
	failed := seedPayment(t, repo, "shk_1_fail000000", now.Add(-time.Hour))

	require.NoError(t, repo.LinkTransaction(ctx, paid.ID, 1, now, nil))
	_, err := repo.Update(ctx, failed, PaymentPatch{Status: strPtr(model.PaymentStatusFailed)})
	require.NoError(t, err)

	payments, err := repo.ListOpen(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, open.ID, payments[0].ID)

	payments, err = repo.ListOpen(ctx, now.Add(-96*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, old.ID, payments[0].ID)

	payments, err = repo.ListBetween(ctx, now.Add(-2*time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, payments, 3)
}

func TestUserRepository_BalanceAndFirstTopup(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &model.User{TelegramID: 42, Username: "alice"}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.AddBalance(ctx, user.ID, 1500))
	require.NoError(t, repo.AddBalance(ctx, user.ID, 500))
	assert.ErrorIs(t, repo.AddBalance(ctx, user.ID+100, 1), apperrors.ErrUserNotFound)

	first, err := repo.MarkFirstTopup(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = repo.MarkFirstTopup(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, first)

	stored, err := repo.FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), stored.BalanceMinor)
	assert.True(t, stored.HasMadeFirstTopup)

	_, err = repo.FindByID(ctx, user.ID+100)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	gdb := newTestDB(t)
	tx := NewTxManager(gdb)
	repos := NewRepositories(gdb)
	ctx := context.Background()

	user := &model.User{TelegramID: 7}
	require.NoError(t, repos.Users.Create(ctx, user))

	err := tx.WithTransaction(ctx, func(ctx context.Context, r Repositories) error {
		if err := r.Transactions.Create(ctx, &model.Transaction{
			UserID:      user.ID,
			Type:        model.TransactionTypeDeposit,
			AmountMinor: 100,
		}); err != nil {
			return err
		}
		return apperrors.ErrAlreadyFinalized
	})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyFinalized)

	count, err := repos.Transactions.CountByUser(ctx, user.ID, model.TransactionTypeDeposit)
	require.NoError(t, err)
	assert.Zero(t, count)
}
