package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cryptotopup/internal/db"
	"cryptotopup/internal/gateway"
	"cryptotopup/internal/model"
)

// MockInvoiceGateway is a mock implementation of InvoiceGateway.
type MockInvoiceGateway struct {
	mock.Mock
}

func (m *MockInvoiceGateway) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockInvoiceGateway) CreateInvoice(ctx context.Context, req gateway.InvoiceRequest) (*gateway.Invoice, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Invoice), args.Error(1)
}

func (m *MockInvoiceGateway) GetInvoiceStatus(ctx context.Context, invoiceID, externalID string) (*gateway.Invoice, error) {
	args := m.Called(ctx, invoiceID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Invoice), args.Error(1)
}

// MockNotifier is a mock implementation of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAdmins(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *MockNotifier) NotifyUser(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

// FakeLocker denies the first denials lock attempts, then grants.
type FakeLocker struct {
	mu       sync.Mutex
	denials  int
	attempts int
	released int
	keys     []string
}

func (l *FakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	l.keys = append(l.keys, key)
	if l.attempts <= l.denials {
		return func() {}, false
	}
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, true
}

func (l *FakeLocker) stats() (attempts, released int, keys []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts, l.released, append([]string(nil), l.keys...)
}

// MockPublisher is a mock implementation of events.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	args := m.Called(ctx, eventType, data)
	return args.Error(0)
}

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

func createUser(t *testing.T, gdb *gorm.DB, user *model.User) *model.User {
	t.Helper()
	if user.TelegramID == 0 {
		user.TelegramID = int64(uuid.New().ID())
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

func createPayment(t *testing.T, gdb *gorm.DB, payment *model.CryptoPayment) *model.CryptoPayment {
	t.Helper()
	if payment.Status == "" {
		payment.Status = model.PaymentStatusNew
	}
	if payment.Currency == "" {
		payment.Currency = "RUB"
	}
	require.NoError(t, gdb.Create(payment).Error)
	return payment
}

func countRows(t *testing.T, gdb *gorm.DB, value interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(value).Count(&n).Error)
	return n
}

func reloadUser(t *testing.T, gdb *gorm.DB, id uint) model.User {
	t.Helper()
	var user model.User
	require.NoError(t, gdb.First(&user, id).Error)
	return user
}
