package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "cryptotopup/internal/errors"
	"cryptotopup/internal/model"
)

// PaymentPatch is a sparse update: nil fields are left untouched.
type PaymentPatch struct {
	Status          *string
	IsPaid          *bool
	PaidAt          *time.Time
	PaymentURL      *string
	InvoiceID       *string
	ExternalID      *string
	AmountCrypto    *string
	Crypto          *string
	DisplayAmount   *string
	Metadata        datatypes.JSONMap
	CallbackPayload datatypes.JSONMap
	TransactionID   *uint
}

func (p PaymentPatch) values(now time.Time) map[string]interface{} {
	values := map[string]interface{}{"updated_at": now}
	if p.Status != nil {
		values["status"] = *p.Status
	}
	if p.IsPaid != nil {
		values["is_paid"] = *p.IsPaid
	}
	if p.PaidAt != nil {
		values["paid_at"] = p.PaidAt.UTC()
	}
	if p.PaymentURL != nil {
		values["payment_url"] = *p.PaymentURL
	}
	if p.InvoiceID != nil {
		values["invoice_id"] = *p.InvoiceID
	}
	if p.ExternalID != nil {
		values["external_id"] = *p.ExternalID
	}
	if p.AmountCrypto != nil {
		values["amount_crypto"] = *p.AmountCrypto
	}
	if p.Crypto != nil {
		values["crypto"] = *p.Crypto
	}
	if p.DisplayAmount != nil {
		values["display_amount"] = *p.DisplayAmount
	}
	if p.Metadata != nil {
		values["metadata"] = p.Metadata
	}
	if p.CallbackPayload != nil {
		values["callback_payload"] = p.CallbackPayload
	}
	if p.TransactionID != nil {
		values["transaction_id"] = *p.TransactionID
	}
	return values
}

// PaymentRepository defines crypto payment persistence operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.CryptoPayment) error
	Update(ctx context.Context, payment *model.CryptoPayment, patch PaymentPatch) (*model.CryptoPayment, error)
	FindByID(ctx context.Context, id uint) (*model.CryptoPayment, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.CryptoPayment, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.CryptoPayment, error)
	FindByInvoiceID(ctx context.Context, invoiceID string) (*model.CryptoPayment, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.CryptoPayment, error)
	LinkTransaction(ctx context.Context, id, transactionID uint, paidAt time.Time, payload datatypes.JSONMap) error
	ListOpen(ctx context.Context, since time.Time, limit int) ([]model.CryptoPayment, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.CryptoPayment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create inserts a new payment in status "new", unpaid.
func (r *paymentRepository) Create(ctx context.Context, payment *model.CryptoPayment) error {
	payment.Status = model.PaymentStatusNew
	payment.IsPaid = false
	payment.PaidAt = nil
	payment.TransactionID = nil
	return r.db.WithContext(ctx).Create(payment).Error
}

// Update applies only the supplied fields and returns the persisted row.
func (r *paymentRepository) Update(ctx context.Context, payment *model.CryptoPayment, patch PaymentPatch) (*model.CryptoPayment, error) {
	err := r.db.WithContext(ctx).Model(&model.CryptoPayment{}).
		Where("id = ?", payment.ID).
		Updates(patch.values(time.Now().UTC())).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, payment.ID)
}

// FindByID finds a payment by local ID.
func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*model.CryptoPayment, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByOrderID finds a payment by the locally generated order identifier.
func (r *paymentRepository) FindByOrderID(ctx context.Context, orderID string) (*model.CryptoPayment, error) {
	if orderID == "" {
		return nil, apperrors.ErrPaymentNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("order_id = ?", orderID))
}

// FindByExternalID finds a payment by the identifier echoed back by the gateway.
func (r *paymentRepository) FindByExternalID(ctx context.Context, externalID string) (*model.CryptoPayment, error) {
	if externalID == "" {
		return nil, apperrors.ErrPaymentNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("external_id = ?", externalID))
}

// FindByInvoiceID finds a payment by the gateway invoice ID.
func (r *paymentRepository) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.CryptoPayment, error) {
	if invoiceID == "" {
		return nil, apperrors.ErrPaymentNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID))
}

// FindByIDForUpdate finds a payment with a row-level lock. Must run inside a transaction.
func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.CryptoPayment, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// LinkTransaction marks the payment paid and links the ledger transaction.
// It only succeeds while no transaction is linked yet.
func (r *paymentRepository) LinkTransaction(ctx context.Context, id, transactionID uint, paidAt time.Time, payload datatypes.JSONMap) error {
	paid := true
	status := model.PaymentStatusPaid
	patch := PaymentPatch{
		Status:          &status,
		IsPaid:          &paid,
		PaidAt:          &paidAt,
		TransactionID:   &transactionID,
		CallbackPayload: payload,
	}
	res := r.db.WithContext(ctx).Model(&model.CryptoPayment{}).
		Where("id = ? AND transaction_id IS NULL", id).
		Updates(patch.values(time.Now().UTC()))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrAlreadyFinalized
	}
	return nil
}

// ListOpen lists unpaid payments still waiting for a final gateway status.
func (r *paymentRepository) ListOpen(ctx context.Context, since time.Time, limit int) ([]model.CryptoPayment, error) {
	var payments []model.CryptoPayment
	q := r.db.WithContext(ctx).
		Where("is_paid = ? AND status IN ? AND created_at >= ?", false,
			[]string{model.PaymentStatusNew, model.PaymentStatusPending, model.PaymentStatusProcessing}, since).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ListBetween lists payments created in [from, to).
func (r *paymentRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.CryptoPayment, error) {
	var payments []model.CryptoPayment
	if err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("id").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) first(q *gorm.DB) (*model.CryptoPayment, error) {
	var payment model.CryptoPayment
	if err := q.First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// PaymentEventRepository defines payment audit event persistence operations.
type PaymentEventRepository interface {
	Create(ctx context.Context, event *model.PaymentEvent) error
	CreateBatch(ctx context.Context, events []model.PaymentEvent) error
}

type paymentEventRepository struct {
	db *gorm.DB
}

// NewPaymentEventRepository creates a new payment event repository.
func NewPaymentEventRepository(db *gorm.DB) PaymentEventRepository {
	return &paymentEventRepository{db: db}
}

// Create creates a new payment event entry.
func (r *paymentEventRepository) Create(ctx context.Context, event *model.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CreateBatch creates multiple payment event entries in a single statement.
func (r *paymentEventRepository) CreateBatch(ctx context.Context, events []model.PaymentEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 100).Error
}
