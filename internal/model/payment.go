package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Payment statuses reported by the gateway. Status is display-only;
// IsPaid together with TransactionID is the financial source of truth.
const (
	PaymentStatusNew        = "new"
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusPaid       = "paid"
	PaymentStatusFailed     = "failed"
	PaymentStatusUnknown    = "unknown"
)

// CryptoPayment is one top-up attempt through the crypto gateway.
type CryptoPayment struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	UserID          uint              `json:"user_id" gorm:"not null;index"`
	OrderID         string            `json:"order_id" gorm:"size:64;not null;uniqueIndex"`
	InvoiceID       *string           `json:"invoice_id,omitempty" gorm:"size:64;uniqueIndex"`
	ExternalID      *string           `json:"external_id,omitempty" gorm:"size:64;index"`
	AmountMinor     int64             `json:"amount_minor" gorm:"not null"`
	Currency        string            `json:"currency" gorm:"size:10;not null;default:'RUB'"`
	AmountCrypto    *string           `json:"amount_crypto,omitempty" gorm:"size:64"`
	Crypto          *string           `json:"crypto,omitempty" gorm:"size:32"`
	DisplayAmount   *string           `json:"display_amount,omitempty" gorm:"size:64"`
	Status          string            `json:"status" gorm:"size:32;not null;default:'new';index"`
	IsPaid          bool              `json:"is_paid" gorm:"not null;default:false"`
	PaymentURL      *string           `json:"payment_url,omitempty" gorm:"type:text"`
	SuccessURL      *string           `json:"success_url,omitempty" gorm:"type:text"`
	FailURL         *string           `json:"fail_url,omitempty" gorm:"type:text"`
	Description     *string           `json:"description,omitempty" gorm:"type:text"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	CallbackPayload datatypes.JSONMap `json:"callback_payload,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	TransactionID   *uint             `json:"transaction_id,omitempty" gorm:"uniqueIndex"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	Transaction *Transaction `json:"-" gorm:"foreignKey:TransactionID"`
}

// TableName overrides the default table name.
func (CryptoPayment) TableName() string {
	return "crypto_payments"
}

// IsFinalized reports whether a ledger transaction is already linked.
func (p *CryptoPayment) IsFinalized() bool {
	return p.TransactionID != nil
}

// DisplayID is the identifier shown to users: the invoice id when known.
func (p *CryptoPayment) DisplayID() string {
	if p.InvoiceID != nil && *p.InvoiceID != "" {
		return *p.InvoiceID
	}
	return p.OrderID
}

// StatusView is a short human readable status with an emoji marker.
func (p *CryptoPayment) StatusView() string {
	status := strings.ToLower(p.Status)
	if status == "" {
		status = PaymentStatusUnknown
	}
	switch {
	case p.IsPaid:
		return "✅ " + status
	case status == PaymentStatusNew || status == PaymentStatusPending || status == PaymentStatusProcessing:
		return "⏳ " + status
	default:
		return "❌ " + status
	}
}
