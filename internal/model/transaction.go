package model

import "time"

// TransactionType represents the kind of ledger entry.
type TransactionType string

const (
	TransactionTypeDeposit        TransactionType = "deposit"
	TransactionTypeReferralReward TransactionType = "referral_reward"
)

// PaymentMethodShkeeper tags ledger entries created by the crypto gateway flow.
const PaymentMethodShkeeper = "shkeeper"

// Transaction is a ledger entry that moved money on a user balance.
type Transaction struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	UserID        uint            `json:"user_id" gorm:"not null;index"`
	Type          TransactionType `json:"type" gorm:"type:varchar(32);not null;index"`
	AmountMinor   int64           `json:"amount_minor" gorm:"not null"`
	Description   string          `json:"description" gorm:"type:text"`
	PaymentMethod string          `json:"payment_method,omitempty" gorm:"size:32"`
	ExternalID    string          `json:"external_id,omitempty" gorm:"size:64;index"`
	IsCompleted   bool            `json:"is_completed" gorm:"not null;default:false"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
