package model

import "time"

// PaymentEventType names a step of the reconciliation lifecycle.
type PaymentEventType string

const (
	PaymentEventCreated        PaymentEventType = "created"
	PaymentEventCreateFailed   PaymentEventType = "create_failed"
	PaymentEventCallback       PaymentEventType = "callback"
	PaymentEventPoll           PaymentEventType = "poll"
	PaymentEventPollFailed     PaymentEventType = "poll_failed"
	PaymentEventFinalized      PaymentEventType = "finalized"
	PaymentEventFollowupFailed PaymentEventType = "followup_failed"
)

// PaymentEvent is an audit entry for a payment.
// Events are recorded regardless of success or failure; PaymentID is zero
// when the attempt never produced a local record.
type PaymentEvent struct {
	ID           uint             `json:"id" gorm:"primaryKey"`
	PaymentID    uint             `json:"payment_id" gorm:"index"`
	OrderID      string           `json:"order_id" gorm:"size:64;index"`
	Event        PaymentEventType `json:"event" gorm:"size:32;not null;index"`
	Status       string           `json:"status" gorm:"size:32"`
	ErrorMessage string           `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time        `json:"created_at"`
}
