package model

import "time"

// User is a chat-bot user holding an internal balance in minor units.
type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	TelegramID        int64     `json:"telegram_id" gorm:"uniqueIndex"`
	Username          string    `json:"username,omitempty" gorm:"size:255"`
	Language          string    `json:"language,omitempty" gorm:"size:8;default:'ru'"`
	BalanceMinor      int64     `json:"balance_minor" gorm:"not null;default:0"`
	HasMadeFirstTopup bool      `json:"has_made_first_topup" gorm:"not null;default:false"`
	ReferredByID      *uint     `json:"referred_by_id,omitempty" gorm:"index"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	ReferredBy *User `json:"-" gorm:"foreignKey:ReferredByID"`
}
