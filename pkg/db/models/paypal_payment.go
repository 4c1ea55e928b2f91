package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayPalPayment tracks a hosted PayPal checkout for an order.
type PayPalPayment struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID  `gorm:"column:order_id;type:uuid;uniqueIndex;not null"`
	PayPalOrderID string     `gorm:"column:paypal_order_id;uniqueIndex;not null"`
	PayerID       string     `gorm:"column:payer_id"`
	CaptureID     string     `gorm:"column:capture_id"`
	TransactionID string     `gorm:"column:transaction_id"`
	ApprovalURL   string     `gorm:"column:approval_url;not null"`
	ExpiresAt     time.Time  `gorm:"column:expires_at;not null"`
	CapturedAt    *time.Time `gorm:"column:captured_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PayPalPayment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
