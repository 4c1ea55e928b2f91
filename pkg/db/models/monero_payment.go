package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MoneroPayment holds the invoice-based payment detail for an order.
// InvoiceID is the lookup key carried by provider webhooks.
type MoneroPayment struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;uniqueIndex;not null"`
	InvoiceID      string          `gorm:"column:invoice_id;uniqueIndex;not null"`
	Address        string          `gorm:"column:address;not null"`
	AmountXMR      decimal.Decimal `gorm:"column:amount_xmr;type:numeric(18,12);not null"`
	ExchangeRate   decimal.Decimal `gorm:"column:exchange_rate;type:numeric(16,2);not null"`
	ExpiresAt      time.Time       `gorm:"column:expires_at;not null"`
	Confirmations  int             `gorm:"column:confirmations;not null;default:0"`
	AmountReceived decimal.Decimal `gorm:"column:amount_received_xmr;type:numeric(18,12);not null;default:0"`
	LastUpdateAt   *time.Time      `gorm:"column:last_update_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *MoneroPayment) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
