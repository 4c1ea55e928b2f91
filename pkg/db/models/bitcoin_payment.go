package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BitcoinPayment holds the address-based payment detail for an order.
// Address is the lookup key for inbound monitor callbacks; confirmations and
// amount received only ever grow.
type BitcoinPayment struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;uniqueIndex;not null"`
	Address        string          `gorm:"column:address;uniqueIndex;not null"`
	AmountBTC      decimal.Decimal `gorm:"column:amount_btc;type:numeric(16,8);not null"`
	ExchangeRate   decimal.Decimal `gorm:"column:exchange_rate;type:numeric(16,2);not null"`
	ExpiresAt      time.Time       `gorm:"column:expires_at;not null"`
	Confirmations  int             `gorm:"column:confirmations;not null;default:0"`
	AmountReceived decimal.Decimal `gorm:"column:amount_received_btc;type:numeric(16,8);not null;default:0"`
	LastUpdateAt   *time.Time      `gorm:"column:last_update_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *BitcoinPayment) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
