package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
)

// Order is the aggregate root the payment subsystem advances. Catalog and
// fulfillment columns live elsewhere; only payment-relevant fields are mapped.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string                  `gorm:"column:order_number;uniqueIndex;not null"`
	TotalAmount       decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency          string                  `gorm:"column:currency;type:text;not null;default:'GBP'"`
	PaymentMethodType enums.PaymentMethodType `gorm:"column:payment_method_type;type:text;not null"`
	PaymentMethodName string                  `gorm:"column:payment_method_name;type:text;not null"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'pending'"`

	BitcoinPayment *BitcoinPayment `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	MoneroPayment  *MoneroPayment  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PayPalPayment  *PayPalPayment  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
