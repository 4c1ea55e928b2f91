package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db/models"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByBitcoinAddress(ctx context.Context, address string) (*models.Order, *models.BitcoinPayment, error) {
	var payment models.BitcoinPayment
	err := r.db.WithContext(ctx).
		Where("address = ?", address).
		First(&payment).Error
	if err != nil {
		return nil, nil, err
	}
	order, err := r.FindOrderByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return order, &payment, nil
}

func (r *repository) FindOrderByMoneroInvoice(ctx context.Context, invoiceID string) (*models.Order, *models.MoneroPayment, error) {
	var payment models.MoneroPayment
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		First(&payment).Error
	if err != nil {
		return nil, nil, err
	}
	order, err := r.FindOrderByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return order, &payment, nil
}

func (r *repository) FindOrderByPayPalOrderID(ctx context.Context, paypalOrderID string) (*models.Order, *models.PayPalPayment, error) {
	var payment models.PayPalPayment
	err := r.db.WithContext(ctx).
		Where("paypal_order_id = ?", paypalOrderID).
		First(&payment).Error
	if err != nil {
		return nil, nil, err
	}
	order, err := r.FindOrderByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return order, &payment, nil
}

func (r *repository) FindBitcoinPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.BitcoinPayment, error) {
	var payment models.BitcoinPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindMoneroPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.MoneroPayment, error) {
	var payment models.MoneroPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPayPalPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.PayPalPayment, error) {
	var payment models.PayPalPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) CreateBitcoinPayment(ctx context.Context, payment *models.BitcoinPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) CreateMoneroPayment(ctx context.Context, payment *models.MoneroPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) CreatePayPalPayment(ctx context.Context, payment *models.PayPalPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) UpdatePayPalPayment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PayPalPayment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) MergeBitcoinProgress(ctx context.Context, id uuid.UUID, confirmations int, received decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BitcoinPayment{}).
		Where("id = ? AND confirmations <= ? AND amount_received_btc <= ?", id, confirmations, received).
		Updates(map[string]any{
			"confirmations":       confirmations,
			"amount_received_btc": received,
			"last_update_at":      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MergeMoneroProgress(ctx context.Context, id uuid.UUID, confirmations int, received decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.MoneroPayment{}).
		Where("id = ? AND confirmations <= ? AND amount_received_xmr <= ?", id, confirmations, received).
		Updates(map[string]any{
			"confirmations":       confirmations,
			"amount_received_xmr": received,
			"last_update_at":      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateOrderStatusIf(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, allowed []enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", orderID, allowed).
		Update("payment_status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindExpiredOrderIDs(ctx context.Context, method enums.PaymentMethodType, now time.Time, limit int) ([]uuid.UUID, error) {
	table, ok := detailTableFor(method)
	if !ok {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("orders.id").
		Joins("JOIN "+table+" d ON d.order_id = orders.id").
		Where("d.expires_at < ?", now).
		Where("orders.payment_status IN ?", enums.NonTerminalPaymentStatuses()).
		Order("d.expires_at ASC").
		Limit(limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func detailTableFor(method enums.PaymentMethodType) (string, bool) {
	switch method {
	case enums.PaymentMethodBitcoin:
		return "bitcoin_payments", true
	case enums.PaymentMethodMonero:
		return "monero_payments", true
	case enums.PaymentMethodPayPal:
		return "paypal_payments", true
	default:
		return "", false
	}
}
