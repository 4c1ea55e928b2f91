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

// Repository defines persistence operations for orders and their
// per-method payment detail rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByBitcoinAddress(ctx context.Context, address string) (*models.Order, *models.BitcoinPayment, error)
	FindOrderByMoneroInvoice(ctx context.Context, invoiceID string) (*models.Order, *models.MoneroPayment, error)
	FindOrderByPayPalOrderID(ctx context.Context, paypalOrderID string) (*models.Order, *models.PayPalPayment, error)

	FindBitcoinPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.BitcoinPayment, error)
	FindMoneroPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.MoneroPayment, error)
	FindPayPalPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.PayPalPayment, error)

	CreateBitcoinPayment(ctx context.Context, payment *models.BitcoinPayment) error
	CreateMoneroPayment(ctx context.Context, payment *models.MoneroPayment) error
	CreatePayPalPayment(ctx context.Context, payment *models.PayPalPayment) error

	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdatePayPalPayment(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// MergeBitcoinProgress and MergeMoneroProgress apply monotonic counter
	// merges guarded in the WHERE clause; false means a concurrent writer
	// advanced past the proposed values.
	MergeBitcoinProgress(ctx context.Context, id uuid.UUID, confirmations int, received decimal.Decimal, at time.Time) (bool, error)
	MergeMoneroProgress(ctx context.Context, id uuid.UUID, confirmations int, received decimal.Decimal, at time.Time) (bool, error)

	// UpdateOrderStatusIf moves the order status only while the current
	// status is one of allowed; false means the guard did not hold.
	UpdateOrderStatusIf(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, allowed []enums.PaymentStatus) (bool, error)

	// FindExpiredOrderIDs returns orders for the method whose detail row
	// expired before now and whose status is still non-terminal.
	FindExpiredOrderIDs(ctx context.Context, method enums.PaymentMethodType, now time.Time, limit int) ([]uuid.UUID, error)
}

// Notifier publishes downstream fulfillment notifications.
type Notifier interface {
	PaymentCompleted(ctx context.Context, event CompletedEvent) error
}
