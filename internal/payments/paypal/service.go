package paypal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db/models"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	paypalapi "github.com/sheelmorjaria/rdjcustoms-payments/pkg/paypal"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type checkoutOpener interface {
	CreateOrder(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*paypalapi.Order, error)
}

// Service opens PayPal checkouts and records the detail row.
type Service struct {
	repo     payments.Repository
	tx       txRunner
	provider checkoutOpener
	registry *payments.Registry
	now      func() time.Time
}

// ServiceParams carries the service dependencies.
type ServiceParams struct {
	Repo     payments.Repository
	Tx       txRunner
	Provider checkoutOpener
	Registry *payments.Registry
	Now      func() time.Time
}

// NewService validates dependencies and builds the service.
func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Provider == nil {
		return nil, fmt.Errorf("checkout opener required")
	}
	if p.Registry == nil {
		return nil, fmt.Errorf("method registry required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     p.Repo,
		tx:       p.Tx,
		provider: p.Provider,
		registry: p.Registry,
		now:      now,
	}, nil
}

// Initiate opens the PayPal checkout for the order.
func (s *Service) Initiate(ctx context.Context, orderID uuid.UUID) (*payments.Initiation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentMethodType != enums.PaymentMethodPayPal {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order selected a different payment method")
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is no longer pending")
	}
	if _, err := s.repo.FindPayPalPaymentByOrder(ctx, orderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "paypal payment already initialized")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing payment")
	}

	checkout, err := s.provider.CreateOrder(ctx, order.ID.String(), order.TotalAmount, order.Currency)
	if err != nil {
		return nil, err
	}

	methodCfg, _ := s.registry.Get(enums.PaymentMethodPayPal)
	expiresAt := s.now().Add(methodCfg.Expiry)

	detail := &models.PayPalPayment{
		OrderID:       order.ID,
		PayPalOrderID: checkout.ID,
		ApprovalURL:   checkout.ApprovalURL,
		ExpiresAt:     expiresAt,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreatePayPalPayment(ctx, detail)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_paypal_payments_order_id") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "paypal payment already initialized")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create paypal payment")
	}

	return &payments.Initiation{
		OrderID:       order.ID,
		Method:        enums.PaymentMethodPayPal,
		PaymentStatus: order.PaymentStatus,
		ApprovalURL:   checkout.ApprovalURL,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		ExpiresAt:     expiresAt,
	}, nil
}
