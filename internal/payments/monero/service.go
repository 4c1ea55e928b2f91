package monero

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
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/globee"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/rates"
)

const xmrScale = 12

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type invoiceOpener interface {
	CreatePaymentRequest(ctx context.Context, req globee.PaymentRequest) (*globee.PaymentResponse, error)
}

type rateSource interface {
	GetRate(ctx context.Context, asset rates.Asset) (decimal.Decimal, error)
}

// Service opens monero payments: creates the provider invoice, snapshots
// the exchange rate and records the detail row.
type Service struct {
	repo     payments.Repository
	tx       txRunner
	provider invoiceOpener
	rates    rateSource
	registry *payments.Registry
	now      func() time.Time
}

// ServiceParams carries the service dependencies.
type ServiceParams struct {
	Repo     payments.Repository
	Tx       txRunner
	Provider invoiceOpener
	Rates    rateSource
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
		return nil, fmt.Errorf("invoice opener required")
	}
	if p.Rates == nil {
		return nil, fmt.Errorf("rate source required")
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
		rates:    p.Rates,
		registry: p.Registry,
		now:      now,
	}, nil
}

// Initiate opens the monero payment for the order.
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
	if order.PaymentMethodType != enums.PaymentMethodMonero {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order selected a different payment method")
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is no longer pending")
	}
	if _, err := s.repo.FindMoneroPaymentByOrder(ctx, orderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "monero payment already initialized")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing payment")
	}

	rate, err := s.rates.GetRate(ctx, rates.AssetMonero)
	if err != nil {
		return nil, err
	}
	invoice, err := s.provider.CreatePaymentRequest(ctx, globee.PaymentRequest{
		Total:           order.TotalAmount,
		Currency:        order.Currency,
		CustomPaymentID: order.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	methodCfg, _ := s.registry.Get(enums.PaymentMethodMonero)
	amountXMR := order.TotalAmount.Div(rate).Round(xmrScale)
	expiresAt := s.now().Add(methodCfg.Expiry)

	detail := &models.MoneroPayment{
		OrderID:        order.ID,
		InvoiceID:      invoice.ID,
		Address:        invoice.Address,
		AmountXMR:      amountXMR,
		ExchangeRate:   rate,
		ExpiresAt:      expiresAt,
		AmountReceived: decimal.Zero,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateMoneroPayment(ctx, detail)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_monero_payments_order_id") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "monero payment already initialized")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create monero payment")
	}

	return &payments.Initiation{
		OrderID:       order.ID,
		Method:        enums.PaymentMethodMonero,
		PaymentStatus: order.PaymentStatus,
		Address:       invoice.Address,
		InvoiceID:     invoice.ID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		CryptoAmount:  amountXMR,
		ExchangeRate:  rate,
		ExpiresAt:     expiresAt,
	}, nil
}
