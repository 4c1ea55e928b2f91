package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

// Status is the read-model returned to shoppers polling a payment.
// Expiry is derived at read time; the stored status stays authoritative.
type Status struct {
	OrderID               uuid.UUID               `json:"orderId"`
	OrderNumber           string                  `json:"orderNumber"`
	Method                enums.PaymentMethodType `json:"method"`
	PaymentStatus         enums.PaymentStatus     `json:"paymentStatus"`
	Confirmations         int                     `json:"confirmations"`
	RequiredConfirmations int                     `json:"requiredConfirmations"`
	AmountReceived        decimal.Decimal         `json:"amountReceived"`
	RequiredAmount        decimal.Decimal         `json:"requiredAmount"`
	ExpiresAt             time.Time               `json:"expiresAt"`
	IsExpired             bool                    `json:"isExpired"`
	IsConfirmed           bool                    `json:"isConfirmed"`
}

// StatusQuery reads payment state without mutating it.
type StatusQuery struct {
	repo     Repository
	registry *Registry
	now      func() time.Time
}

// NewStatusQuery builds the read side of the payments API.
func NewStatusQuery(repo Repository, registry *Registry, now func() time.Time) (*StatusQuery, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if registry == nil {
		return nil, fmt.Errorf("method registry required")
	}
	if now == nil {
		now = time.Now
	}
	return &StatusQuery{repo: repo, registry: registry, now: now}, nil
}

// Get returns the payment status for the order under the given method.
func (q *StatusQuery) Get(ctx context.Context, method enums.PaymentMethodType, orderID uuid.UUID) (*Status, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := q.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, mapResolveErr(err, "order")
	}
	if order.PaymentMethodType != method {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order is not paying with %s", method))
	}

	methodCfg, _ := q.registry.Get(method)
	status := &Status{
		OrderID:               order.ID,
		OrderNumber:           order.OrderNumber,
		Method:                method,
		PaymentStatus:         order.PaymentStatus,
		RequiredConfirmations: methodCfg.RequiredConfirmations,
		IsConfirmed:           order.PaymentStatus == enums.PaymentStatusCompleted,
	}

	switch method {
	case enums.PaymentMethodBitcoin:
		detail, err := q.repo.FindBitcoinPaymentByOrder(ctx, orderID)
		if err != nil {
			return nil, mapResolveErr(err, "bitcoin payment")
		}
		status.Confirmations = detail.Confirmations
		status.AmountReceived = detail.AmountReceived
		status.RequiredAmount = detail.AmountBTC
		status.ExpiresAt = detail.ExpiresAt

	case enums.PaymentMethodMonero:
		detail, err := q.repo.FindMoneroPaymentByOrder(ctx, orderID)
		if err != nil {
			return nil, mapResolveErr(err, "monero payment")
		}
		status.Confirmations = detail.Confirmations
		status.AmountReceived = detail.AmountReceived
		status.RequiredAmount = detail.AmountXMR
		status.ExpiresAt = detail.ExpiresAt

	case enums.PaymentMethodPayPal:
		detail, err := q.repo.FindPayPalPaymentByOrder(ctx, orderID)
		if err != nil {
			return nil, mapResolveErr(err, "paypal payment")
		}
		status.RequiredAmount = order.TotalAmount
		status.ExpiresAt = detail.ExpiresAt
	}

	status.IsExpired = q.now().After(status.ExpiresAt)
	return status, nil
}
