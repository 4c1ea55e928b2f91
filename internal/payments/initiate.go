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

// Initiation is what a shopper needs to pay after picking a method.
type Initiation struct {
	OrderID       uuid.UUID               `json:"orderId"`
	Method        enums.PaymentMethodType `json:"method"`
	PaymentStatus enums.PaymentStatus     `json:"paymentStatus"`
	Address       string                  `json:"address,omitempty"`
	InvoiceID     string                  `json:"invoiceId,omitempty"`
	ApprovalURL   string                  `json:"approvalUrl,omitempty"`
	Amount        decimal.Decimal         `json:"amount"`
	Currency      string                  `json:"currency"`
	CryptoAmount  decimal.Decimal         `json:"cryptoAmount,omitempty"`
	ExchangeRate  decimal.Decimal         `json:"exchangeRate,omitempty"`
	ExpiresAt     time.Time               `json:"expiresAt"`
}

// Initiator opens a payment for an order on one rail.
type Initiator interface {
	Initiate(ctx context.Context, orderID uuid.UUID) (*Initiation, error)
}

// InitiatorSet dispatches initialization to the enabled methods. The map is
// closed at boot; unknown or disabled methods produce validation errors.
type InitiatorSet struct {
	initiators map[enums.PaymentMethodType]Initiator
}

// NewInitiatorSet builds the dispatcher from the registry's enabled set.
func NewInitiatorSet(registry *Registry, initiators map[enums.PaymentMethodType]Initiator) (*InitiatorSet, error) {
	if registry == nil {
		return nil, fmt.Errorf("method registry required")
	}
	set := make(map[enums.PaymentMethodType]Initiator, len(initiators))
	for _, cfg := range registry.Enabled() {
		initiator, ok := initiators[cfg.Type]
		if !ok || initiator == nil {
			return nil, fmt.Errorf("no initiator wired for enabled method %s", cfg.Type)
		}
		set[cfg.Type] = initiator
	}
	return &InitiatorSet{initiators: set}, nil
}

// Initiate routes to the method's initiator.
func (s *InitiatorSet) Initiate(ctx context.Context, method enums.PaymentMethodType, orderID uuid.UUID) (*Initiation, error) {
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment initiators unavailable")
	}
	initiator, ok := s.initiators[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %s is not available", method))
	}
	return initiator.Initiate(ctx, orderID)
}
