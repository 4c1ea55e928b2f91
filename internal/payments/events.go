package payments

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

// EventKind classifies a provider notification.
type EventKind string

const (
	// EventProgress reports confirmation/amount progress for a payment.
	EventProgress EventKind = "progress"
	// EventCapture reports a captured PayPal order.
	EventCapture EventKind = "capture"
	// EventFailure reports a provider-side denial or failure.
	EventFailure EventKind = "failure"
)

// Event is the normalized form of a provider webhook notification. The
// lookup key is the provider-scoped unique identifier: receive address for
// bitcoin, invoice id for monero, checkout order id for PayPal.
type Event struct {
	Method    enums.PaymentMethodType
	Kind      EventKind
	LookupKey string

	Confirmations  *int
	AmountReceived *decimal.Decimal

	PayerID       string
	CaptureID     string
	TransactionID string
}

// Validate rejects events that cannot be resolved or merged.
func (e Event) Validate() error {
	if !e.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if strings.TrimSpace(e.LookupKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event lookup key is required")
	}
	switch e.Kind {
	case EventProgress, EventCapture, EventFailure:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown event kind")
	}
	if e.Confirmations != nil && *e.Confirmations < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmations cannot be negative")
	}
	if e.AmountReceived != nil && e.AmountReceived.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount received cannot be negative")
	}
	return nil
}

// Result reports what ApplyEvent did.
type Result struct {
	OrderID     uuid.UUID
	OrderNumber string
	Status      enums.PaymentStatus
	// Applied is false when the event was authenticated and resolved but
	// changed nothing (duplicate, stale, or terminal-state delivery).
	Applied bool
}

// CompletedEvent is published to the fulfillment topic when a payment
// reaches completed.
type CompletedEvent struct {
	OrderID     uuid.UUID               `json:"order_id"`
	OrderNumber string                  `json:"order_number"`
	Method      enums.PaymentMethodType `json:"method"`
	Status      enums.PaymentStatus     `json:"status"`
}
