package monero

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
)

// maxWebhookConfirmations caps the confirmation counter; chains report
// tens of confirmations for a settling invoice, never thousands.
const maxWebhookConfirmations = 10_000

// maxReceivedXMR sits above the circulating monero supply; a larger
// received_amount cannot describe a real payment.
var maxReceivedXMR = decimal.New(2, 7)

// webhookPayload mirrors the invoice-status webhook body.
type webhookPayload struct {
	ID             string           `json:"id"`
	Status         string           `json:"status"`
	Confirmations  *int             `json:"confirmations"`
	ReceivedAmount *decimal.Decimal `json:"received_amount"`
}

// ParseEvent converts a raw webhook body into a normalized payment event.
func ParseEvent(body []byte) (payments.Event, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payments.Event{}, fmt.Errorf("decode monero webhook: %w", err)
	}
	invoiceID := strings.TrimSpace(payload.ID)
	if invoiceID == "" {
		return payments.Event{}, fmt.Errorf("monero webhook missing invoice id")
	}
	if payload.Confirmations != nil {
		if *payload.Confirmations < 0 {
			return payments.Event{}, fmt.Errorf("monero webhook has negative confirmations")
		}
		if *payload.Confirmations > maxWebhookConfirmations {
			return payments.Event{}, fmt.Errorf("monero webhook confirmations %d exceed plausible bounds", *payload.Confirmations)
		}
	}
	if payload.ReceivedAmount != nil {
		if payload.ReceivedAmount.IsNegative() {
			return payments.Event{}, fmt.Errorf("monero webhook has negative received amount")
		}
		if payload.ReceivedAmount.GreaterThan(maxReceivedXMR) {
			return payments.Event{}, fmt.Errorf("monero webhook received amount %s exceeds plausible bounds", payload.ReceivedAmount)
		}
	}

	kind := payments.EventProgress
	switch strings.ToLower(strings.TrimSpace(payload.Status)) {
	case "failed", "cancelled", "invalid":
		kind = payments.EventFailure
	}

	return payments.Event{
		Method:         enums.PaymentMethodMonero,
		Kind:           kind,
		LookupKey:      invoiceID,
		Confirmations:  payload.Confirmations,
		AmountReceived: payload.ReceivedAmount,
	}, nil
}
