package bitcoin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
)

// satoshisPerBTC converts callback values to whole-coin amounts.
var satoshisPerBTC = decimal.New(1, 8)

// maxCallbackSatoshis caps value at the 21M BTC supply; anything above is
// a corrupt or hostile payload, not a payment.
const maxCallbackSatoshis int64 = 21_000_000 * 100_000_000

// callbackPayload mirrors the address-monitoring callback body.
// status: 0 unconfirmed, 1 partially confirmed, 2 confirmed.
type callbackPayload struct {
	Addr   string `json:"addr"`
	Status *int   `json:"status"`
	Value  int64  `json:"value"`
	TxID   string `json:"txid"`
}

// ParseEvent converts a raw callback body into a normalized payment event.
func ParseEvent(body []byte) (payments.Event, error) {
	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payments.Event{}, fmt.Errorf("decode bitcoin callback: %w", err)
	}
	if strings.TrimSpace(payload.Addr) == "" {
		return payments.Event{}, fmt.Errorf("bitcoin callback missing addr")
	}
	if payload.Status == nil {
		return payments.Event{}, fmt.Errorf("bitcoin callback missing status")
	}
	if payload.Value < 0 {
		return payments.Event{}, fmt.Errorf("bitcoin callback has negative value")
	}
	if payload.Value > maxCallbackSatoshis {
		return payments.Event{}, fmt.Errorf("bitcoin callback value %d exceeds plausible bounds", payload.Value)
	}
	if *payload.Status < 0 || *payload.Status > 2 {
		return payments.Event{}, fmt.Errorf("bitcoin callback status %d out of range", *payload.Status)
	}

	confirmations := *payload.Status
	received := decimal.NewFromInt(payload.Value).Div(satoshisPerBTC)

	return payments.Event{
		Method:         enums.PaymentMethodBitcoin,
		Kind:           payments.EventProgress,
		LookupKey:      strings.TrimSpace(payload.Addr),
		Confirmations:  &confirmations,
		AmountReceived: &received,
	}, nil
}
