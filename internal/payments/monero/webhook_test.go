package monero

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
)

func TestParseEvent_Progress(t *testing.T) {
	event, err := ParseEvent([]byte(`{"id":"inv-42","status":"paid","confirmations":4,"received_amount":"1.250000000000"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Method != enums.PaymentMethodMonero || event.Kind != payments.EventProgress {
		t.Fatalf("unexpected event shape: %+v", event)
	}
	if event.LookupKey != "inv-42" {
		t.Fatalf("unexpected lookup key %s", event.LookupKey)
	}
	if event.Confirmations == nil || *event.Confirmations != 4 {
		t.Fatalf("unexpected confirmations: %v", event.Confirmations)
	}
	if event.AmountReceived == nil || !event.AmountReceived.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("unexpected amount: %v", event.AmountReceived)
	}
}

func TestParseEvent_FailureStatuses(t *testing.T) {
	for _, status := range []string{"failed", "cancelled", "invalid", "Cancelled"} {
		event, err := ParseEvent([]byte(`{"id":"inv-42","status":"` + status + `"}`))
		if err != nil {
			t.Fatalf("parse %s: %v", status, err)
		}
		if event.Kind != payments.EventFailure {
			t.Fatalf("status %s should map to failure, got %s", status, event.Kind)
		}
	}
}

func TestParseEvent_OmittedCountersStayNil(t *testing.T) {
	event, err := ParseEvent([]byte(`{"id":"inv-42","status":"pending"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Confirmations != nil || event.AmountReceived != nil {
		t.Fatalf("omitted counters must stay nil: %+v", event)
	}
}

func TestParseEvent_MissingInvoiceID(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"status":"paid"}`)); err == nil {
		t.Fatal("expected error for missing invoice id")
	}
	if _, err := ParseEvent([]byte(`{"id":"  ","status":"paid"}`)); err == nil {
		t.Fatal("expected error for blank invoice id")
	}
}

func TestParseEvent_ImplausibleCountersRejected(t *testing.T) {
	cases := map[string]string{
		"negative confirmations": `{"id":"inv-42","status":"pending","confirmations":-1}`,
		"absurd confirmations":   `{"id":"inv-42","status":"pending","confirmations":5000000}`,
		"negative amount":        `{"id":"inv-42","status":"pending","received_amount":-0.5}`,
		"amount beyond supply":   `{"id":"inv-42","status":"pending","received_amount":900000000}`,
	}
	for name, body := range cases {
		if _, err := ParseEvent([]byte(body)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}
