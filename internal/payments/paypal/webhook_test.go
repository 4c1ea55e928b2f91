package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	paypalapi "github.com/sheelmorjaria/rdjcustoms-payments/pkg/paypal"
)

type fakeEngine struct {
	events []payments.Event
	err    error
}

func (f *fakeEngine) ApplyEvent(ctx context.Context, event payments.Event) (payments.Result, error) {
	f.events = append(f.events, event)
	return payments.Result{Applied: true}, f.err
}

type fakeCapturer struct {
	capture *paypalapi.Capture
	err     error
	calls   int
}

func (f *fakeCapturer) CaptureOrder(ctx context.Context, paypalOrderID string) (*paypalapi.Capture, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.capture, nil
}

func TestHandleEvent_ApprovedCapturesServerSide(t *testing.T) {
	eng := &fakeEngine{}
	cap := &fakeCapturer{capture: &paypalapi.Capture{
		OrderID:   "5O190127TN364715T",
		Status:    "COMPLETED",
		PayerID:   "PAYER123",
		CaptureID: "3C679366HH908993F",
	}}
	svc, err := NewWebhookService(eng, cap)
	if err != nil {
		t.Fatalf("service setup: %v", err)
	}

	err = svc.HandleEvent(context.Background(), &WebhookEvent{
		ID:        "WH-1",
		EventType: "CHECKOUT.ORDER.APPROVED",
		Resource:  json.RawMessage(`{"id":"5O190127TN364715T"}`),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if cap.calls != 1 {
		t.Fatalf("expected one capture call, got %d", cap.calls)
	}
	if len(eng.events) != 2 {
		t.Fatalf("expected progress then capture events, got %d", len(eng.events))
	}
	if eng.events[0].Kind != payments.EventProgress || eng.events[1].Kind != payments.EventCapture {
		t.Fatalf("unexpected event kinds: %s, %s", eng.events[0].Kind, eng.events[1].Kind)
	}
	if eng.events[1].CaptureID != "3C679366HH908993F" || eng.events[1].PayerID != "PAYER123" {
		t.Fatalf("capture details not forwarded: %+v", eng.events[1])
	}
}

func TestHandleEvent_ApprovedCaptureNotCompleted(t *testing.T) {
	eng := &fakeEngine{}
	cap := &fakeCapturer{capture: &paypalapi.Capture{Status: "PENDING"}}
	svc, _ := NewWebhookService(eng, cap)

	err := svc.HandleEvent(context.Background(), &WebhookEvent{
		EventType: "CHECKOUT.ORDER.APPROVED",
		Resource:  json.RawMessage(`{"id":"5O190127TN364715T"}`),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error for non-completed capture, got %v", err)
	}
	if len(eng.events) != 1 {
		t.Fatalf("only the progress event should have applied, got %d", len(eng.events))
	}
}

func TestHandleEvent_CaptureCompletedUsesRelatedOrderID(t *testing.T) {
	eng := &fakeEngine{}
	svc, _ := NewWebhookService(eng, &fakeCapturer{})

	err := svc.HandleEvent(context.Background(), &WebhookEvent{
		EventType: "PAYMENT.CAPTURE.COMPLETED",
		Resource:  json.RawMessage(`{"id":"3C679366HH908993F","supplementary_data":{"related_ids":{"order_id":"5O190127TN364715T"}}}`),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(eng.events) != 1 {
		t.Fatalf("expected one event, got %d", len(eng.events))
	}
	event := eng.events[0]
	if event.Kind != payments.EventCapture || event.LookupKey != "5O190127TN364715T" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.CaptureID != "3C679366HH908993F" || event.TransactionID != "3C679366HH908993F" {
		t.Fatalf("capture ids not forwarded: %+v", event)
	}
}

func TestHandleEvent_DeniedSettlesFailure(t *testing.T) {
	eng := &fakeEngine{}
	svc, _ := NewWebhookService(eng, &fakeCapturer{})

	err := svc.HandleEvent(context.Background(), &WebhookEvent{
		EventType: "PAYMENT.CAPTURE.DENIED",
		Resource:  json.RawMessage(`{"id":"3C679366HH908993F","supplementary_data":{"related_ids":{"order_id":"5O190127TN364715T"}}}`),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(eng.events) != 1 || eng.events[0].Kind != payments.EventFailure {
		t.Fatalf("expected failure event, got %+v", eng.events)
	}
}

func TestHandleEvent_UnknownTypeAcknowledged(t *testing.T) {
	eng := &fakeEngine{}
	svc, _ := NewWebhookService(eng, &fakeCapturer{})

	if err := svc.HandleEvent(context.Background(), &WebhookEvent{EventType: "BILLING.PLAN.CREATED"}); err != nil {
		t.Fatalf("unknown types must be acknowledged, got %v", err)
	}
	if len(eng.events) != 0 {
		t.Fatalf("unknown types must not reach the engine, got %d events", len(eng.events))
	}
}

func TestHandleEvent_CaptureFailurePropagates(t *testing.T) {
	eng := &fakeEngine{}
	cap := &fakeCapturer{err: errors.New("gateway timeout")}
	svc, _ := NewWebhookService(eng, cap)

	err := svc.HandleEvent(context.Background(), &WebhookEvent{
		EventType: "CHECKOUT.ORDER.APPROVED",
		Resource:  json.RawMessage(`{"id":"5O190127TN364715T"}`),
	})
	if err == nil {
		t.Fatal("capture failures must propagate for redelivery")
	}
}
