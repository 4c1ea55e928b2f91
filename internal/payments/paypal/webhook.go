package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	paypalapi "github.com/sheelmorjaria/rdjcustoms-payments/pkg/paypal"
)

// WebhookEvent is the subset of a PayPal webhook delivery we act on.
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type engine interface {
	ApplyEvent(ctx context.Context, event payments.Event) (payments.Result, error)
}

type capturer interface {
	CaptureOrder(ctx context.Context, paypalOrderID string) (*paypalapi.Capture, error)
}

// WebhookService reacts to PayPal webhook deliveries. Approval triggers a
// server-side capture; capture/denial events settle through the engine.
type WebhookService struct {
	engine   engine
	capturer capturer
}

// NewWebhookService validates dependencies and builds the service.
func NewWebhookService(eng engine, cap capturer) (*WebhookService, error) {
	if eng == nil {
		return nil, fmt.Errorf("payment engine required")
	}
	if cap == nil {
		return nil, fmt.Errorf("order capturer required")
	}
	return &WebhookService{engine: eng, capturer: cap}, nil
}

// HandleEvent routes one authenticated webhook delivery. Unknown event
// types are acknowledged without action.
func (s *WebhookService) HandleEvent(ctx context.Context, event *WebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	switch strings.ToUpper(strings.TrimSpace(event.EventType)) {
	case "CHECKOUT.ORDER.APPROVED":
		return s.handleApproved(ctx, event)
	case "PAYMENT.CAPTURE.COMPLETED":
		return s.handleCaptureCompleted(ctx, event)
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED", "CHECKOUT.ORDER.VOIDED":
		return s.handleFailure(ctx, event)
	default:
		return nil
	}
}

func (s *WebhookService) handleApproved(ctx context.Context, event *WebhookEvent) error {
	var resource struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Resource, &resource); err != nil || strings.TrimSpace(resource.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "approved event missing order id")
	}
	paypalOrderID := strings.TrimSpace(resource.ID)

	// record approval before attempting capture so a capture failure still
	// leaves the payment observable as in-progress
	if _, err := s.engine.ApplyEvent(ctx, payments.Event{
		Method:    enums.PaymentMethodPayPal,
		Kind:      payments.EventProgress,
		LookupKey: paypalOrderID,
	}); err != nil {
		return err
	}

	capture, err := s.capturer.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(capture.Status, "COMPLETED") {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("capture returned status %s", capture.Status))
	}

	_, err = s.engine.ApplyEvent(ctx, payments.Event{
		Method:    enums.PaymentMethodPayPal,
		Kind:      payments.EventCapture,
		LookupKey: paypalOrderID,
		PayerID:   capture.PayerID,
		CaptureID: capture.CaptureID,
	})
	return err
}

func (s *WebhookService) handleCaptureCompleted(ctx context.Context, event *WebhookEvent) error {
	var resource struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	}
	if err := json.Unmarshal(event.Resource, &resource); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "capture event malformed")
	}
	paypalOrderID := strings.TrimSpace(resource.SupplementaryData.RelatedIDs.OrderID)
	if paypalOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "capture event missing related order id")
	}

	_, err := s.engine.ApplyEvent(ctx, payments.Event{
		Method:        enums.PaymentMethodPayPal,
		Kind:          payments.EventCapture,
		LookupKey:     paypalOrderID,
		CaptureID:     strings.TrimSpace(resource.ID),
		TransactionID: strings.TrimSpace(resource.ID),
	})
	return err
}

func (s *WebhookService) handleFailure(ctx context.Context, event *WebhookEvent) error {
	var resource struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	}
	if err := json.Unmarshal(event.Resource, &resource); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "failure event malformed")
	}
	paypalOrderID := strings.TrimSpace(resource.SupplementaryData.RelatedIDs.OrderID)
	if paypalOrderID == "" {
		paypalOrderID = strings.TrimSpace(resource.ID)
	}
	if paypalOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "failure event missing order id")
	}

	_, err := s.engine.ApplyEvent(ctx, payments.Event{
		Method:    enums.PaymentMethodPayPal,
		Kind:      payments.EventFailure,
		LookupKey: paypalOrderID,
	})
	return err
}
