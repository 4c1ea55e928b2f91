package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sheelmorjaria/rdjcustoms-payments/api/responses"
	ppwebhook "github.com/sheelmorjaria/rdjcustoms-payments/internal/payments/paypal"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/metrics"
	paypalclient "github.com/sheelmorjaria/rdjcustoms-payments/pkg/paypal"
)

type PayPalWebhookService interface {
	HandleEvent(ctx context.Context, event *ppwebhook.WebhookEvent) error
}

type paypalVerifier interface {
	VerifyWebhookSignature(ctx context.Context, headers paypalclient.WebhookHeaders, event json.RawMessage) error
}

type paypalWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// PayPalWebhook handles PayPal checkout and capture lifecycle events.
func PayPalWebhook(svc PayPalWebhookService, verifier paypalVerifier, guard paypalWebhookGuard, maxBytes int64, paymentMetrics *metrics.PaymentMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paypal client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := readPayload(w, r, maxBytes)
		if err != nil {
			paymentMetrics.IncWebhookEvent("paypal", "rejected")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		headers := paypalclient.HeadersFromRequest(r.Header)
		if err := verifier.VerifyWebhookSignature(ctx, headers, payload); err != nil {
			paymentMetrics.IncWebhookEvent("paypal", "unauthorized")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var event ppwebhook.WebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			if logg != nil {
				logg.Warn(ctx, fmt.Sprintf("unparseable paypal event dropped: %v", err))
			}
			paymentMetrics.IncWebhookEvent("paypal", "malformed")
			writeAck(w)
			return
		}

		eventID := strings.TrimSpace(event.ID)
		if eventID == "" {
			paymentMetrics.IncWebhookEvent("paypal", "malformed")
			writeAck(w)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			paymentMetrics.IncWebhookEvent("paypal", "failed")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			paymentMetrics.IncWebhookEvent("paypal", "duplicate")
			writeAck(w)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			// Clear the marker so PayPal's redelivery gets a fresh attempt.
			_ = guard.Delete(ctx, eventID)
			paymentMetrics.IncWebhookEvent("paypal", "failed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("paypal event %s processed", eventID))
		}
		paymentMetrics.IncWebhookEvent("paypal", "processed")
		writeAck(w)
	}
}
