package webhooks

import (
	"fmt"
	"net/http"

	"github.com/sheelmorjaria/rdjcustoms-payments/api/responses"
	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments/monero"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/metrics"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/webhooksig"
)

// MoneroWebhook handles GloBee invoice status callbacks.
func MoneroWebhook(eng paymentEngine, secret string, maxBytes int64, paymentMetrics *metrics.PaymentMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment engine unavailable"))
			return
		}

		payload, err := readPayload(w, r, maxBytes)
		if err != nil {
			paymentMetrics.IncWebhookEvent("monero", "rejected")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := webhooksig.Verify(payload, r.Header.Get(signatureHeader), secret); err != nil {
			paymentMetrics.IncWebhookEvent("monero", "unauthorized")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
			return
		}

		event, err := monero.ParseEvent(payload)
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, fmt.Sprintf("unparseable monero callback dropped: %v", err))
			}
			paymentMetrics.IncWebhookEvent("monero", "malformed")
			writeAck(w)
			return
		}

		result, err := eng.ApplyEvent(ctx, event)
		if err != nil {
			// A validation rejection here means the payload carried values
			// the parser let through but the engine can never act on. The
			// sender authenticated, so ack it like any other malformed body.
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeValidation {
				if logg != nil {
					logg.Warn(ctx, fmt.Sprintf("invalid monero callback dropped: %v", err))
				}
				paymentMetrics.IncWebhookEvent("monero", "malformed")
				writeAck(w)
				return
			}
			paymentMetrics.IncWebhookEvent("monero", "failed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("monero callback for order %s settled as %s", result.OrderID, result.Status))
		}
		paymentMetrics.IncWebhookEvent("monero", "processed")
		writeAck(w)
	}
}
