package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/sheelmorjaria/rdjcustoms-payments/api/responses"
	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

// signatureHeader carries the hex HMAC for the crypto provider callbacks.
const signatureHeader = "X-Signature"

type paymentEngine interface {
	ApplyEvent(ctx context.Context, event payments.Event) (payments.Result, error)
}

type ackResponse struct {
	Received bool `json:"received"`
}

func readPayload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	body := r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body")
	}
	return payload, nil
}

func writeAck(w http.ResponseWriter) {
	responses.WriteSuccess(w, ackResponse{Received: true})
}
