package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sheelmorjaria/rdjcustoms-payments/api/responses"
	"github.com/sheelmorjaria/rdjcustoms-payments/api/validators"
	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
)

type initiateRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

type methodSummary struct {
	Type                  string `json:"type"`
	DisplayName           string `json:"displayName"`
	RequiredConfirmations int    `json:"requiredConfirmations,omitempty"`
	ExpiryMinutes         int    `json:"expiryMinutes"`
}

// ListPaymentMethods reports the rails the store currently accepts.
func ListPaymentMethods(registry *payments.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		methods := registry.Enabled()
		out := make([]methodSummary, 0, len(methods))
		for _, m := range methods {
			out = append(out, methodSummary{
				Type:                  m.Type.String(),
				DisplayName:           m.DisplayName,
				RequiredConfirmations: m.RequiredConfirmations,
				ExpiryMinutes:         int(m.Expiry.Minutes()),
			})
		}
		responses.WriteSuccess(w, map[string]any{"paymentMethods": out})
	}
}

// InitializePayment creates provider-side payment details for a pending order.
func InitializePayment(logg *logger.Logger, initiators *payments.InitiatorSet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		method, err := parseMethodParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body initiateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "orderId must be a valid uuid"))
			return
		}

		initiation, err := initiators.Initiate(ctx, method, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, initiation)
	}
}

// PaymentStatus reports the settlement progress of an order on its chosen rail.
func PaymentStatus(logg *logger.Logger, query *payments.StatusQuery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		method, err := parseMethodParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "orderId must be a valid uuid"))
			return
		}

		status, err := query.Get(ctx, method, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

func parseMethodParam(r *http.Request) (enums.PaymentMethodType, error) {
	method, err := enums.ParsePaymentMethodType(chi.URLParam(r, "method"))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method")
	}
	return method, nil
}
