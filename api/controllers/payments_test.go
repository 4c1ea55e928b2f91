package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/config"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db/models"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
)

type stubStatusRepo struct {
	payments.Repository

	order *models.Order
	btc   *models.BitcoinPayment
}

func (s *stubStatusRepo) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

func (s *stubStatusRepo) FindBitcoinPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.BitcoinPayment, error) {
	return s.btc, nil
}

func controllerTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
}

func TestPaymentStatus_WireShape(t *testing.T) {
	orderID := uuid.New()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	repo := &stubStatusRepo{
		order: &models.Order{
			ID:                orderID,
			OrderNumber:       "ORD-9001",
			TotalAmount:       decimal.RequireFromString("150.00"),
			Currency:          "GBP",
			PaymentMethodType: enums.PaymentMethodBitcoin,
			PaymentStatus:     enums.PaymentStatusAwaitingConfirmation,
		},
		btc: &models.BitcoinPayment{
			ID:             uuid.New(),
			OrderID:        orderID,
			Address:        "bc1q-status-addr",
			AmountBTC:      decimal.RequireFromString("0.005"),
			ExchangeRate:   decimal.RequireFromString("30000.00"),
			ExpiresAt:      now.Add(6 * time.Hour),
			Confirmations:  1,
			AmountReceived: decimal.RequireFromString("0.003"),
		},
	}
	registry := payments.NewRegistry(config.PaymentsConfig{
		BitcoinEnabled:       true,
		BitcoinConfirmations: 2,
		BitcoinExpiry:        24 * time.Hour,
	})
	query, err := payments.NewStatusQuery(repo, registry, func() time.Time { return now })
	if err != nil {
		t.Fatalf("status query: %v", err)
	}

	r := chi.NewRouter()
	r.Get("/api/v1/payments/{method}/status/{orderId}", PaymentStatus(controllerTestLogger(t), query))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/bitcoin/status/"+orderID.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	for _, field := range []string{
		"orderId", "paymentStatus", "confirmations", "requiredConfirmations",
		"amountReceived", "requiredAmount", "expiresAt", "isExpired", "isConfirmed",
	} {
		if _, ok := envelope.Data[field]; !ok {
			t.Fatalf("response missing %q field: %s", field, rec.Body.String())
		}
	}
	if got := string(envelope.Data["paymentStatus"]); got != `"awaiting_confirmation"` {
		t.Fatalf("unexpected paymentStatus %s", got)
	}
	if got := string(envelope.Data["orderId"]); got != `"`+orderID.String()+`"` {
		t.Fatalf("unexpected orderId %s", got)
	}
	if got := string(envelope.Data["isExpired"]); got != "false" {
		t.Fatalf("unexpected isExpired %s", got)
	}
	if got := string(envelope.Data["isConfirmed"]); got != "false" {
		t.Fatalf("unexpected isConfirmed %s", got)
	}
}
