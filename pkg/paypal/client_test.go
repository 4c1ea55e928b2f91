package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

func paypalStub(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server, *int) {
	t.Helper()
	tokenRequests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenRequests++
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client-id" || pass != "client-secret" {
				t.Fatalf("token request missing basic auth")
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"test-token","expires_in":3600}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Fatalf("missing bearer token on %s", r.URL.Path)
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("client-id", "client-secret", "wh-id", "sandbox", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server, &tokenRequests
}

func TestCreateOrder(t *testing.T) {
	client, _, tokenRequests := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/checkout/orders" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["intent"] != "CAPTURE" {
			t.Fatalf("unexpected intent %v", body["intent"])
		}
		units := body["purchase_units"].([]any)
		amount := units[0].(map[string]any)["amount"].(map[string]any)
		if amount["value"] != "59.99" || amount["currency_code"] != "GBP" {
			t.Fatalf("unexpected amount %v", amount)
		}
		w.Write([]byte(`{"id":"5O190127TN364715T","status":"CREATED","links":[{"rel":"self","href":"https://api.test/self"},{"rel":"approve","href":"https://paypal.test/checkoutnow?token=5O190127TN364715T"}]}`))
	})

	order, err := client.CreateOrder(context.Background(), "order-123", decimal.RequireFromString("59.99"), "gbp")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != "5O190127TN364715T" || order.ApprovalURL == "" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if *tokenRequests != 1 {
		t.Fatalf("expected one token request, got %d", *tokenRequests)
	}

	// second call reuses the cached token
	if _, err := client.CreateOrder(context.Background(), "order-124", decimal.NewFromInt(10), "GBP"); err != nil {
		t.Fatalf("second create order: %v", err)
	}
	if *tokenRequests != 1 {
		t.Fatalf("token should be cached, got %d requests", *tokenRequests)
	}
}

func TestCreateOrder_MissingApprovalLink(t *testing.T) {
	client, _, _ := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"5O190127TN364715T","status":"CREATED","links":[]}`))
	})

	if _, err := client.CreateOrder(context.Background(), "order-123", decimal.NewFromInt(10), "GBP"); err == nil {
		t.Fatal("expected error for missing approval link")
	}
}

func TestCaptureOrder(t *testing.T) {
	client, _, _ := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/checkout/orders/5O190127TN364715T/capture" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"5O190127TN364715T","status":"COMPLETED","payer":{"payer_id":"PAYER123"},"purchase_units":[{"payments":{"captures":[{"id":"3C679366HH908993F"}]}}]}`))
	})

	capture, err := client.CaptureOrder(context.Background(), "5O190127TN364715T")
	if err != nil {
		t.Fatalf("capture order: %v", err)
	}
	if capture.Status != "COMPLETED" || capture.PayerID != "PAYER123" || capture.CaptureID != "3C679366HH908993F" {
		t.Fatalf("unexpected capture: %+v", capture)
	}
}

func completeHeaders() WebhookHeaders {
	return WebhookHeaders{
		TransmissionID:   "tid",
		TransmissionTime: "2026-01-01T00:00:00Z",
		TransmissionSig:  "sig",
		CertURL:          "https://api.paypal.test/cert",
		AuthAlgo:         "SHA256withRSA",
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	client, _, _ := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/notifications/verify-webhook-signature" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["webhook_id"] != "wh-id" {
			t.Fatalf("unexpected webhook id %v", body["webhook_id"])
		}
		w.Write([]byte(`{"verification_status":"SUCCESS"}`))
	})

	if err := client.VerifyWebhookSignature(context.Background(), completeHeaders(), json.RawMessage(`{}`)); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyWebhookSignature_Failure(t *testing.T) {
	client, _, _ := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"verification_status":"FAILURE"}`))
	})

	err := client.VerifyWebhookSignature(context.Background(), completeHeaders(), json.RawMessage(`{}`))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestVerifyWebhookSignature_MissingHeaders(t *testing.T) {
	client, _, _ := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("verification endpoint must not be called with incomplete headers")
	})

	err := client.VerifyWebhookSignature(context.Background(), WebhookHeaders{TransmissionID: "tid"}, json.RawMessage(`{}`))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
