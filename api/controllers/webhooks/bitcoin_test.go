package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/webhooksig"
)

type fakeEngine struct {
	result payments.Result
	err    error
	calls  int
	last   payments.Event
}

func (f *fakeEngine) ApplyEvent(ctx context.Context, event payments.Event) (payments.Result, error) {
	f.calls++
	f.last = event
	if f.err != nil {
		return payments.Result{}, f.err
	}
	return f.result, nil
}

func signedRequest(t *testing.T, target string, payload []byte, secret string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("X-Signature", webhooksig.Sign(payload, secret))
	return req
}

func TestBitcoinWebhook_AppliesEvent(t *testing.T) {
	engine := &fakeEngine{result: payments.Result{OrderID: uuid.New(), Status: "awaiting_confirmation", Applied: true}}
	handler := BitcoinWebhook(engine, "secret", 0, nil, nil)

	payload := []byte(`{"addr":"bc1q-test","status":1,"value":250000}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, "/api/v1/payments/bitcoin/webhook", payload, "secret"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if engine.calls != 1 {
		t.Fatalf("expected one engine call, got %d", engine.calls)
	}
	if engine.last.LookupKey != "bc1q-test" {
		t.Fatalf("unexpected lookup key %s", engine.last.LookupKey)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"received":true`)) {
		t.Fatalf("expected ack body, got %s", rec.Body.String())
	}
}

func TestBitcoinWebhook_InvalidSignature(t *testing.T) {
	engine := &fakeEngine{}
	handler := BitcoinWebhook(engine, "secret", 0, nil, nil)

	payload := []byte(`{"addr":"bc1q-test","status":1,"value":250000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/bitcoin/webhook", bytes.NewReader(payload))
	req.Header.Set("X-Signature", webhooksig.Sign(payload, "wrong-secret"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if engine.calls != 0 {
		t.Fatal("engine must not run on invalid signature")
	}
}

func TestBitcoinWebhook_MissingSignature(t *testing.T) {
	handler := BitcoinWebhook(&fakeEngine{}, "secret", 0, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/bitcoin/webhook", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBitcoinWebhook_AuthenticatedMalformedBodyAcked(t *testing.T) {
	engine := &fakeEngine{}
	handler := BitcoinWebhook(engine, "secret", 0, nil, nil)

	payload := []byte(`{"value":10}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, "/api/v1/payments/bitcoin/webhook", payload, "secret"))

	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated but unparseable payloads must be acked, got %d", rec.Code)
	}
	if engine.calls != 0 {
		t.Fatal("engine must not run on unparseable payloads")
	}
}

func TestBitcoinWebhook_UnknownAddress(t *testing.T) {
	engine := &fakeEngine{err: pkgerrors.New(pkgerrors.CodeNotFound, "bitcoin payment not found")}
	handler := BitcoinWebhook(engine, "secret", 0, nil, nil)

	payload := []byte(`{"addr":"bc1q-unknown","status":1,"value":250000}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, "/api/v1/payments/bitcoin/webhook", payload, "secret"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMoneroWebhook_AppliesEvent(t *testing.T) {
	engine := &fakeEngine{result: payments.Result{OrderID: uuid.New(), Status: "completed", Applied: true}}
	handler := MoneroWebhook(engine, "secret", 0, nil, nil)

	payload := []byte(`{"id":"inv-42","status":"paid","confirmations":10,"received_amount":"1.25"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, "/api/v1/payments/monero/webhook", payload, "secret"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if engine.last.LookupKey != "inv-42" {
		t.Fatalf("unexpected lookup key %s", engine.last.LookupKey)
	}
}

func TestMoneroWebhook_InvalidSignature(t *testing.T) {
	engine := &fakeEngine{}
	handler := MoneroWebhook(engine, "secret", 0, nil, nil)

	payload := []byte(`{"id":"inv-42","status":"paid"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/monero/webhook", bytes.NewReader(payload))
	req.Header.Set("X-Signature", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if engine.calls != 0 {
		t.Fatal("engine must not run on invalid signature")
	}
}

func TestMoneroWebhook_EngineValidationAcked(t *testing.T) {
	engine := &fakeEngine{err: pkgerrors.New(pkgerrors.CodeValidation, "confirmations cannot be negative")}
	handler := MoneroWebhook(engine, "secret", 0, nil, nil)

	payload := []byte(`{"id":"inv-42","status":"pending","confirmations":3}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, "/api/v1/payments/monero/webhook", payload, "secret"))

	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated payload the engine cannot act on must be acked, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"received":true`)) {
		t.Fatalf("expected ack body, got %s", rec.Body.String())
	}
}

func TestBitcoinWebhook_EngineValidationAcked(t *testing.T) {
	engine := &fakeEngine{err: pkgerrors.New(pkgerrors.CodeValidation, "amount received cannot be negative")}
	handler := BitcoinWebhook(engine, "secret", 0, nil, nil)

	payload := []byte(`{"addr":"bc1q-test","status":1,"value":250000}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, "/api/v1/payments/bitcoin/webhook", payload, "secret"))

	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated payload the engine cannot act on must be acked, got %d (%s)", rec.Code, rec.Body.String())
	}
}
