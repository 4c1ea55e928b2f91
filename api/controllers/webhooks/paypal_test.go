package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ppwebhook "github.com/sheelmorjaria/rdjcustoms-payments/internal/payments/paypal"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	paypalclient "github.com/sheelmorjaria/rdjcustoms-payments/pkg/paypal"
)

type fakePayPalService struct {
	calls int
	err   error
}

func (f *fakePayPalService) HandleEvent(ctx context.Context, event *ppwebhook.WebhookEvent) error {
	f.calls++
	return f.err
}

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) VerifyWebhookSignature(ctx context.Context, headers paypalclient.WebhookHeaders, event json.RawMessage) error {
	return f.err
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("rdj:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func newPayPalGuard(t *testing.T) *ppwebhook.IdempotencyGuard {
	t.Helper()
	guard, err := ppwebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "paypal-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func buildPayPalEvent(eventType string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"id":         "WH-58D329510W468432D-8HN650336L201105X",
		"event_type": eventType,
		"resource":   map[string]any{"id": "5O190127TN364715T"},
	})
	return payload
}

func TestPayPalWebhook_SuccessAndIdempotent(t *testing.T) {
	service := &fakePayPalService{}
	handler := PayPalWebhook(service, &fakeVerifier{}, newPayPalGuard(t), 0, nil, nil)
	payload := buildPayPalEvent("CHECKOUT.ORDER.APPROVED")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/webhook", bytes.NewReader(payload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/webhook", bytes.NewReader(payload)))
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec2.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestPayPalWebhook_InvalidSignature(t *testing.T) {
	service := &fakePayPalService{}
	verifier := &fakeVerifier{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature verification failed")}
	handler := PayPalWebhook(service, verifier, newPayPalGuard(t), 0, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/webhook", bytes.NewReader(buildPayPalEvent("CHECKOUT.ORDER.APPROVED"))))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatal("service must not run on invalid signature")
	}
}

func TestPayPalWebhook_HandlerErrorClearsGuard(t *testing.T) {
	service := &fakePayPalService{err: pkgerrors.New(pkgerrors.CodeDependency, "capture returned status PENDING")}
	handler := PayPalWebhook(service, &fakeVerifier{}, newPayPalGuard(t), 0, nil, nil)
	payload := buildPayPalEvent("CHECKOUT.ORDER.APPROVED")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/webhook", bytes.NewReader(payload)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	// The marker was released, so redelivery reaches the service again.
	service.err = nil
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/webhook", bytes.NewReader(payload)))
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", rec2.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected redelivery to reach service, calls=%d", service.calls)
	}
}

func TestPayPalWebhook_MalformedAuthenticatedBodyAcked(t *testing.T) {
	service := &fakePayPalService{}
	handler := PayPalWebhook(service, &fakeVerifier{}, newPayPalGuard(t), 0, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/webhook", bytes.NewReader([]byte(`{"id":`))))

	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated but unparseable payloads must be acked, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatal("service must not run on unparseable payloads")
	}
}
