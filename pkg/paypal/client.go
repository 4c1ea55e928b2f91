package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

const (
	sandboxBaseURL             = "https://api-m.sandbox.paypal.com"
	liveBaseURL                = "https://api-m.paypal.com"
	requestBodyReadLimit int64 = 2048

	// refresh the cached token slightly before PayPal expires it
	tokenExpirySlack = 60 * time.Second
)

var (
	errCredentialsRequired = errors.New("paypal client id and secret are required")
	errWebhookIDRequired   = errors.New("paypal webhook id is required")
)

// Client wraps the PayPal REST v2 Checkout APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	webhookID  string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the environment-derived API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the PayPal client for the given environment (sandbox/live).
func NewClient(clientID, secret, webhookID, environment string, opts ...Option) (*Client, error) {
	trimmedID := strings.TrimSpace(clientID)
	trimmedSecret := strings.TrimSpace(secret)
	if trimmedID == "" || trimmedSecret == "" {
		return nil, errCredentialsRequired
	}
	trimmedWebhookID := strings.TrimSpace(webhookID)
	if trimmedWebhookID == "" {
		return nil, errWebhookIDRequired
	}

	base := sandboxBaseURL
	if strings.EqualFold(strings.TrimSpace(environment), "live") {
		base = liveBaseURL
	}

	client := &Client{
		clientID:   trimmedID,
		secret:     trimmedSecret,
		webhookID:  trimmedWebhookID,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = base
	}

	return client, nil
}

// WebhookID returns the configured webhook registration id.
func (c *Client) WebhookID() string {
	if c == nil {
		return ""
	}
	return c.webhookID
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	endpoint := fmt.Sprintf("%s/v1/oauth2/token", strings.TrimRight(c.baseURL, "/"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build token request")
	}
	httpReq.SetBasicAuth(c.clientID, c.secret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute token request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "token request failed")
	}

	var apiResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode token response")
	}
	if apiResp.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "paypal returned an empty access token")
	}

	c.accessToken = apiResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(apiResp.ExpiresIn)*time.Second - tokenExpirySlack)
	return c.accessToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), fmt.Sprintf("paypal %s %s failed", method, path))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}

// Order is the subset of the checkout order payload used here.
type Order struct {
	ID          string
	Status      string
	ApprovalURL string
}

// CreateOrder opens a checkout order for the given amount with the merchant
// order id recorded as the custom id.
func (c *Client) CreateOrder(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal client not configured")
	}
	if amount.IsZero() || amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"custom_id": orderID,
				"amount": map[string]string{
					"currency_code": strings.ToUpper(currency),
					"value":         amount.StringFixed(2),
				},
			},
		},
	}

	var apiResp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal returned an empty order id")
	}

	order := &Order{ID: apiResp.ID, Status: apiResp.Status}
	for _, link := range apiResp.Links {
		if strings.EqualFold(link.Rel, "approve") {
			order.ApprovalURL = link.Href
			break
		}
	}
	if order.ApprovalURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal order missing approval link")
	}
	return order, nil
}

// Capture is the result of capturing an approved checkout order.
type Capture struct {
	OrderID   string
	Status    string
	PayerID   string
	CaptureID string
}

// CaptureOrder captures the funds for an approved checkout order.
func (c *Client) CaptureOrder(ctx context.Context, paypalOrderID string) (*Capture, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal client not configured")
	}
	trimmed := strings.TrimSpace(paypalOrderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal order id is required")
	}

	var apiResp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Payer  struct {
			PayerID string `json:"payer_id"`
		} `json:"payer"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID string `json:"id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(trimmed))
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &apiResp); err != nil {
		return nil, err
	}

	capture := &Capture{
		OrderID: apiResp.ID,
		Status:  apiResp.Status,
		PayerID: apiResp.Payer.PayerID,
	}
	for _, unit := range apiResp.PurchaseUnits {
		if len(unit.Payments.Captures) > 0 {
			capture.CaptureID = unit.Payments.Captures[0].ID
			break
		}
	}
	return capture, nil
}

// WebhookHeaders carries the transmission headers PayPal attaches to
// webhook deliveries.
type WebhookHeaders struct {
	TransmissionID   string
	TransmissionTime string
	TransmissionSig  string
	CertURL          string
	AuthAlgo         string
}

// HeadersFromRequest extracts the PayPal transmission headers.
func HeadersFromRequest(h http.Header) WebhookHeaders {
	return WebhookHeaders{
		TransmissionID:   h.Get("Paypal-Transmission-Id"),
		TransmissionTime: h.Get("Paypal-Transmission-Time"),
		TransmissionSig:  h.Get("Paypal-Transmission-Sig"),
		CertURL:          h.Get("Paypal-Cert-Url"),
		AuthAlgo:         h.Get("Paypal-Auth-Algo"),
	}
}

func (h WebhookHeaders) complete() bool {
	return h.TransmissionID != "" && h.TransmissionTime != "" &&
		h.TransmissionSig != "" && h.CertURL != "" && h.AuthAlgo != ""
}

// VerifyWebhookSignature delegates webhook authentication to PayPal's
// verification endpoint. It returns nil only on a SUCCESS verdict.
func (c *Client) VerifyWebhookSignature(ctx context.Context, headers WebhookHeaders, event json.RawMessage) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "paypal client not configured")
	}
	if !headers.complete() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "paypal transmission headers missing")
	}

	body := map[string]any{
		"auth_algo":         headers.AuthAlgo,
		"cert_url":          headers.CertURL,
		"transmission_id":   headers.TransmissionID,
		"transmission_sig":  headers.TransmissionSig,
		"transmission_time": headers.TransmissionTime,
		"webhook_id":        c.webhookID,
		"webhook_event":     event,
	}

	var apiResp struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", body, &apiResp); err != nil {
		return err
	}
	if !strings.EqualFold(apiResp.VerificationStatus, "SUCCESS") {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "paypal webhook signature verification failed")
	}
	return nil
}
