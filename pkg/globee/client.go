package globee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

const (
	defaultBaseURL             = "https://globee.com/payment-api/v1"
	requestBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("globee api key is required")

// Client wraps the GloBee payment API used for Monero invoicing.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret string
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

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the GloBee client given an API key and the shared secret
// expected on payment webhooks.
func NewClient(apiKey, webhookSecret string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:        trimmedKey,
		webhookSecret: strings.TrimSpace(webhookSecret),
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// WebhookSecret returns the shared secret used to authenticate webhooks.
func (c *Client) WebhookSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// PaymentRequest describes the invoice to open with GloBee.
type PaymentRequest struct {
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	CustomPaymentID string          `json:"custom_payment_id"`
}

// PaymentResponse holds the invoice data returned by GloBee.
type PaymentResponse struct {
	ID          string
	Address     string
	RedirectURL string
}

// CreatePaymentRequest opens a Monero invoice for the given amount.
func (c *Client) CreatePaymentRequest(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "globee client not configured")
	}
	if req.Total.IsZero() || req.Total.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment request total must be positive")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal payment request")
	}

	endpoint := fmt.Sprintf("%s/payment-request", strings.TrimRight(c.baseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-AUTH-KEY", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment request failed")
	}

	var apiResp struct {
		Data struct {
			ID             string `json:"id"`
			RedirectURL    string `json:"redirect_url"`
			PaymentDetails struct {
				Address string `json:"address"`
			} `json:"payment_details"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment response")
	}

	id := strings.TrimSpace(apiResp.Data.ID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "globee returned an empty invoice id")
	}

	return &PaymentResponse{
		ID:          id,
		Address:     strings.TrimSpace(apiResp.Data.PaymentDetails.Address),
		RedirectURL: strings.TrimSpace(apiResp.Data.RedirectURL),
	}, nil
}
