package blockonomics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

const (
	defaultBaseURL             = "https://www.blockonomics.co/api"
	requestBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("blockonomics api key is required")

// Client wraps the Blockonomics merchant API used for address allocation.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	callbackSecret string
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

// NewClient builds the Blockonomics client given an API key and the shared
// secret expected on payment callbacks.
func NewClient(apiKey, callbackSecret string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:         trimmedKey,
		callbackSecret: strings.TrimSpace(callbackSecret),
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{Timeout: 5 * time.Second},
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

// CallbackSecret returns the shared secret used to authenticate callbacks.
func (c *Client) CallbackSecret() string {
	if c == nil {
		return ""
	}
	return c.callbackSecret
}

// NewAddress allocates a fresh receive address from the merchant wallet.
func (c *Client) NewAddress(ctx context.Context) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "blockonomics client not configured")
	}

	endpoint := fmt.Sprintf("%s/new_address", strings.TrimRight(c.baseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build new address request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute new address request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "new address request failed")
	}

	var apiResp struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode new address response")
	}

	address := strings.TrimSpace(apiResp.Address)
	if address == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "blockonomics returned an empty address")
	}
	return address, nil
}
