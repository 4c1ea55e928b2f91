package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.coingecko.com/api/v3"
	defaultCurrency            = "gbp"
	requestBodyReadLimit int64 = 1024
)

// Asset identifies a priced cryptocurrency.
type Asset string

const (
	AssetBitcoin Asset = "bitcoin"
	AssetMonero  Asset = "monero"
)

// Client fetches fiat exchange rates for the supported crypto assets.
type Client struct {
	httpClient *http.Client
	baseURL    string
	currency   string
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

// WithBaseURL overrides the configured rates base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the exchange-rate client.
func NewClient(currency string, opts ...Option) *Client {
	cur := strings.ToLower(strings.TrimSpace(currency))
	if cur == "" {
		cur = defaultCurrency
	}

	client := &Client{
		baseURL:    defaultBaseURL,
		currency:   cur,
		httpClient: &http.Client{Timeout: 5 * time.Second},
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

	return client
}

// GetRate returns the fiat price of one unit of the asset.
func (c *Client) GetRate(ctx context.Context, asset Asset) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "rates client not configured")
	}
	id := strings.TrimSpace(string(asset))
	if id == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "asset is required")
	}

	query := url.Values{}
	query.Set("ids", id)
	query.Set("vs_currencies", c.currency)
	endpoint := fmt.Sprintf("%s/simple/price?%s", strings.TrimRight(c.baseURL, "/"), query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build rate request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute rate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "rate request failed")
	}

	// decode through json.Number so the quote survives without float rounding
	var apiResp map[string]map[string]json.Number
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&apiResp); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode rate response")
	}

	quote, ok := apiResp[id][c.currency]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("no %s rate for %s", c.currency, id))
	}

	rate, err := decimal.NewFromString(quote.String())
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse rate")
	}
	if rate.IsZero() || rate.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("non-positive %s rate for %s", c.currency, id))
	}

	return rate, nil
}
