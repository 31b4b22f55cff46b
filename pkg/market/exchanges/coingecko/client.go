package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cointrack/pkg/market"
)

const (
	defaultBaseURL     = "https://api.coingecko.com/api/v3"
	defaultHTTPTimeout = 10 * time.Second
	marketsPath        = "/coins/markets"
	providerName       = "coingecko"
)

// Client wraps access to the CoinGecko markets endpoint. It performs exactly
// one HTTP round trip per call; retries belong to the caller.
type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the API root, e.g. a RapidAPI gateway.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets credentials. With a host the key is sent RapidAPI style,
// otherwise as a CoinGecko demo key.
func WithAPIKey(key, host string) Option {
	return func(c *Client) {
		c.apiKey = key
		c.apiHost = host
	}
}

// NewClient constructs a CoinGecko API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Markets fetches one page of /coins/markets.
func (c *Client) Markets(ctx context.Context, q market.PageQuery) ([]market.Asset, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.marketsURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	switch {
	case c.apiKey != "" && c.apiHost != "":
		httpReq.Header.Set("X-RapidAPI-Key", c.apiKey)
		httpReq.Header.Set("X-RapidAPI-Host", c.apiHost)
	case c.apiKey != "":
		httpReq.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("coingecko: page %d: %w", q.Page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coingecko: read page %d: %w", q.Page, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &market.StatusError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var records []marketRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &market.DecodeError{Provider: providerName, Err: err}
	}
	assets := make([]market.Asset, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.ID) == "" {
			continue
		}
		assets = append(assets, rec.asset())
	}
	return assets, nil
}

func (c *Client) marketsURL(q market.PageQuery) string {
	currency := q.Currency
	if currency == "" {
		currency = "usd"
	}
	values := url.Values{}
	values.Set("vs_currency", currency)
	values.Set("order", q.Sort.Order())
	values.Set("per_page", strconv.Itoa(q.PerPage))
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("sparkline", strconv.FormatBool(q.Sparkline))
	if len(q.ChangeWindows) > 0 {
		values.Set("price_change_percentage", strings.Join(q.ChangeWindows, ","))
	}
	return c.baseURL + marketsPath + "?" + values.Encode()
}
