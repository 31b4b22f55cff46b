package coingecko

import (
	"context"
	"net/http"
	"time"

	"cointrack/pkg/market"
)

const defaultProviderTimeout = 8 * time.Second

// Provider wraps CoinGecko client calls behind the generic market.Provider contract.
type Provider struct {
	client  *Client
	timeout time.Duration
}

type providerConfig struct {
	timeout      time.Duration
	clientConfig []Option
}

// ProviderOption customises the CoinGecko provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to the underlying CoinGecko client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientConfig = append(cfg.clientConfig, options...)
	}
}

// NewProvider constructs a CoinGecko market provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{
		timeout: defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		client:  NewClient(cfg.clientConfig...),
		timeout: cfg.timeout,
	}
}

func init() {
	market.RegisterProvider(providerName, func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		}
		if cfg.APIKey != "" {
			clientOptions = append(clientOptions, WithAPIKey(cfg.APIKey, cfg.APIHost))
		}
		if len(clientOptions) > 0 {
			opts = append(opts, WithClientOptions(clientOptions...))
		}
		return NewProvider(opts...), nil
	})
}

// FetchPage implements market.Provider.
func (p *Provider) FetchPage(ctx context.Context, query market.PageQuery) ([]market.Asset, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.client.Markets(ctx, query)
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}
