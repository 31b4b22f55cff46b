package market

import "context"

// Provider exposes a paginated, sortable market listing.
type Provider interface {
	// FetchPage returns one page of the market listing ordered by query.Sort.
	FetchPage(ctx context.Context, query PageQuery) ([]Asset, error)
}

// Asset is one snapshot of a tradable coin. Snapshots are replaced wholesale
// on every refresh and never patched in place.
type Asset struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	Image             string    `json:"image"`
	CurrentPrice      float64   `json:"currentPrice"`
	MarketCap         float64   `json:"marketCap"`
	MarketCapRank     int       `json:"marketCapRank"`
	TotalVolume       float64   `json:"totalVolume"`
	PriceChangePct24h float64   `json:"priceChangePct24h"`
	PriceChangePct7d  float64   `json:"priceChangePct7d"`
	Sparkline         []float64 `json:"sparkline,omitempty"` // 7d price samples, oldest first
}

// PageQuery describes a single listing request.
type PageQuery struct {
	Currency      string   // Quote currency, e.g. "usd"
	Sort          Sort     // Upstream ordering
	PerPage       int      // Page size
	Page          int      // 1-based page number
	Sparkline     bool     // Include 7d sparkline samples
	ChangeWindows []string // Price change windows, e.g. {"24h", "7d"}
}

// DefaultChangeWindows are the change windows requested from providers.
var DefaultChangeWindows = []string{"24h", "7d"}
