package feed

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/pkg/market"
)

const (
	defaultCurrency = "usd"
	defaultPageSize = 100
)

// Source tells where a page came from.
type Source string

const (
	SourceUpstream Source = "upstream"
	SourceShared   Source = "shared" // joined another caller's in-flight fetch
	SourceCache    Source = "cache"
	SourceStale    Source = "stale" // expired cache entry served after a failure
)

// Page is one fetched listing page.
type Page struct {
	Number int
	Assets []market.Asset
	Source Source
}

// FetcherConfig fixes the request parameters shared by every page.
type FetcherConfig struct {
	Currency string
	PageSize int
}

// Fetcher resolves pages through Cache -> Deduplicator -> Backoff -> provider.
type Fetcher struct {
	provider market.Provider
	cache    *Cache
	dedup    *Deduplicator
	backoff  *Backoff
	cfg      FetcherConfig
}

// NewFetcher wires a Fetcher. Nil collaborators are replaced by defaults.
func NewFetcher(provider market.Provider, cache *Cache, dedup *Deduplicator, backoff *Backoff, cfg FetcherConfig) *Fetcher {
	if cache == nil {
		cache = NewCache(0)
	}
	if dedup == nil {
		dedup = NewDeduplicator()
	}
	if backoff == nil {
		backoff = NewBackoff(BackoffConfig{})
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &Fetcher{provider: provider, cache: cache, dedup: dedup, backoff: backoff, cfg: cfg}
}

// PageSize returns the configured page size.
func (f *Fetcher) PageSize() int { return f.cfg.PageSize }

// Cache exposes the response cache.
func (f *Fetcher) Cache() *Cache { return f.cache }

// Fetch returns page number under sort. A fresh cache entry is served without
// touching the network unless force is set. When the upstream fails, the last
// cached copy is served regardless of age; without one the *FetchError is
// returned. The upstream call and its retries outlive ctx when other callers
// share them; ctx only bounds this caller's wait.
func (f *Fetcher) Fetch(ctx context.Context, number int, sort market.Sort, force bool) (Page, error) {
	key := PageKey(number, sort)
	if !force {
		if assets, ok := f.cache.Get(key); ok {
			return Page{Number: number, Assets: assets, Source: SourceCache}, nil
		}
	}

	assets, shared, err := f.dedup.Do(ctx, key, func(ctx context.Context) ([]market.Asset, error) {
		return f.fetchUpstream(ctx, number, sort)
	})
	if err != nil {
		if stale, ok := f.cache.Stale(key); ok {
			logx.WithContext(ctx).Errorf("feed: serving stale page=%d key=%s err=%v", number, key, err)
			return Page{Number: number, Assets: stale, Source: SourceStale}, nil
		}
		return Page{Number: number}, err
	}
	source := SourceUpstream
	if shared {
		source = SourceShared
	}
	return Page{Number: number, Assets: assets, Source: source}, nil
}

// Stale returns the cached copy of a page regardless of age.
func (f *Fetcher) Stale(number int, sort market.Sort) ([]market.Asset, bool) {
	return f.cache.Stale(PageKey(number, sort))
}

func (f *Fetcher) fetchUpstream(ctx context.Context, number int, sort market.Sort) ([]market.Asset, error) {
	query := market.PageQuery{
		Currency:      f.cfg.Currency,
		Sort:          sort,
		PerPage:       f.cfg.PageSize,
		Page:          number,
		Sparkline:     true,
		ChangeWindows: market.DefaultChangeWindows,
	}
	var assets []market.Asset
	err := f.backoff.Do(ctx, number, func(ctx context.Context) error {
		page, err := f.provider.FetchPage(ctx, query)
		if err != nil {
			return err
		}
		assets = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(assets) > 0 {
		f.cache.Set(PageKey(number, sort), assets)
	}
	return assets, nil
}
