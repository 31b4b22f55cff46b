package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cointrack/internal/persistence/kv"
	"cointrack/pkg/feed"
	"cointrack/pkg/journal"
	"cointrack/pkg/market"
	"cointrack/pkg/portfolio"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type fakeProvider struct {
	mu      sync.Mutex
	queries []market.PageQuery
	fn      func(q market.PageQuery) ([]market.Asset, error)
}

func (p *fakeProvider) FetchPage(_ context.Context, q market.PageQuery) ([]market.Asset, error) {
	p.mu.Lock()
	p.queries = append(p.queries, q)
	fn := p.fn
	p.mu.Unlock()
	return fn(q)
}

func (p *fakeProvider) set(fn func(q market.PageQuery) ([]market.Asset, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn = fn
}

func (p *fakeProvider) lastQuery() market.PageQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[len(p.queries)-1]
}

func coins(n int) []market.Asset {
	out := make([]market.Asset, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, market.Asset{
			ID:           fmt.Sprintf("coin-%02d", i),
			Symbol:       fmt.Sprintf("c%02d", i),
			Name:         fmt.Sprintf("Coin %02d", i),
			CurrentPrice: float64(i + 1),
			MarketCap:    float64(1000 - i),
		})
	}
	return out
}

func staticProvider(assets []market.Asset) *fakeProvider {
	return &fakeProvider{fn: func(q market.PageQuery) ([]market.Asset, error) {
		if q.Page > 1 {
			return nil, nil
		}
		return assets, nil
	}}
}

func newTestEngine(t *testing.T, p market.Provider, cfg Config, opts ...Option) *Engine {
	t.Helper()
	return newTestEngineWithStore(t, p, kv.NewMemoryStore(), cfg, opts...)
}

func newTestEngineWithStore(t *testing.T, p market.Provider, store portfolio.Store, cfg Config, opts ...Option) *Engine {
	t.Helper()
	if cfg.Fetcher.PageSize == 0 {
		cfg.Fetcher.PageSize = 100
	}
	if cfg.Scheduler.PageDelay == 0 {
		cfg.Scheduler.PageDelay = -1
	}
	cfg.Provider = "fake"
	ledger := portfolio.LoadLedger(context.Background(), store)
	e := New(p, ledger, cfg, append([]Option{WithSleeper(noSleep)}, opts...)...)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

type recordingMirror struct {
	mu    sync.Mutex
	calls map[string]int
}

func (m *recordingMirror) RecordAssets(_ context.Context, provider string, assets []market.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[provider] += len(assets)
	return nil
}

func TestEngineBackgroundPageFailureIsNotFatal(t *testing.T) {
	provider := &fakeProvider{fn: func(q market.PageQuery) ([]market.Asset, error) {
		if q.Page == 2 {
			return nil, &market.StatusError{StatusCode: http.StatusInternalServerError}
		}
		return coins(2), nil
	}}
	dir := t.TempDir()
	mirror := &recordingMirror{calls: map[string]int{}}
	e := newTestEngine(t, provider, Config{
		Fetcher:   feed.FetcherConfig{PageSize: 2},
		Scheduler: feed.SchedulerConfig{MaxPages: 2},
	}, WithJournal(journal.NewWriter(dir)), WithMirror(mirror))

	started, err := e.RequestRefresh(context.Background(), false)
	require.NoError(t, err)
	require.True(t, started)
	e.Wait()

	assert.Len(t, e.Assets(), 2)
	assert.NoError(t, e.LastError())
	assert.False(t, e.LastUpdate().IsZero())
	assert.False(t, e.Loading())
	st := e.Status()
	assert.Equal(t, []int{2}, st.DegradedPages)
	assert.Equal(t, "fake", st.Provider)

	recs, err := journal.ReadRecent(dir, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Success)
	assert.Equal(t, []int{2}, recs[0].Degraded)
	assert.Equal(t, "market_cap_desc", recs[0].Sort)
	assert.Equal(t, []string{"coin-00", "coin-01"}, recs[0].TopAssets)

	mirror.mu.Lock()
	assert.Equal(t, 2, mirror.calls["fake"])
	mirror.mu.Unlock()
}

func TestEngineFailureSetsLastErrorUntilRecovery(t *testing.T) {
	provider := &fakeProvider{fn: func(market.PageQuery) ([]market.Asset, error) {
		return nil, &market.StatusError{StatusCode: http.StatusTooManyRequests}
	}}
	e := newTestEngine(t, provider, Config{Backoff: feed.BackoffConfig{MaxRetries: 1}})

	_, err := e.RequestRefresh(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, e.LastError(), feed.ErrRateLimitExceeded)
	assert.ErrorIs(t, e.LastError(), feed.ErrNoDataAvailable)
	assert.Empty(t, e.Assets())
	assert.True(t, e.LastUpdate().IsZero())
	assert.NotEmpty(t, e.Status().LastError)

	provider.set(func(q market.PageQuery) ([]market.Asset, error) { return coins(3), nil })
	_, err = e.RequestRefresh(context.Background(), true)
	require.NoError(t, err)
	e.Wait()
	assert.NoError(t, e.LastError())
	assert.Len(t, e.Assets(), 3)
	assert.False(t, e.LastUpdate().IsZero())
}

func TestEngineSetSortOrderReloads(t *testing.T) {
	provider := staticProvider(coins(5))
	e := newTestEngine(t, provider, Config{})
	_, err := e.RequestRefresh(context.Background(), false)
	require.NoError(t, err)
	e.Wait()
	assert.Equal(t, "coin-00", e.Assets()[0].ID)

	byPrice := market.Sort{Key: market.SortPrice, Direction: market.Desc}
	require.NoError(t, e.SetSortOrder(context.Background(), byPrice))
	e.Wait()

	assert.Equal(t, byPrice, e.Sort())
	assert.Equal(t, byPrice, provider.lastQuery().Sort)
	assert.Equal(t, "coin-04", e.Assets()[0].ID)

	err = e.SetSortOrder(context.Background(), market.Sort{Key: market.SortKey(99), Direction: market.Asc})
	assert.Error(t, err)
	assert.Equal(t, byPrice, e.Sort())
}

func TestEngineHiddenSurfaceLoadsOnlyFirstPage(t *testing.T) {
	provider := &fakeProvider{fn: func(q market.PageQuery) ([]market.Asset, error) {
		return coins(2), nil
	}}
	e := newTestEngine(t, provider, Config{
		Fetcher:   feed.FetcherConfig{PageSize: 2},
		Scheduler: feed.SchedulerConfig{MaxPages: 3},
	})
	e.SetVisible(false)
	assert.False(t, e.Visible())

	_, err := e.RequestRefresh(context.Background(), false)
	require.NoError(t, err)
	e.Wait()
	assert.Equal(t, 1, provider.lastQuery().Page)
	assert.False(t, e.LastUpdate().IsZero())
}

func TestEngineListing(t *testing.T) {
	e := newTestEngine(t, staticProvider(coins(45)), Config{})
	_, err := e.RequestRefresh(context.Background(), false)
	require.NoError(t, err)
	e.Wait()

	l := e.Listing()
	assert.Equal(t, 1, l.Page)
	assert.Equal(t, 20, l.PageSize)
	assert.Equal(t, 45, l.Total)
	assert.Equal(t, 3, l.TotalPages)
	assert.Equal(t, 1, l.From)
	assert.Equal(t, 20, l.To)
	assert.Equal(t, []int{1, 2, 3}, l.Pages)

	assert.Equal(t, 3, e.SetPage(9))
	l = e.Listing()
	assert.Equal(t, 41, l.From)
	assert.Equal(t, 45, l.To)
	assert.Len(t, l.Assets, 5)

	page, err := e.SetPageSize(10)
	require.NoError(t, err)
	assert.Equal(t, 5, page, "the first row in view stays in view")
	assert.Equal(t, "coin-40", e.Listing().Assets[0].ID)

	_, err = e.SetPageSize(0)
	assert.Error(t, err)

	e.SetSearchFilter("coin 1")
	l = e.Listing()
	assert.Equal(t, 1, l.Page)
	assert.Equal(t, 10, l.Total)
	assert.Equal(t, "coin-10", l.Assets[0].ID)

	e.SetSearchFilter("nothing matches")
	l = e.Listing()
	assert.Zero(t, l.Total)
	assert.Zero(t, l.From)
	assert.Empty(t, l.Assets)
}

func TestPageStrip(t *testing.T) {
	tests := []struct {
		current, total int
		want           []int
	}{
		{1, 0, nil},
		{1, 1, []int{1}},
		{4, 7, []int{1, 2, 3, 4, 5, 6, 7}},
		{1, 10, []int{1, 2, Ellipsis, 10}},
		{5, 10, []int{1, Ellipsis, 4, 5, 6, Ellipsis, 10}},
		{10, 10, []int{1, Ellipsis, 9, 10}},
		{3, 10, []int{1, 2, 3, 4, Ellipsis, 10}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageStrip(tt.current, tt.total), "current=%d total=%d", tt.current, tt.total)
	}
}

func TestEnginePortfolio(t *testing.T) {
	assets := []market.Asset{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 60000, MarketCap: 2, PriceChangePct24h: 10},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 3000, MarketCap: 1},
	}
	store := kv.NewMemoryStore()
	e := newTestEngineWithStore(t, staticProvider(assets), store, Config{})
	_, err := e.RequestRefresh(context.Background(), false)
	require.NoError(t, err)
	e.Wait()

	ctx := context.Background()
	added, err := e.AddPurchase(ctx, portfolio.Purchase{
		AssetID: "bitcoin",
		Amount:  decimal.RequireFromString("0.5"),
		Price:   decimal.NewFromInt(50000),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin", added.Name)
	assert.Equal(t, "btc", added.Symbol)
	assert.NotEmpty(t, added.ID)

	_, err = e.AddPurchase(ctx, portfolio.Purchase{AssetID: "dogecoin", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrUnknownAsset)

	snap := e.Portfolio()
	assert.True(t, decimal.NewFromInt(30000).Equal(snap.TotalValue), snap.TotalValue.String())
	assert.True(t, decimal.NewFromInt(25000).Equal(snap.TotalCost))
	assert.True(t, decimal.NewFromInt(5000).Equal(snap.TotalPnL))
	assert.True(t, decimal.NewFromInt(20).Equal(snap.TotalPnLPct.Decimal))
	assert.True(t, decimal.NewFromInt(3000).Equal(snap.Gains[portfolio.Timeframe24h].Amount))

	price := decimal.NewFromInt(40000)
	edited, err := e.EditPurchase(ctx, added.ID, portfolio.PurchaseEdit{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, added.ID, edited.ID)
	positions := e.SortedPositions()
	require.Len(t, positions, 1)
	assert.True(t, decimal.NewFromInt(10000).Equal(positions[0].PnL))

	e.Ledger().Flush()
	reloaded := portfolio.LoadLedger(ctx, store)
	assert.Len(t, reloaded.Purchases(), 1)

	require.NoError(t, e.RemovePurchase(ctx, added.ID))
	assert.ErrorIs(t, e.RemovePurchase(ctx, added.ID), portfolio.ErrPurchaseNotFound)
	assert.Empty(t, e.Positions(portfolio.DefaultPositionSort))
}

func TestEngineFavorites(t *testing.T) {
	e := newTestEngine(t, staticProvider(coins(4)), Config{})
	_, err := e.RequestRefresh(context.Background(), false)
	require.NoError(t, err)
	e.Wait()

	ctx := context.Background()
	for _, id := range []string{"coin-02", "coin-00", "gone"} {
		added, err := e.ToggleFavorite(ctx, id)
		require.NoError(t, err)
		assert.True(t, added)
	}
	_, err = e.ToggleFavorite(ctx, "")
	assert.Error(t, err)

	var favIDs []string
	for _, a := range e.FavoriteAssets() {
		favIDs = append(favIDs, a.ID)
	}
	assert.Equal(t, []string{"coin-02", "coin-00"}, favIDs)

	require.NoError(t, e.ReorderFavorites(ctx, []string{"gone", "coin-00", "coin-02"}))
	assert.ErrorIs(t, e.ReorderFavorites(ctx, []string{"coin-00"}), portfolio.ErrNotPermutation)
	assert.Equal(t, []string{"coin-00", "gone", "coin-02"}, e.MoveFavorite(ctx, 0, 1))

	removed, err := e.ToggleFavorite(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, []string{"coin-00", "coin-02"}, e.Favorites())
}

func TestEngineSubscribe(t *testing.T) {
	e := newTestEngine(t, staticProvider(coins(1)), Config{})
	ch, cancel := e.Subscribe()
	defer cancel()

	_, err := e.RequestRefresh(context.Background(), false)
	require.NoError(t, err)
	e.Wait()

	seen := map[Change]bool{}
	for len(ch) > 0 {
		seen[<-ch] = true
	}
	assert.True(t, seen[ChangeAssets])
	assert.True(t, seen[ChangeStatus])

	require.NoError(t, e.Close())
	_, ok := <-ch
	assert.False(t, ok, "Close closes subscriber channels")
	_, err = e.RequestRefresh(context.Background(), false)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngineCacheSnapshotSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "pages.msgpack")
	first := newTestEngine(t, staticProvider(coins(3)), Config{CacheSnapshot: path})
	first.Start(context.Background())
	first.Wait()
	require.NoError(t, first.Close())
	require.FileExists(t, path)

	down := &fakeProvider{fn: func(market.PageQuery) ([]market.Asset, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	second := newTestEngine(t, down, Config{CacheSnapshot: path, Backoff: feed.BackoffConfig{MaxRetries: 1}})
	second.Start(context.Background())
	second.Wait()
	assert.Len(t, second.Assets(), 3)
	assert.NoError(t, second.LastError())
}

func TestEngineIgnoresCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.msgpack")
	require.NoError(t, os.WriteFile(path, []byte{0xc1}, 0o644))
	e := newTestEngine(t, staticProvider(coins(2)), Config{CacheSnapshot: path})
	e.Start(context.Background())
	e.Wait()
	assert.Len(t, e.Assets(), 2)
}

func TestEnginePageEventReadsMergedListing(t *testing.T) {
	e := newTestEngine(t, staticProvider(coins(3)), Config{})
	_, err := e.RequestRefresh(context.Background(), false)
	require.NoError(t, err)
	e.Wait()

	// a late page event from a superseded load carries an outdated listing
	e.onEvent(feed.Event{Kind: feed.EventPage, Page: 2, Assets: []market.Asset{{ID: "stale"}}, At: time.Now()})

	var got []string
	for _, a := range e.Assets() {
		got = append(got, a.ID)
	}
	assert.Equal(t, []string{"coin-00", "coin-01", "coin-02"}, got)
}
