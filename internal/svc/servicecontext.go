package svc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "cointrack/internal/cache"
	"cointrack/internal/config"
	"cointrack/internal/model"
	"cointrack/internal/persistence/kv"
	marketpersist "cointrack/internal/persistence/market"
	"cointrack/pkg/engine"
	"cointrack/pkg/feed"
	"cointrack/pkg/journal"
	marketpkg "cointrack/pkg/market"
	_ "cointrack/pkg/market/exchanges/coingecko"
	"cointrack/pkg/portfolio"
)

type ServiceContext struct {
	Config config.Config

	MarketConfig    *marketpkg.Config
	MarketProviders map[string]marketpkg.Provider
	ProviderName    string
	DefaultMarket   marketpkg.Provider

	Store   portfolio.Store
	Ledger  *portfolio.Ledger
	Journal *journal.Writer
	Engine  *engine.Engine

	// Optional DB models, injected when a DSN is configured.
	DBConn              sqlx.SqlConn
	MarketListingsModel model.MarketListingsModel
	MarketMirror        marketpkg.Persistence
}

// NewServiceContext builds the service context and exits on misconfiguration.
func NewServiceContext(c config.Config) *ServiceContext {
	svc, err := Build(c)
	if err != nil {
		log.Fatalf("failed to build service context: %v", err)
	}
	return svc
}

// Build wires providers, the ledger store and the engine. The engine is not
// started.
func Build(c config.Config) (*ServiceContext, error) {
	svc := &ServiceContext{Config: c}

	marketCfg := c.Market.Value
	if marketCfg == nil {
		return nil, errors.New("svc: market config is required (market.file)")
	}
	providers, err := marketCfg.BuildProviders()
	if err != nil {
		return nil, fmt.Errorf("build market providers: %w", err)
	}
	svc.MarketConfig = marketCfg
	svc.MarketProviders = providers

	name := strings.TrimSpace(c.Sync.Provider)
	if name == "" {
		name = marketCfg.Default
	}
	provider, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("svc: sync provider %q is not configured", name)
	}
	svc.ProviderName = name
	svc.DefaultMarket = provider

	store, err := kv.Open(c)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	svc.Store = store
	svc.Ledger = portfolio.LoadLedger(context.Background(), store)

	// Only inject DB models when DSN provided.
	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
		svc.MarketListingsModel = model.NewMarketListingsModel(conn)
	}
	if c.Sync.Mirror && svc.MarketListingsModel != nil {
		var priceCache gocache.Cache
		if strings.TrimSpace(c.Redis.Host) != "" {
			nodes := gocache.ClusterConf{{RedisConf: c.Redis, Weight: 100}}
			priceCache = gocache.New(nodes, syncx.NewSingleFlight(), gocache.NewStat("market"), sqlx.ErrNotFound)
		}
		svc.MarketMirror = marketpersist.NewService(marketpersist.Config{
			ListingsModel: svc.MarketListingsModel,
			Cache:         priceCache,
			TTL:           cachekeys.NewTTLSet(c.TTL),
		})
	}

	var opts []engine.Option
	if dir := c.Path(c.Sync.JournalDir); dir != "" {
		svc.Journal = journal.NewWriter(dir)
		opts = append(opts, engine.WithJournal(svc.Journal))
	}
	if svc.MarketMirror != nil {
		opts = append(opts, engine.WithMirror(svc.MarketMirror))
	}
	svc.Engine = engine.New(provider, svc.Ledger, EngineConfig(c, name), opts...)
	return svc, nil
}

// EngineConfig maps the sync section onto engine settings.
func EngineConfig(c config.Config, provider string) engine.Config {
	s := c.Sync
	return engine.Config{
		Provider: provider,
		Fetcher: feed.FetcherConfig{
			Currency: s.Currency,
			PageSize: s.PageSize,
		},
		Backoff: feed.BackoffConfig{
			MaxRetries: s.MaxRetries,
			BaseDelay:  s.BaseDelay,
		},
		Scheduler: feed.SchedulerConfig{
			MaxPages:        s.MaxPages,
			PageDelay:       s.PageDelay,
			RefreshInterval: s.RefreshInterval,
			OnPageError:     s.FailurePolicy(),
		},
		CacheTTL:      s.CacheTTL,
		CacheSnapshot: c.Path(s.CacheSnapshot),
	}
}

// Close stops the engine and waits for pending ledger writes.
func (s *ServiceContext) Close() error {
	if s.Engine == nil {
		return nil
	}
	return s.Engine.Close()
}
