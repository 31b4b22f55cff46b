package marketpersist

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"

	cachekeys "cointrack/internal/cache"
	"cointrack/internal/model"
	"cointrack/pkg/market"
)

// priceCache is the part of the go-zero cache the mirror uses.
type priceCache interface {
	GetCtx(ctx context.Context, key string, val any) error
	SetWithExpireCtx(ctx context.Context, key string, val any, expire time.Duration) error
	TakeCtx(ctx context.Context, val any, key string, query func(val any) error) error
	IsNotFound(err error) bool
}

var _ priceCache = (gocache.Cache)(nil)

// Service mirrors merged market listings into Postgres and Redis.
type Service struct {
	listings model.MarketListingsModel
	cache    priceCache
	ttl      cachekeys.TTLSet
	now      func() time.Time
}

// Config enumerates dependencies required to persist market data.
type Config struct {
	ListingsModel model.MarketListingsModel
	Cache         gocache.Cache
	TTL           cachekeys.TTLSet
}

// NewService wires a market persistence service. Returns nil when dependencies missing.
func NewService(cfg Config) market.Persistence {
	if cfg.ListingsModel == nil {
		return nil
	}
	return newService(cfg.ListingsModel, cfg.Cache, cfg.TTL)
}

func newService(listings model.MarketListingsModel, cache priceCache, ttl cachekeys.TTLSet) *Service {
	return &Service{listings: listings, cache: cache, ttl: ttl, now: time.Now}
}

// RecordAssets upserts every asset of a merged listing and refreshes the
// Redis price keys.
func (s *Service) RecordAssets(ctx context.Context, provider string, assets []market.Asset) error {
	if s == nil || s.listings == nil || len(assets) == 0 {
		return nil
	}
	now := s.now().UTC()
	prices := make(map[string]float64, len(assets))
	for _, asset := range assets {
		if strings.TrimSpace(asset.ID) == "" {
			continue
		}
		row := &model.MarketListings{
			Provider:     provider,
			AssetId:      asset.ID,
			Symbol:       asset.Symbol,
			Name:         asset.Name,
			Image:        sql.NullString{String: asset.Image, Valid: asset.Image != ""},
			CurrentPrice: asset.CurrentPrice,
			MarketCap:    asset.MarketCap,
			TotalVolume:  asset.TotalVolume,
			Change24h:    asset.PriceChangePct24h,
			Change7d:     asset.PriceChangePct7d,
			Sparkline:    pq.Float64Array(asset.Sparkline),
		}
		if asset.MarketCapRank > 0 {
			row.MarketCapRank = sql.NullInt64{Int64: int64(asset.MarketCapRank), Valid: true}
		}
		if err := s.listings.Upsert(ctx, row); err != nil {
			return err
		}
		s.cacheAsset(ctx, provider, asset)
		s.cachePrice(ctx, provider, asset.ID, asset.CurrentPrice, now)
		prices[provider+":"+asset.ID] = asset.CurrentPrice
	}
	s.updateCryptoPrices(ctx, prices)
	return nil
}

// LatestPrice returns the mirrored price of one asset, reading through the
// Redis cache to Postgres.
func (s *Service) LatestPrice(ctx context.Context, provider, assetID string) (float64, error) {
	var payload pricePayload
	query := func(val any) error {
		row, err := s.listings.FindOne(ctx, provider, assetID)
		if err != nil {
			return err
		}
		*val.(*pricePayload) = pricePayload{Price: row.CurrentPrice, TS: row.UpdatedAt.UnixMilli()}
		return nil
	}
	var err error
	if s.cache == nil {
		err = query(&payload)
	} else {
		err = s.cache.TakeCtx(ctx, &payload, cachekeys.PriceLatestKey(provider, assetID), query)
	}
	if errors.Is(err, model.ErrNotFound) {
		return 0, model.ErrNotFound
	}
	return payload.Price, err
}

type pricePayload struct {
	Price float64 `json:"price"`
	TS    int64   `json:"ts"`
}

func (s *Service) cacheAsset(ctx context.Context, provider string, asset market.Asset) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.MarketAssetTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.MarketAssetKey(provider, asset.ID)
	payload := map[string]any{
		"id":         asset.ID,
		"symbol":     asset.Symbol,
		"name":       asset.Name,
		"image":      asset.Image,
		"rank":       asset.MarketCapRank,
		"updated_at": s.now().UTC().UnixMilli(),
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache asset key=%s err=%v", key, err)
	}
}

func (s *Service) cachePrice(ctx context.Context, provider, assetID string, price float64, ts time.Time) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.PriceTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.PriceLatestKey(provider, assetID)
	if err := s.cache.SetWithExpireCtx(ctx, key, pricePayload{Price: price, TS: ts.UnixMilli()}, ttl); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache price key=%s err=%v", key, err)
	}
}

func (s *Service) updateCryptoPrices(ctx context.Context, prices map[string]float64) {
	if s.cache == nil || len(prices) == 0 {
		return
	}
	ttl := cachekeys.CryptoPricesTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.CryptoPricesKey()
	var payload map[string]float64
	if err := s.cache.GetCtx(ctx, key, &payload); err != nil && !s.cache.IsNotFound(err) {
		logx.WithContext(ctx).Errorf("marketpersist: load crypto prices key=%s err=%v", key, err)
		return
	}
	if payload == nil {
		payload = make(map[string]float64, len(prices))
	}
	for field, price := range prices {
		payload[field] = price
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache crypto prices key=%s err=%v", key, err)
	}
}
