package model

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ MarketListingsModel = (*defaultMarketListingsModel)(nil)

const marketListingsRows = "provider,asset_id,symbol,name,image,current_price,market_cap,market_cap_rank,total_volume,change_24h,change_7d,sparkline,updated_at"

type (
	// MarketListingsModel reads and writes the market_listings mirror table.
	MarketListingsModel interface {
		Upsert(ctx context.Context, data *MarketListings) error
		FindOne(ctx context.Context, provider, assetID string) (*MarketListings, error)
	}

	defaultMarketListingsModel struct {
		conn  sqlx.SqlConn
		table string
	}

	MarketListings struct {
		Provider      string          `db:"provider"`
		AssetId       string          `db:"asset_id"`
		Symbol        string          `db:"symbol"`
		Name          string          `db:"name"`
		Image         sql.NullString  `db:"image"`
		CurrentPrice  float64         `db:"current_price"`
		MarketCap     float64         `db:"market_cap"`
		MarketCapRank sql.NullInt64   `db:"market_cap_rank"`
		TotalVolume   float64         `db:"total_volume"`
		Change24h     float64         `db:"change_24h"`
		Change7d      float64         `db:"change_7d"`
		Sparkline     pq.Float64Array `db:"sparkline"`
		UpdatedAt     time.Time       `db:"updated_at"`
	}
)

// NewMarketListingsModel returns a model for the database table.
func NewMarketListingsModel(conn sqlx.SqlConn) MarketListingsModel {
	return &defaultMarketListingsModel{
		conn:  conn,
		table: `"public"."market_listings"`,
	}
}

func (m *defaultMarketListingsModel) Upsert(ctx context.Context, data *MarketListings) error {
	query := fmt.Sprintf(`insert into %s (
    provider, asset_id, symbol, name, image, current_price, market_cap, market_cap_rank,
    total_volume, change_24h, change_7d, sparkline, updated_at
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
on conflict (provider, asset_id) do update set
    symbol = EXCLUDED.symbol,
    name = EXCLUDED.name,
    image = EXCLUDED.image,
    current_price = EXCLUDED.current_price,
    market_cap = EXCLUDED.market_cap,
    market_cap_rank = EXCLUDED.market_cap_rank,
    total_volume = EXCLUDED.total_volume,
    change_24h = EXCLUDED.change_24h,
    change_7d = EXCLUDED.change_7d,
    sparkline = EXCLUDED.sparkline,
    updated_at = NOW()`, m.table)
	_, err := m.conn.ExecCtx(ctx, query,
		data.Provider, data.AssetId, data.Symbol, data.Name, data.Image,
		data.CurrentPrice, data.MarketCap, data.MarketCapRank,
		data.TotalVolume, data.Change24h, data.Change7d, data.Sparkline,
	)
	return err
}

func (m *defaultMarketListingsModel) FindOne(ctx context.Context, provider, assetID string) (*MarketListings, error) {
	query := fmt.Sprintf("select %s from %s where provider = $1 and asset_id = $2 limit 1", marketListingsRows, m.table)
	var resp MarketListings
	err := m.conn.QueryRowCtx(ctx, &resp, query, provider, assetID)
	switch err {
	case nil:
		return &resp, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}
