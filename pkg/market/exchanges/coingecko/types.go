package coingecko

import "cointrack/pkg/market"

// marketRecord mirrors one element of the /coins/markets response. CoinGecko
// reports unknown numbers as null.
type marketRecord struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Image         string   `json:"image"`
	CurrentPrice  *float64 `json:"current_price"`
	MarketCap     *float64 `json:"market_cap"`
	MarketCapRank *int     `json:"market_cap_rank"`
	TotalVolume   *float64 `json:"total_volume"`

	Change24h           *float64 `json:"price_change_percentage_24h"`
	Change24hInCurrency *float64 `json:"price_change_percentage_24h_in_currency"`
	Change7d            *float64 `json:"price_change_percentage_7d"`
	Change7dInCurrency  *float64 `json:"price_change_percentage_7d_in_currency"`

	Sparkline *sparkline `json:"sparkline_in_7d"`
}

type sparkline struct {
	Price []float64 `json:"price"`
}

func (r marketRecord) asset() market.Asset {
	asset := market.Asset{
		ID:                r.ID,
		Symbol:            r.Symbol,
		Name:              r.Name,
		Image:             r.Image,
		CurrentPrice:      deref(r.CurrentPrice),
		MarketCap:         deref(r.MarketCap),
		TotalVolume:       deref(r.TotalVolume),
		PriceChangePct24h: first(r.Change24hInCurrency, r.Change24h),
		PriceChangePct7d:  first(r.Change7dInCurrency, r.Change7d),
	}
	if r.MarketCapRank != nil {
		asset.MarketCapRank = *r.MarketCapRank
	}
	if r.Sparkline != nil && len(r.Sparkline.Price) > 0 {
		asset.Sparkline = append([]float64(nil), r.Sparkline.Price...)
	}
	return asset
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func first(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
