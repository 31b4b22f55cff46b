package market

import (
	"slices"
	"strings"
)

// Stats summarises the loaded listing.
type Stats struct {
	TotalMarketCap float64          `json:"totalMarketCap"`
	Change24hPct   float64          `json:"change24hPct"` // market-cap weighted
	LeadSparkline  []float64        `json:"leadSparkline,omitempty"`
	Stablecoin     *StablecoinStats `json:"stablecoin,omitempty"`
}

// StablecoinStats reports the tether entry of the listing.
type StablecoinStats struct {
	MarketCap    float64   `json:"marketCap"`
	Change24hPct float64   `json:"change24hPct"`
	Sparkline    []float64 `json:"sparkline,omitempty"`
}

// Summarize computes listing-wide statistics. It returns a zero Stats for an
// empty listing.
func Summarize(assets []Asset) Stats {
	var stats Stats
	if len(assets) == 0 {
		return stats
	}
	var weighted float64
	for i := range assets {
		a := &assets[i]
		stats.TotalMarketCap += a.MarketCap
		weighted += a.PriceChangePct24h * a.MarketCap / 100
	}
	if stats.TotalMarketCap != 0 {
		stats.Change24hPct = weighted / stats.TotalMarketCap * 100
	}
	stats.LeadSparkline = slices.Clone(assets[0].Sparkline)

	for i := range assets {
		a := &assets[i]
		if a.ID == "tether" || strings.EqualFold(a.Symbol, "usdt") {
			stats.Stablecoin = &StablecoinStats{
				MarketCap:    a.MarketCap,
				Change24hPct: a.PriceChangePct24h,
				Sparkline:    slices.Clone(a.Sparkline),
			}
			break
		}
	}
	return stats
}

// TopGainers returns up to n assets with the largest 24h change. The input is
// left untouched.
func TopGainers(assets []Asset, n int) []Asset {
	if n <= 0 || len(assets) == 0 {
		return nil
	}
	ranked := slices.Clone(assets)
	Sort{Key: SortChange24h, Direction: Desc}.Apply(ranked)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
