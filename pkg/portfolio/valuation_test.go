package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cointrack/pkg/market"
)

func TestValueAveragePriceAndPnL(t *testing.T) {
	purchases := []Purchase{
		buy("p1", "bitcoin", "1", "100"),
		buy("p2", "bitcoin", "1", "200"),
	}
	prices := PriceMap{"bitcoin": {Price: d("180")}}

	positions := Value(purchases, prices)
	require.Len(t, positions, 1)
	pos := positions[0]

	assert.Equal(t, "2", pos.TotalAmount.String())
	assert.Equal(t, "300", pos.TotalValue.String())
	assert.Equal(t, "150", pos.AveragePrice.String())
	assert.Equal(t, "360", pos.CurrentValue.String())
	assert.Equal(t, "60", pos.PnL.String())
	require.True(t, pos.PnLPct.Valid)
	assert.Equal(t, "20", pos.PnLPct.Decimal.String())
	assert.True(t, pos.Priced)

	require.Len(t, pos.Purchases, 2)
	assert.Equal(t, "p1", pos.Purchases[0].ID)
	assert.Equal(t, "p2", pos.Purchases[1].ID)
}

func TestValueZeroCostYieldsNullPercent(t *testing.T) {
	positions := Value([]Purchase{buy("p1", "airdrop", "10", "0")}, PriceMap{"airdrop": {Price: d("2")}})
	require.Len(t, positions, 1)
	assert.False(t, positions[0].PnLPct.Valid)
	assert.Equal(t, "20", positions[0].PnL.String())
	assert.True(t, positions[0].AveragePrice.IsZero())
}

func TestValueMissingPriceFallsBackToFirstPurchase(t *testing.T) {
	positions := Value([]Purchase{
		buy("p1", "delisted", "2", "5"),
		buy("p2", "delisted", "1", "8"),
	}, PriceMap{})
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.False(t, pos.Priced)
	assert.Equal(t, "5", pos.CurrentPrice.String())
	assert.Equal(t, "15", pos.CurrentValue.String())
	assert.Equal(t, "-3", pos.PnL.String())
}

func TestValueGroupsInFirstSeenOrder(t *testing.T) {
	positions := Value([]Purchase{
		buy("p1", "eth", "1", "10"),
		buy("p2", "btc", "1", "10"),
		buy("p3", "eth", "1", "10"),
	}, nil)
	require.Len(t, positions, 2)
	assert.Equal(t, "eth", positions[0].AssetID)
	assert.Equal(t, "btc", positions[1].AssetID)
}

func TestValueDropsZeroAmountGroups(t *testing.T) {
	zero := buy("p1", "ghost", "1", "10")
	zero.Amount = decimal.Zero
	positions := Value([]Purchase{zero}, nil)
	assert.Empty(t, positions)
}

func TestPricesFrom(t *testing.T) {
	prices := PricesFrom([]market.Asset{{ID: "bitcoin", CurrentPrice: 110, PriceChangePct24h: 10, PriceChangePct7d: -5}})
	q, ok := prices["bitcoin"]
	require.True(t, ok)
	assert.Equal(t, "110", q.Price.String())
	assert.Equal(t, "10", q.Change24h.String())
	assert.Equal(t, "-5", q.Change7d.String())
}

func TestSortPositions(t *testing.T) {
	positions := Value([]Purchase{
		buy("p1", "a", "1", "10"),
		buy("p2", "b", "3", "10"),
		buy("p3", "c", "2", "0"),
	}, PriceMap{"a": {Price: d("50")}, "b": {Price: d("5")}, "c": {Price: d("1")}})

	SortPositions(positions, DefaultPositionSort)
	assert.Equal(t, []string{"a", "b", "c"}, assetIDs(positions))

	SortPositions(positions, PositionSort{Key: PositionByAmount, Direction: market.Asc})
	assert.Equal(t, []string{"a", "c", "b"}, assetIDs(positions))

	SortPositions(positions, PositionSort{Key: PositionByPnLPct, Direction: market.Desc})
	assert.Equal(t, []string{"a", "b", "c"}, assetIDs(positions), "null percent sorts last when descending")

	SortPositions(positions, PositionSort{Key: PositionByName, Direction: market.Desc})
	assert.Equal(t, []string{"c", "b", "a"}, assetIDs(positions))
}

func TestParsePositionSortKey(t *testing.T) {
	k, err := ParsePositionSortKey("pnl_pct")
	require.NoError(t, err)
	assert.Equal(t, PositionByPnLPct, k)
	assert.Equal(t, "pnl_pct", k.String())

	k, err = ParsePositionSortKey("")
	require.NoError(t, err)
	assert.Equal(t, PositionByValue, k)

	_, err = ParsePositionSortKey("color")
	assert.Error(t, err)
}

func TestSortPurchases(t *testing.T) {
	older := buy("old", "btc", "2", "100")
	newer := buy("new", "btc", "1", "300")
	newer.Date = older.Date.Add(24 * time.Hour)
	in := []Purchase{older, newer}

	byDate := SortPurchases(in, PurchaseByDate, market.Desc)
	assert.Equal(t, "new", byDate[0].ID)
	assert.Equal(t, "old", in[0].ID, "input untouched")

	byAmount := SortPurchases(in, PurchaseByAmount, market.Asc)
	assert.Equal(t, "new", byAmount[0].ID)

	byPrice := SortPurchases(in, PurchaseByPrice, market.Desc)
	assert.Equal(t, "new", byPrice[0].ID)

	key, err := ParsePurchaseSortKey("price")
	require.NoError(t, err)
	assert.Equal(t, PurchaseByPrice, key)
	_, err = ParsePurchaseSortKey("notes")
	assert.Error(t, err)
}

func assetIDs(positions []Position) []string {
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.AssetID)
	}
	return out
}
