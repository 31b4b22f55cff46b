package portfolio

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"cointrack/pkg/market"
)

var hundred = decimal.NewFromInt(100)

// Quote is the market data valuation needs for one asset.
type Quote struct {
	Price     decimal.Decimal
	Change24h decimal.Decimal
	Change7d  decimal.Decimal
}

// PriceMap maps asset id to its latest quote.
type PriceMap map[string]Quote

// PricesFrom builds a PriceMap from a market listing.
func PricesFrom(assets []market.Asset) PriceMap {
	prices := make(PriceMap, len(assets))
	for _, a := range assets {
		prices[a.ID] = Quote{
			Price:     decimal.NewFromFloat(a.CurrentPrice),
			Change24h: decimal.NewFromFloat(a.PriceChangePct24h),
			Change7d:  decimal.NewFromFloat(a.PriceChangePct7d),
		}
	}
	return prices
}

// Position aggregates every purchase of one asset.
type Position struct {
	AssetID   string     `json:"assetId"`
	Name      string     `json:"name"`
	Symbol    string     `json:"symbol"`
	Image     string     `json:"image,omitempty"`
	Purchases []Purchase `json:"purchases"`

	TotalAmount  decimal.Decimal     `json:"totalAmount"`
	TotalValue   decimal.Decimal     `json:"totalValue"` // cost basis
	AveragePrice decimal.Decimal     `json:"averagePrice"`
	CurrentPrice decimal.Decimal     `json:"currentPrice"`
	Priced       bool                `json:"priced"` // false when CurrentPrice fell back to a purchase price
	CurrentValue decimal.Decimal     `json:"currentValue"`
	PnL          decimal.Decimal     `json:"pnl"`
	PnLPct       decimal.NullDecimal `json:"pnlPct"`

	PriceChangePct24h decimal.Decimal `json:"priceChangePct24h"`
	PriceChangePct7d  decimal.Decimal `json:"priceChangePct7d"`
}

// Value groups purchases by asset in first-seen order and values each group
// against prices. Groups whose total amount is zero are dropped. An asset
// missing from prices is valued at its first purchase price.
func Value(purchases []Purchase, prices PriceMap) []Position {
	var (
		order  []string
		groups = map[string]*Position{}
	)
	for _, p := range purchases {
		pos, ok := groups[p.AssetID]
		if !ok {
			pos = &Position{
				AssetID: p.AssetID,
				Name:    p.Name,
				Symbol:  p.Symbol,
				Image:   p.Image,
			}
			if quote, found := prices[p.AssetID]; found {
				pos.CurrentPrice = quote.Price
				pos.Priced = true
				pos.PriceChangePct24h = quote.Change24h
				pos.PriceChangePct7d = quote.Change7d
			} else {
				pos.CurrentPrice = p.Price
			}
			groups[p.AssetID] = pos
			order = append(order, p.AssetID)
		}
		pos.Purchases = append(pos.Purchases, p)
		pos.TotalAmount = pos.TotalAmount.Add(p.Amount)
		pos.TotalValue = pos.TotalValue.Add(p.Cost())
	}

	positions := make([]Position, 0, len(order))
	for _, id := range order {
		pos := groups[id]
		if pos.TotalAmount.IsZero() {
			continue
		}
		pos.AveragePrice = pos.TotalValue.Div(pos.TotalAmount)
		pos.CurrentValue = pos.TotalAmount.Mul(pos.CurrentPrice)
		pos.PnL = pos.CurrentValue.Sub(pos.TotalValue)
		pos.PnLPct = percentOf(pos.PnL, pos.TotalValue)
		positions = append(positions, *pos)
	}
	return positions
}

// percentOf returns part/whole*100, or null when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.NullDecimal {
	if whole.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(part.Div(whole).Mul(hundred))
}

// PositionSortKey selects a position comparator.
type PositionSortKey int

const (
	PositionByValue PositionSortKey = iota
	PositionByPnL
	PositionByPnLPct
	PositionByAmount
	PositionByAveragePrice
	PositionByName
)

var positionKeyNames = [...]string{
	PositionByValue:        "value",
	PositionByPnL:          "pnl",
	PositionByPnLPct:       "pnl_pct",
	PositionByAmount:       "amount",
	PositionByAveragePrice: "average_price",
	PositionByName:         "name",
}

var positionComparators = [...]func(a, b *Position) int{
	PositionByValue:        func(a, b *Position) int { return a.CurrentValue.Cmp(b.CurrentValue) },
	PositionByPnL:          func(a, b *Position) int { return a.PnL.Cmp(b.PnL) },
	PositionByPnLPct:       func(a, b *Position) int { return cmpNull(a.PnLPct, b.PnLPct) },
	PositionByAmount:       func(a, b *Position) int { return a.TotalAmount.Cmp(b.TotalAmount) },
	PositionByAveragePrice: func(a, b *Position) int { return a.AveragePrice.Cmp(b.AveragePrice) },
	PositionByName: func(a, b *Position) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	},
}

func (k PositionSortKey) String() string {
	if k < 0 || int(k) >= len(positionKeyNames) {
		return fmt.Sprintf("PositionSortKey(%d)", int(k))
	}
	return positionKeyNames[k]
}

// ParsePositionSortKey maps a key name to its PositionSortKey; empty selects value.
func ParsePositionSortKey(name string) (PositionSortKey, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return PositionByValue, nil
	}
	for k, n := range positionKeyNames {
		if n == name {
			return PositionSortKey(k), nil
		}
	}
	return 0, fmt.Errorf("portfolio: unknown position sort key %q", name)
}

// PositionSort is the ordering of the positions view.
type PositionSort struct {
	Key       PositionSortKey
	Direction market.Direction
}

// DefaultPositionSort orders positions by current value, largest first.
var DefaultPositionSort = PositionSort{Key: PositionByValue, Direction: market.Desc}

// SortPositions orders positions in place. Ties keep their valuation order.
func SortPositions(positions []Position, sort PositionSort) {
	if sort.Key < 0 || int(sort.Key) >= len(positionComparators) {
		return
	}
	compare := positionComparators[sort.Key]
	slices.SortStableFunc(positions, func(a, b Position) int {
		c := compare(&a, &b)
		if sort.Direction == market.Desc {
			return -c
		}
		return c
	})
}

// cmpNull orders null below every value.
func cmpNull(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return a.Decimal.Cmp(b.Decimal)
}

// PurchaseSortKey selects a purchase-history comparator.
type PurchaseSortKey int

const (
	PurchaseByDate PurchaseSortKey = iota
	PurchaseByAmount
	PurchaseByPrice
)

var purchaseComparators = [...]func(a, b *Purchase) int{
	PurchaseByDate:   func(a, b *Purchase) int { return a.Date.Compare(b.Date) },
	PurchaseByAmount: func(a, b *Purchase) int { return a.Amount.Cmp(b.Amount) },
	PurchaseByPrice:  func(a, b *Purchase) int { return a.Price.Cmp(b.Price) },
}

// ParsePurchaseSortKey maps date, amount or price to a PurchaseSortKey; empty selects date.
func ParsePurchaseSortKey(name string) (PurchaseSortKey, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "date":
		return PurchaseByDate, nil
	case "amount":
		return PurchaseByAmount, nil
	case "price":
		return PurchaseByPrice, nil
	}
	return 0, fmt.Errorf("portfolio: unknown purchase sort key %q", name)
}

// SortPurchases returns a sorted copy of purchases; the default history view
// is newest first (PurchaseByDate, market.Desc).
func SortPurchases(purchases []Purchase, key PurchaseSortKey, dir market.Direction) []Purchase {
	out := slices.Clone(purchases)
	if key < 0 || int(key) >= len(purchaseComparators) {
		return out
	}
	compare := purchaseComparators[key]
	slices.SortStableFunc(out, func(a, b Purchase) int {
		c := compare(&a, &b)
		if dir == market.Desc {
			return -c
		}
		return c
	})
	return out
}
