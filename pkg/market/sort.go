package market

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortKey enumerates the listing columns an asset list can be ordered by.
type SortKey int

const (
	SortMarketCap SortKey = iota
	SortPrice
	SortChange24h
	SortChange7d
	SortVolume
)

var sortKeyFields = [...]string{
	SortMarketCap: "market_cap",
	SortPrice:     "current_price",
	SortChange24h: "price_change_percentage_24h",
	SortChange7d:  "price_change_percentage_7d",
	SortVolume:    "total_volume",
}

// One comparator per key, indexed by SortKey.
var sortKeyComparators = [...]func(a, b *Asset) int{
	SortMarketCap: func(a, b *Asset) int { return cmp.Compare(a.MarketCap, b.MarketCap) },
	SortPrice:     func(a, b *Asset) int { return cmp.Compare(a.CurrentPrice, b.CurrentPrice) },
	SortChange24h: func(a, b *Asset) int { return cmp.Compare(a.PriceChangePct24h, b.PriceChangePct24h) },
	SortChange7d:  func(a, b *Asset) int { return cmp.Compare(a.PriceChangePct7d, b.PriceChangePct7d) },
	SortVolume:    func(a, b *Asset) int { return cmp.Compare(a.TotalVolume, b.TotalVolume) },
}

// Field returns the upstream field name of the key.
func (k SortKey) Field() string {
	if !k.valid() {
		return ""
	}
	return sortKeyFields[k]
}

func (k SortKey) String() string { return k.Field() }

func (k SortKey) valid() bool {
	return k >= 0 && int(k) < len(sortKeyFields)
}

// ParseSortKey maps an upstream field name to its key.
func ParseSortKey(field string) (SortKey, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	for i, name := range sortKeyFields {
		if name == field {
			return SortKey(i), nil
		}
	}
	return 0, fmt.Errorf("market: unsupported sort key %q", field)
}

// Direction is the ordering direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection validates a direction string.
func ParseDirection(dir string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(dir))); d {
	case Asc, Desc:
		return d, nil
	default:
		return "", fmt.Errorf("market: unsupported sort direction %q", dir)
	}
}

// Sort is an active ordering of the asset list.
type Sort struct {
	Key       SortKey
	Direction Direction
}

// DefaultSort orders by market cap, largest first.
var DefaultSort = Sort{Key: SortMarketCap, Direction: Desc}

// ParseSort builds a Sort from its textual parts.
func ParseSort(key, dir string) (Sort, error) {
	k, err := ParseSortKey(key)
	if err != nil {
		return Sort{}, err
	}
	d, err := ParseDirection(dir)
	if err != nil {
		return Sort{}, err
	}
	return Sort{Key: k, Direction: d}, nil
}

// Order renders the upstream order parameter, e.g. "market_cap_desc".
func (s Sort) Order() string {
	return s.Key.Field() + "_" + string(s.Direction)
}

// Compare orders a relative to b under s.
func (s Sort) Compare(a, b *Asset) int {
	if !s.Key.valid() {
		return 0
	}
	c := sortKeyComparators[s.Key](a, b)
	if s.Direction == Desc {
		return -c
	}
	return c
}

// Apply sorts assets in place; ties keep their relative order.
func (s Sort) Apply(assets []Asset) {
	slices.SortStableFunc(assets, func(a, b Asset) int {
		return s.Compare(&a, &b)
	})
}
