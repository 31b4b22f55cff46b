package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Timeframe selects the window a gain is measured over.
type Timeframe string

const (
	Timeframe24h   Timeframe = "24h"
	Timeframe7d    Timeframe = "7d"
	TimeframeTotal Timeframe = "total"
)

// Timeframes lists every supported timeframe in display order.
var Timeframes = []Timeframe{Timeframe24h, Timeframe7d, TimeframeTotal}

// ErrUnknownTimeframe is returned for a timeframe outside Timeframes.
var ErrUnknownTimeframe = errors.New("portfolio: unknown timeframe")

// ParseTimeframe validates a timeframe name.
func ParseTimeframe(name string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(name)))
	switch tf {
	case Timeframe24h, Timeframe7d, TimeframeTotal:
		return tf, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTimeframe, name)
}

// Gain is the value change of a set of positions over one timeframe.
type Gain struct {
	Timeframe Timeframe           `json:"timeframe"`
	Amount    decimal.Decimal     `json:"amount"`
	Percent   decimal.NullDecimal `json:"percent"`
}

// Gains measures positions over tf. For 24h and 7d each position contributes
// CurrentValue * change / 100 and the percent is relative to the total current
// value; total uses PnL against cost. A zero denominator yields a null percent.
func Gains(positions []Position, tf Timeframe) (Gain, error) {
	gain := Gain{Timeframe: tf}
	switch tf {
	case Timeframe24h, Timeframe7d:
		current := decimal.Zero
		for _, p := range positions {
			change := p.PriceChangePct24h
			if tf == Timeframe7d {
				change = p.PriceChangePct7d
			}
			gain.Amount = gain.Amount.Add(p.CurrentValue.Mul(change).Div(hundred))
			current = current.Add(p.CurrentValue)
		}
		gain.Percent = percentOf(gain.Amount, current)
	case TimeframeTotal:
		cost := decimal.Zero
		for _, p := range positions {
			gain.Amount = gain.Amount.Add(p.PnL)
			cost = cost.Add(p.TotalValue)
		}
		gain.Percent = percentOf(gain.Amount, cost)
	default:
		return Gain{}, fmt.Errorf("%w: %q", ErrUnknownTimeframe, string(tf))
	}
	return gain, nil
}

// Snapshot is the portfolio-wide aggregate.
type Snapshot struct {
	TotalValue  decimal.Decimal     `json:"totalValue"`
	TotalCost   decimal.Decimal     `json:"totalCost"`
	TotalPnL    decimal.Decimal     `json:"totalPnl"`
	TotalPnLPct decimal.NullDecimal `json:"totalPnlPct"`
	Positions   int                 `json:"positions"`
	Gains       map[Timeframe]Gain  `json:"gains"`
}

// Summarize aggregates positions into a Snapshot covering every timeframe.
func Summarize(positions []Position) Snapshot {
	snap := Snapshot{Positions: len(positions), Gains: make(map[Timeframe]Gain, len(Timeframes))}
	for _, p := range positions {
		snap.TotalValue = snap.TotalValue.Add(p.CurrentValue)
		snap.TotalCost = snap.TotalCost.Add(p.TotalValue)
		snap.TotalPnL = snap.TotalPnL.Add(p.PnL)
	}
	snap.TotalPnLPct = percentOf(snap.TotalPnL, snap.TotalCost)
	for _, tf := range Timeframes {
		gain, _ := Gains(positions, tf)
		snap.Gains[tf] = gain
	}
	return snap
}
