package cli

import (
	"fmt"
	"math"
	"strings"

	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// smallPriceDigits is the precision used for prices below one unit.
const smallPriceDigits = 6

var compactUnits = []struct {
	size   float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// FormatMoney renders amount in currency, rounded to the currency's minor unit.
// Unknown currencies fall back to two decimals and the upper-cased code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// FormatPrice renders an asset price; prices below one keep six decimals.
func FormatPrice(price float64, currency string) string {
	if math.Abs(price) >= 1 || price == 0 {
		return FormatMoney(decimal.NewFromFloat(price), currency)
	}
	return symbol(currency) + decimal.NewFromFloat(price).StringFixed(smallPriceDigits)
}

// FormatCompact renders large amounts such as market caps, e.g. "$1.23T".
func FormatCompact(amount float64, currency string) string {
	abs := math.Abs(amount)
	for _, u := range compactUnits {
		if abs >= u.size {
			return fmt.Sprintf("%s%.2f%s", symbol(currency), amount/u.size, u.suffix)
		}
	}
	return FormatMoney(decimal.NewFromFloat(amount), currency)
}

// FormatPercent renders a signed percentage; null renders as "n/a".
func FormatPercent(p decimal.NullDecimal) string {
	if !p.Valid {
		return "n/a"
	}
	return FormatChange(p.Decimal.InexactFloat64())
}

// FormatChange renders a signed float percentage with two decimals.
func FormatChange(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

func symbol(currency string) string {
	cur := money.GetCurrency(strings.ToUpper(strings.TrimSpace(currency)))
	if cur == nil {
		return ""
	}
	return cur.Grapheme
}
