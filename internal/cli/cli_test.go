package cli

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cointrack/internal/config"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.57", FormatMoney(decimal.RequireFromString("1234.567"), "usd"))
	assert.Equal(t, "-$5.00", FormatMoney(decimal.NewFromInt(-5), "USD"))
	assert.Equal(t, "3.14 XYZ", FormatMoney(decimal.RequireFromString("3.14159"), "xyz"))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$0.000123", FormatPrice(0.000123, "usd"))
	assert.Equal(t, "$60,000.00", FormatPrice(60000, "usd"))
	assert.Equal(t, "$0.00", FormatPrice(0, "usd"))
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "$1.23T", FormatCompact(1.234e12, "usd"))
	assert.Equal(t, "$45.60M", FormatCompact(45.6e6, "usd"))
	assert.Equal(t, "$999.00", FormatCompact(999, "usd"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "n/a", FormatPercent(decimal.NullDecimal{}))
	assert.Equal(t, "+20.00%", FormatPercent(decimal.NewNullDecimal(decimal.NewFromInt(20))))
	assert.Equal(t, "-1.50%", FormatChange(-1.5))
}

func TestConfigSummaryLines(t *testing.T) {
	assert.Equal(t, []string{"Configuration: <nil>"}, ConfigSummaryLines(nil))

	cfg := &config.Config{
		Env:   "dev",
		Store: config.StoreConf{Driver: config.StoreFile, Dir: "data"},
		Sync:  config.SyncConf{Currency: "usd", PageSize: 100, MaxPages: 5, OnPageError: "stop"},
	}
	joined := strings.Join(ConfigSummaryLines(cfg), "\n")
	assert.Contains(t, joined, "Environment: dev")
	assert.Contains(t, joined, "Ledger store: file (data)")
	assert.Contains(t, joined, "provider=<default>")
	assert.Contains(t, joined, "onPageError=stop")
	assert.Contains(t, joined, "Journal: disabled")
	assert.Contains(t, joined, "Market config: not configured")
}
