package cache

import (
	"strings"
	"time"

	"cointrack/internal/config"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "cointrack"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Scaled applies a multiplier to a TTL class, useful for half/double TTL variants.
func (t TTLSet) Scaled(class TTLClass, factor float64) time.Duration {
	base := t.Duration(class)
	if base <= 0 || factor <= 0 {
		return base
	}
	return time.Duration(float64(base) * factor)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Ledger Keys ------------------------------------------------------------

// LedgerKey namespaces a persistence key (portfolio-holdings, ...) for Redis.
func LedgerKey(key string) string {
	return formatKey("ledger", key)
}

// --- Price & Market Keys ----------------------------------------------------

// PriceLatestKey returns the latest price key scoped by provider.
func PriceLatestKey(provider, assetID string) string {
	return formatKey("price", "latest", provider, assetID)
}

// CryptoPricesKey holds the aggregated prices map payload.
func CryptoPricesKey() string {
	return formatKey("crypto_prices")
}

// MarketAssetKey stores static asset metadata (name, symbol, image).
func MarketAssetKey(provider, assetID string) string {
	return formatKey("market", "asset", provider, assetID)
}

// --- TTL Helpers ------------------------------------------------------------

// PriceTTL returns short-lived TTL for individual price keys.
func PriceTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// CryptoPricesTTL returns the TTL for bundled prices.
func CryptoPricesTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// MarketAssetTTL returns the TTL for static market metadata.
func MarketAssetTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLLong, 2)
}
