package cache

import (
	"fmt"
	"strings"
	"time"

	"folio-api/internal/config"
)

// Namespace is the Redis key prefix for the folio application.
const Namespace = "folio"

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

// --- Price Keys -------------------------------------------------------------

// PriceLatestKey caches the latest USD quote for an asset identifier.
func PriceLatestKey(identifier string) string {
	return formatKey("price", "latest", identifier)
}

// --- Asset Keys -------------------------------------------------------------

// AssetBySymbolKey caches a resolved exchange symbol lookup.
func AssetBySymbolKey(symbol string) string {
	return formatKey("asset", "symbol", symbol)
}

// AssetSearchKey caches a rendered search response for a keyword variant.
func AssetSearchKey(keyword, chain string, searchNfts bool) string {
	scope := "assets"
	if searchNfts {
		scope = "assets+nfts"
	}
	return formatKey("asset", "search", scope, chain, keyword)
}

// --- Exchange Sync Keys -----------------------------------------------------

// BalancesSnapshotKey caches the latest balances snapshot per location.
func BalancesSnapshotKey(location string) string {
	return formatKey("balances", location)
}

// SyncLockKey is a short-lived guard preventing overlapping sync runs for
// one location.
func SyncLockKey(location string) string {
	return formatKey("lock", "sync", location)
}

// SyncLastRunKey stores the unix timestamp of the last completed sync.
func SyncLastRunKey(location string) string {
	return formatKey("sync", "last_run", location)
}

// --- TTL Helpers ------------------------------------------------------------

// PriceTTL returns the short-lived TTL for individual price keys.
func PriceTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// AssetBySymbolTTL returns the TTL for symbol lookups; registry contents
// change rarely.
func AssetBySymbolTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// AssetSearchTTL returns the TTL for cached search responses.
func AssetSearchTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// BalancesSnapshotTTL returns the TTL for cached balances snapshots.
func BalancesSnapshotTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// SyncLockTTL returns the TTL for sync run guards.
func SyncLockTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLShort, 0.5) // target ~5s when short=10s
}

// FormatCacheKey is exported for dynamic key construction when patterns
// are not covered by helpers.
func FormatCacheKey(parts ...string) string {
	return formatKey(parts...)
}

// BuildKeyWithSuffix appends an arbitrary suffix to an existing key.
func BuildKeyWithSuffix(baseKey, suffix string) string {
	if strings.TrimSpace(suffix) == "" {
		return baseKey
	}
	return fmt.Sprintf("%s:%s", baseKey, strings.TrimSpace(suffix))
}
