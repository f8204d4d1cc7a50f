package cache

import "time"

// Config configures the cache engine.
type Config struct {
	// MaxSizeBytes is the memory budget across all live entries. A single
	// entry larger than this is rejected outright. Default: 64 MiB.
	MaxSizeBytes int64

	// DefaultTTL is the lifetime assigned to entries on insert unless the
	// caller requests one. Default: 1 hour.
	DefaultTTL time.Duration

	// MaxTTL caps per-entry TTL requests. Default: 24 hours, raised to
	// DefaultTTL when DefaultTTL is larger.
	MaxTTL time.Duration

	// AdaptiveTTL extends an entry's expiry on each hit so hot entries
	// persist longer. AdaptiveGrowth is the fraction of the entry's TTL
	// added per hit; MaxExtensionFactor caps total lifetime at
	// TTL * MaxExtensionFactor from creation.
	AdaptiveTTL        bool
	AdaptiveGrowth     float64
	MaxExtensionFactor float64

	// CompressThreshold enables compression for payloads larger than this
	// many bytes. Zero disables compression.
	CompressThreshold int
}

// Defaults applied by New.
const (
	DefaultMaxSizeBytes       = 64 << 20
	DefaultTTL                = time.Hour
	DefaultMaxTTL             = 24 * time.Hour
	DefaultAdaptiveGrowth     = 0.1
	DefaultMaxExtensionFactor = 4.0
)

// withDefaults fills zero fields with defaults.
func (c Config) withDefaults() Config {
	if c.MaxSizeBytes <= 0 {
		c.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = DefaultMaxTTL
	}
	if c.MaxTTL < c.DefaultTTL {
		c.MaxTTL = c.DefaultTTL
	}
	if c.AdaptiveGrowth <= 0 {
		c.AdaptiveGrowth = DefaultAdaptiveGrowth
	}
	if c.MaxExtensionFactor < 1 {
		c.MaxExtensionFactor = DefaultMaxExtensionFactor
	}
	return c
}

// effectiveTTL resolves a per-entry TTL request. Zero or negative means
// DefaultTTL; anything above MaxTTL is clamped down.
func (c Config) effectiveTTL(requested time.Duration) time.Duration {
	if requested <= 0 {
		return c.DefaultTTL
	}
	if requested > c.MaxTTL {
		return c.MaxTTL
	}
	return requested
}

// extendExpiry returns the entry's new expiry after a hit under adaptive TTL.
// Each hit adds AdaptiveGrowth * ttl, capped so the total lifetime never
// exceeds ttl * MaxExtensionFactor from creation.
func (c Config) extendExpiry(createdAt, expiresAt time.Time, ttl time.Duration) time.Time {
	extension := time.Duration(float64(ttl) * c.AdaptiveGrowth)
	candidate := expiresAt.Add(extension)
	limit := createdAt.Add(time.Duration(float64(ttl) * c.MaxExtensionFactor))
	if candidate.After(limit) {
		return limit
	}
	return candidate
}
