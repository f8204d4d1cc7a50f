package cache

import (
	"testing"
	"time"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.MaxSizeBytes != DefaultMaxSizeBytes {
		t.Errorf("MaxSizeBytes = %d, want %d", cfg.MaxSizeBytes, int64(DefaultMaxSizeBytes))
	}
	if cfg.DefaultTTL != DefaultTTL {
		t.Errorf("DefaultTTL = %v, want %v", cfg.DefaultTTL, DefaultTTL)
	}
	if cfg.MaxTTL != DefaultMaxTTL {
		t.Errorf("MaxTTL = %v, want %v", cfg.MaxTTL, DefaultMaxTTL)
	}
	if cfg.AdaptiveGrowth != DefaultAdaptiveGrowth {
		t.Errorf("AdaptiveGrowth = %v, want %v", cfg.AdaptiveGrowth, DefaultAdaptiveGrowth)
	}
	if cfg.MaxExtensionFactor != DefaultMaxExtensionFactor {
		t.Errorf("MaxExtensionFactor = %v, want %v", cfg.MaxExtensionFactor, DefaultMaxExtensionFactor)
	}

	// Explicit values survive.
	custom := Config{MaxSizeBytes: 1024, DefaultTTL: time.Minute}.withDefaults()
	if custom.MaxSizeBytes != 1024 || custom.DefaultTTL != time.Minute {
		t.Errorf("withDefaults overwrote explicit values: %+v", custom)
	}

	// MaxTTL is never allowed below DefaultTTL.
	wide := Config{DefaultTTL: 48 * time.Hour}.withDefaults()
	if wide.MaxTTL != 48*time.Hour {
		t.Errorf("MaxTTL = %v, want raised to DefaultTTL", wide.MaxTTL)
	}
}

func TestConfig_EffectiveTTL(t *testing.T) {
	cfg := Config{DefaultTTL: time.Hour, MaxTTL: 4 * time.Hour}.withDefaults()

	tests := []struct {
		name      string
		requested time.Duration
		want      time.Duration
	}{
		{"zero means default", 0, time.Hour},
		{"negative means default", -time.Minute, time.Hour},
		{"in range passes through", 30 * time.Minute, 30 * time.Minute},
		{"above max clamps", 10 * time.Hour, 4 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.effectiveTTL(tt.requested); got != tt.want {
				t.Errorf("effectiveTTL(%v) = %v, want %v", tt.requested, got, tt.want)
			}
		})
	}
}

func TestConfig_ExtendExpiry(t *testing.T) {
	cfg := Config{
		DefaultTTL:         time.Hour,
		AdaptiveGrowth:     0.25,
		MaxExtensionFactor: 2,
	}
	created := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	got := cfg.extendExpiry(created, created.Add(time.Hour), time.Hour)
	want := created.Add(time.Hour + 15*time.Minute)
	if !got.Equal(want) {
		t.Errorf("extendExpiry = %v, want %v", got, want)
	}

	// Near the cap, the extension clamps to createdAt + TTL*factor.
	nearCap := created.Add(time.Hour + 55*time.Minute)
	got = cfg.extendExpiry(created, nearCap, time.Hour)
	limit := created.Add(2 * time.Hour)
	if !got.Equal(limit) {
		t.Errorf("extendExpiry near cap = %v, want %v", got, limit)
	}

	// At the cap it stays put.
	got = cfg.extendExpiry(created, limit, time.Hour)
	if !got.Equal(limit) {
		t.Errorf("extendExpiry at cap = %v, want %v", got, limit)
	}

	// The cap scales with the entry's own TTL, not DefaultTTL.
	shortCreated := created
	shortGot := cfg.extendExpiry(shortCreated, shortCreated.Add(10*time.Minute), 10*time.Minute)
	shortWant := shortCreated.Add(10*time.Minute + 150*time.Second)
	if !shortGot.Equal(shortWant) {
		t.Errorf("extendExpiry short ttl = %v, want %v", shortGot, shortWant)
	}
}
