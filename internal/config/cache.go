package config

import "time"

// CacheConfig controls the Redis response cache for the public policy
// pages.  Only GET responses with status 200 are stored.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("POLICY_CACHE_ENABLED", true),
        TTL:          envDur("POLICY_CACHE_TTL", 10*time.Minute),
        Prefix:       envStr("POLICY_CACHE_PREFIX", "cache:policy"),
        MaxBodyBytes: envInt("POLICY_CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
