package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig drives the token bucket in front of POST /login and the
// password reset form.  Capacity attempts are allowed in a burst and
// RefillTokens come back every RefillInterval.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    Prefix         string
}

func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("LOGIN_RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("LOGIN_RATE_LIMIT_CAPACITY", 5),
        RefillTokens:   envInt("LOGIN_RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("LOGIN_RATE_LIMIT_REFILL_INTERVAL", time.Minute),
        TTL:            envDur("LOGIN_RATE_LIMIT_TTL", 30*time.Minute),
        Prefix:         envStr("LOGIN_RATE_LIMIT_PREFIX", "rl:login"),
    }
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Minute }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL { c.TTL = minTTL }
    return c
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
