package config

import (
    "log"
    "time"
)

// SessionConfig controls the browser cookie and server-side session
// lifetime.  HashKey signs the cookie and BlockKey encrypts it; BlockKey
// must be 16, 24 or 32 bytes long.
type SessionConfig struct {
    CookieName         string
    HashKey            []byte
    BlockKey           []byte
    Secure             bool
    IdleTimeout        time.Duration
    MaxAge             time.Duration
    PasswordMaxAgeDays int           // 0 disables password expiry
    ResetTTL           time.Duration // validity of a password reset link
    RedisPrefix        string
}

// LoadSessionConfig reads SESSION_* variables.  The keys are required; the
// other fields have defaults.
func LoadSessionConfig() SessionConfig {
    c := SessionConfig{
        CookieName:         envStr("SESSION_COOKIE_NAME", "src_session"),
        HashKey:            []byte(must("SESSION_HASH_KEY")),
        BlockKey:           []byte(must("SESSION_BLOCK_KEY")),
        Secure:             envBool("SESSION_COOKIE_SECURE", false),
        IdleTimeout:        envDur("SESSION_IDLE_TIMEOUT", 30*time.Minute),
        MaxAge:             envDur("SESSION_MAX_AGE", 12*time.Hour),
        PasswordMaxAgeDays: envInt("PASSWORD_MAX_AGE_DAYS", 90),
        ResetTTL:           envDur("RESET_TOKEN_TTL", 30*time.Minute),
        RedisPrefix:        envStr("SESSION_REDIS_PREFIX", "src"),
    }
    switch len(c.BlockKey) {
    case 16, 24, 32:
    default:
        log.Fatalf("SESSION_BLOCK_KEY must be 16, 24 or 32 bytes, got %d", len(c.BlockKey))
    }
    if len(c.HashKey) < 32 {
        log.Fatalf("SESSION_HASH_KEY must be at least 32 bytes")
    }
    if c.MaxAge < c.IdleTimeout {
        c.MaxAge = c.IdleTimeout
    }
    return c
}
