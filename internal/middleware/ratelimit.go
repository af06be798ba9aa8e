package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/src-portal/internal/config"
)

// loginBucket is a token bucket kept in a Redis hash.  It returns
// {allowed, tokens_left, retry_after_ms}.
var loginBucket = redis.NewScript(`
local cap      = tonumber(ARGV[2])
local now      = tonumber(ARGV[1])
local refill   = tonumber(ARGV[3])
local every    = tonumber(ARGV[4])

local h = redis.call('HMGET', KEYS[1], 't', 'ts')
local tokens = tonumber(h[1]) or cap
local ts     = tonumber(h[2]) or now

local steps = math.floor(math.max(0, now - ts) / every)
if steps > 0 then
  tokens = math.min(cap, tokens + steps * refill)
  ts = ts + steps * every
end

local ok, wait = 0, 0
if tokens >= 1 then
  ok = 1
  tokens = tokens - 1
else
  wait = math.max(0, every - (now - ts))
end

redis.call('HSET', KEYS[1], 't', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {ok, tokens, wait}
`)

// NewTokenBucket throttles credential forms per client IP and route.  Only
// POSTs count; GETs of the form pass through.  A blocked browser is sent
// back to the form with a flash, a JSON client gets a 429 envelope.  When
// Redis is missing or errors the request is let through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, ck *Cookies) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodPost {
                return next(c)
            }
            key := rateKey(cfg.Prefix, c)
            vals, err := loginBucket.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL/time.Second),
            ).Int64Slice()
            if err != nil || len(vals) != 3 {
                c.Logger().Warnf("ratelimit: key=%s: %v", key, err)
                return next(c)
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
            if vals[0] == 1 {
                return next(c)
            }

            secs := int(math.Ceil(float64(vals[2]) / 1000.0))
            c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
            msg := "Too many attempts. Please wait " + strconv.Itoa(secs) + " seconds and try again."
            if wantsJSON(c) {
                return c.JSON(http.StatusTooManyRequests, map[string]any{
                    "success": false,
                    "message": msg,
                    "data":    map[string]int{"retry_after": secs},
                })
            }
            ck.AddFlash(c, FlashError, msg)
            return c.Redirect(http.StatusFound, c.Request().URL.RequestURI())
        }
    }
}

func rateKey(prefix string, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    return strings.Join([]string{prefix, "ip", ip, "route", c.Request().URL.Path}, ":")
}

// wantsJSON reports whether the caller is an AJAX/JSON client.
func wantsJSON(c echo.Context) bool {
    r := c.Request()
    if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
        return true
    }
    return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
        strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
