package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/src-portal/internal/config"
)

// bodyRecorder tees the response body so a 200 can be stored.  It stops
// buffering past limit and marks the response as too large to cache.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *bodyRecorder) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }
func (w *bodyRecorder) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

func pageCacheKey(prefix string, c echo.Context) string {
    sum := sha1.Sum([]byte(c.Request().URL.RequestURI()))
    return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// packPage lays out [status u32][header len u32][header JSON][body].
func packPage(status int, h http.Header, body []byte) ([]byte, error) {
    hj, err := json.Marshal(h)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hj)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hj)))
    copy(out[8:], hj)
    copy(out[8+len(hj):], body)
    return out, nil
}

func unpackPage(bs []byte) (int, http.Header, []byte, bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    hl := int(binary.BigEndian.Uint32(bs[4:8]))
    if 8+hl > len(bs) {
        return 0, nil, nil, false
    }
    h := http.Header{}
    if hl > 0 {
        if err := json.Unmarshal(bs[8:8+hl], &h); err != nil {
            return 0, nil, nil, false
        }
    }
    return int(binary.BigEndian.Uint32(bs[0:4])), h, bs[8+hl:], true
}

// NewRedisCache caches anonymous GET responses of public pages.  Requests
// from logged-in users bypass the cache since their pages carry personal
// navigation.  Without Redis it is a no-op.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 10 * time.Minute
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet || Current(c).LoggedIn() {
                return next(c)
            }
            ctx := c.Request().Context()
            key := pageCacheKey(cfg.Prefix, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, h, body, ok := unpackPage(bs); ok {
                    for k, vs := range h {
                        if k == echo.HeaderContentLength || k == echo.HeaderSetCookie {
                            continue
                        }
                        for _, v := range vs {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, _ = c.Response().Write(body)
                    return nil
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }
            h := c.Response().Header().Clone()
            h.Del(echo.HeaderSetCookie)
            h.Del("X-Cache")
            if payload, err := packPage(rec.status, h, rec.buf.Bytes()); err == nil {
                _ = rdb.Set(context.Background(), key, payload, ttl).Err()
            }
            return nil
        }
    }
}
