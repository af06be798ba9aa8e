package logger

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UserIDKey is the echo.Context key under which the session middleware
// stores the acting user's id.
const UserIDKey = "user_id"

// RequestLogger logs one line per request with method, path, status,
// latency and the acting user.  It also assigns an X-Request-ID when the
// client did not send one.
func RequestLogger(l *Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			err := next(c)
			if err != nil {
				// let the HTTP error handler write the response so the status is final
				c.Error(err)
			}

			ev := l.Info()
			status := c.Response().Status
			switch {
			case status >= 500:
				ev = l.Error()
			case status >= 400:
				ev = l.Warn()
			}
			if uid, ok := c.Get(UserIDKey).(uint64); ok {
				ev = ev.Uint64("user_id", uid)
			}
			ev.Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("ip", c.RealIP()).
				Msg("request")
			return nil
		}
	}
}
