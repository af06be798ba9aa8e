package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/logger"
    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/view"
)

// NewHTTPErrorHandler replaces Echo's default handler.  Errors are logged;
// the client sees a plain page or a JSON envelope, never internals.
func NewHTTPErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status := http.StatusInternalServerError
        msg := msgGeneric
        var he *echo.HTTPError
        if errors.As(err, &he) {
            status = he.Code
            if status < http.StatusInternalServerError {
                msg = http.StatusText(status)
            }
        }
        if status >= http.StatusInternalServerError {
            log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
        }

        if c.Request().Method == http.MethodHead {
            _ = c.NoContent(status)
            return
        }
        if wantsJSON(c) {
            _ = jsonFail(c, status, msg)
            return
        }
        id := middleware.Current(c)
        page := view.Page{Title: http.StatusText(status), User: id.User, Caps: id.Caps, Data: msg}
        if rerr := c.Render(status, "error", page); rerr != nil {
            _ = c.String(status, msg)
        }
    }
}
