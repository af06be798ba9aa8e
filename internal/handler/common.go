package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/logger"
    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/repository"
    "github.com/iliyamo/src-portal/internal/view"
)

// dbTimeout bounds every database call a handler makes.
const dbTimeout = 5 * time.Second

// msgGeneric is shown when something failed that the user cannot fix.
const msgGeneric = "Something went wrong. Please try again."

// Base bundles what every page handler needs: the cookie for flashes and
// the logger.
type Base struct {
    Cookies *middleware.Cookies
    Log     *logger.Logger
}

// envelope is the JSON shape of every AJAX response.
type envelope struct {
    Success bool   `json:"success"`
    Message string `json:"message"`
    Data    any    `json:"data"`
}

func dbctx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// render writes page name with the caller's identity and pending flashes.
func (b Base) render(c echo.Context, status int, name, title string, data any) error {
    id := middleware.Current(c)
    p := view.Page{Title: title, User: id.User, Caps: id.Caps, Data: data}
    for _, f := range b.Cookies.Flashes(c) {
        p.Flashes = append(p.Flashes, view.Flash{Kind: f.Kind, Message: f.Message})
    }
    return c.Render(status, name, p)
}

// redirect flashes msg (if any) and sends the browser to `to` with a 302.
func (b Base) redirect(c echo.Context, kind, msg, to string) error {
    b.Cookies.AddFlash(c, kind, msg)
    return c.Redirect(http.StatusFound, to)
}

func (b Base) success(c echo.Context, msg, to string) error {
    return b.redirect(c, middleware.FlashSuccess, msg, to)
}

func (b Base) failure(c echo.Context, msg, to string) error {
    return b.redirect(c, middleware.FlashError, msg, to)
}

// internal logs err and sends the user to `to` with a generic message.
func (b Base) internal(c echo.Context, err error, to string) error {
    b.Log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
    return b.failure(c, msgGeneric, to)
}

// storeError maps repository sentinels to user-facing flashes.
func (b Base) storeError(c echo.Context, err error, to string) error {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return b.failure(c, "That record no longer exists.", to)
    case errors.Is(err, repository.ErrConflict):
        return b.failure(c, "That change is not allowed in the record's current state.", to)
    case errors.Is(err, repository.ErrDuplicate):
        return b.failure(c, "That record already exists.", to)
    }
    return b.internal(c, err, to)
}

func jsonOK(c echo.Context, msg string, data any) error {
    return c.JSON(http.StatusOK, envelope{Success: true, Message: msg, Data: data})
}

func jsonFail(c echo.Context, status int, msg string) error {
    return c.JSON(status, envelope{Success: false, Message: msg})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

func form(c echo.Context, name string) string { return strings.TrimSpace(c.FormValue(name)) }

// currentUserID returns the acting user's id, or 0.
func currentUserID(c echo.Context) uint64 {
    if u := middleware.Current(c).User; u != nil {
        return u.ID
    }
    return 0
}

// wantsJSON reports whether the client asked for a JSON reply.
func wantsJSON(c echo.Context) bool {
    r := c.Request()
    return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
        strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) ||
        strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

func trim(s string) string { return strings.TrimSpace(s) }
