package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/middleware"
)

type UnreadCounter interface {
    CountUnread(ctx context.Context, userID uint64) (int, error)
}

type DashboardHandler struct {
    Base
    Inbox UnreadCounter
}

type dashboardData struct {
    Unread int
}

// Show renders the landing page after login.
func (h *DashboardHandler) Show(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    n, err := h.Inbox.CountUnread(ctx, middleware.Current(c).User.ID)
    if err != nil {
        // the count is decoration; show the page anyway
        h.Log.Warn().Err(err).Msg("count unread notifications")
    }
    return h.render(c, http.StatusOK, "dashboard", "Dashboard", dashboardData{Unread: n})
}
