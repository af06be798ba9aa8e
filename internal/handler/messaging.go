package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/repository"
    "github.com/iliyamo/src-portal/internal/service"
)

type NotificationStore interface {
    ListForUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error)
    MarkRead(ctx context.Context, id, userID uint64) error
}

type Dispatcher interface {
    Dispatch(ctx context.Context, m service.Message) (service.Report, error)
}

type MessagingHandler struct {
    Base
    Notifications NotificationStore
    Dispatch      Dispatcher
}

func (h *MessagingHandler) Inbox(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    list, err := h.Notifications.ListForUser(ctx, currentUserID(c), 100)
    if err != nil {
        return h.internal(c, err, "/dashboard")
    }
    return h.render(c, http.StatusOK, "notifications", "Notifications", list)
}

func (h *MessagingHandler) MarkRead(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown notification.", "/notifications")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    err := h.Notifications.MarkRead(ctx, id, currentUserID(c))
    if wantsJSON(c) {
        switch {
        case errors.Is(err, repository.ErrNotFound):
            return jsonFail(c, http.StatusNotFound, "notification not found")
        case err != nil:
            h.Log.Error().Err(err).Msg("mark notification read")
            return jsonFail(c, http.StatusInternalServerError, msgGeneric)
        }
        return jsonOK(c, "marked read", nil)
    }
    if err != nil {
        return h.storeError(c, err, "/notifications")
    }
    return c.Redirect(http.StatusFound, "/notifications")
}

// Send broadcasts a message.  It accepts a JSON body or a form and
// answers in kind.
func (h *MessagingHandler) Send(c echo.Context) error {
    var m service.Message
    if err := c.Bind(&m); err != nil {
        return h.sendFail(c, http.StatusBadRequest, "The message could not be read.")
    }
    if len(m.Channels) == 1 && strings.Contains(m.Channels[0], ",") {
        m.Channels = strings.Split(m.Channels[0], ",")
    }
    m.SenderID = currentUserID(c)

    ctx, cancel := dbctx(c)
    defer cancel()
    rep, err := h.Dispatch.Dispatch(ctx, m)
    switch {
    case errors.Is(err, service.ErrEmptyMessage):
        return h.sendFail(c, http.StatusUnprocessableEntity, "Subject and message are required.")
    case errors.Is(err, service.ErrNoChannels), errors.Is(err, service.ErrUnknownChannel):
        return h.sendFail(c, http.StatusUnprocessableEntity, "Choose at least one valid channel.")
    case errors.Is(err, service.ErrBadAudience):
        return h.sendFail(c, http.StatusUnprocessableEntity, "Choose a valid audience.")
    case err != nil:
        h.Log.Error().Err(err).Msg("dispatch message")
        return h.sendFail(c, http.StatusInternalServerError, msgGeneric)
    }

    h.Log.Info().Uint64("sender_id", m.SenderID).Str("audience", m.Audience).
        Int("recipients", rep.Recipients).Strs("skipped", rep.Skipped).Msg("message dispatched")
    msg := summarize(rep)
    if wantsJSON(c) {
        return jsonOK(c, msg, rep)
    }
    return h.success(c, msg, "/notifications")
}

func (h *MessagingHandler) sendFail(c echo.Context, status int, msg string) error {
    if wantsJSON(c) {
        return jsonFail(c, status, msg)
    }
    return h.failure(c, msg, "/notifications")
}

func summarize(r service.Report) string {
    parts := []string{fmt.Sprintf("Sent to %d recipient(s)", r.Recipients)}
    if r.InApp > 0 {
        parts = append(parts, fmt.Sprintf("%d in-app", r.InApp))
    }
    for _, ch := range []string{service.ChannelEmail, service.ChannelSMS} {
        if n := r.Published[ch]; n > 0 {
            parts = append(parts, fmt.Sprintf("%d %s queued", n, ch))
        }
    }
    msg := strings.Join(parts, ", ") + "."
    if len(r.Skipped) > 0 {
        msg += " Disabled channels skipped: " + strings.Join(r.Skipped, ", ") + "."
    }
    return msg
}
