package handler

import (
    "context"
    "net/http"
    "strconv"
    "unicode/utf8"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/model"
)

const (
    chatPollLimit = 100
    chatMaxLen    = 500
)

type ChatStore interface {
    Post(ctx context.Context, userID uint64, body string) (uint64, error)
    Since(ctx context.Context, after uint64, limit int) ([]model.ChatMessage, error)
}

type ChatHandler struct {
    Base
    Chat ChatStore
}

func (h *ChatHandler) Page(c echo.Context) error {
    return h.render(c, http.StatusOK, "chat", "Public chat", nil)
}

// Poll returns messages newer than ?after=, oldest first.
func (h *ChatHandler) Poll(c echo.Context) error {
    var after uint64
    if s := c.QueryParam("after"); s != "" {
        n, err := strconv.ParseUint(s, 10, 64)
        if err != nil {
            return jsonFail(c, http.StatusBadRequest, "after must be a message id")
        }
        after = n
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    msgs, err := h.Chat.Since(ctx, after, chatPollLimit)
    if err != nil {
        h.Log.Error().Err(err).Msg("poll chat")
        return jsonFail(c, http.StatusInternalServerError, msgGeneric)
    }
    return jsonOK(c, "", msgs)
}

func (h *ChatHandler) Post(c echo.Context) error {
    body := form(c, "body")
    if n := utf8.RuneCountInString(body); n == 0 || n > chatMaxLen {
        return jsonFail(c, http.StatusUnprocessableEntity, "Messages must be 1 to 500 characters.")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    id, err := h.Chat.Post(ctx, currentUserID(c), body)
    if err != nil {
        h.Log.Error().Err(err).Msg("post chat")
        return jsonFail(c, http.StatusInternalServerError, msgGeneric)
    }
    return jsonOK(c, "posted", map[string]uint64{"id": id})
}
