package handler

import (
    "context"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/model"
)

type MinutesStore interface {
    List(ctx context.Context) ([]model.Minutes, error)
    Get(ctx context.Context, id uint64) (model.Minutes, error)
    Create(ctx context.Context, m model.Minutes) (uint64, error)
    Delete(ctx context.Context, id uint64) error
}

type MinutesHandler struct {
    Base
    Minutes MinutesStore
}

func (h *MinutesHandler) List(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    list, err := h.Minutes.List(ctx)
    if err != nil {
        return h.internal(c, err, "/dashboard")
    }
    return h.render(c, http.StatusOK, "minutes", "Meeting minutes", list)
}

func (h *MinutesHandler) Show(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown minutes.", "/minutes")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    m, err := h.Minutes.Get(ctx, id)
    if err != nil {
        return h.storeError(c, err, "/minutes")
    }
    return h.render(c, http.StatusOK, "minutes_show", m.Title, m)
}

func (h *MinutesHandler) Create(c echo.Context) error {
    title, body := form(c, "title"), form(c, "body")
    date, err := time.Parse("2006-01-02", form(c, "meeting_date"))
    if title == "" || body == "" || err != nil {
        return h.failure(c, "Title, meeting date and minutes are required.", "/minutes")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    id, err := h.Minutes.Create(ctx, model.Minutes{
        Title: title, MeetingDate: date, Body: body, CreatedBy: middleware.Current(c).User.ID,
    })
    if err != nil {
        return h.internal(c, err, "/minutes")
    }
    return h.success(c, "Minutes recorded.", fmt.Sprintf("/minutes/%d", id))
}

func (h *MinutesHandler) Delete(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown minutes.", "/minutes")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Minutes.Delete(ctx, id); err != nil {
        return h.storeError(c, err, "/minutes")
    }
    return h.success(c, "Minutes deleted.", "/minutes")
}
