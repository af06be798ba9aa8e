package handler

import (
    "context"
    "net/http"
    "net/url"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/repository"
)

type fakeMinutes struct{ rows map[uint64]model.Minutes }

func (f *fakeMinutes) List(context.Context) ([]model.Minutes, error) {
    var out []model.Minutes
    for _, m := range f.rows {
        out = append(out, m)
    }
    return out, nil
}

func (f *fakeMinutes) Get(_ context.Context, id uint64) (model.Minutes, error) {
    m, ok := f.rows[id]
    if !ok {
        return model.Minutes{}, repository.ErrNotFound
    }
    return m, nil
}

func (f *fakeMinutes) Create(_ context.Context, m model.Minutes) (uint64, error) {
    m.ID = uint64(len(f.rows) + 1)
    f.rows[m.ID] = m
    return m.ID, nil
}

func (f *fakeMinutes) Delete(_ context.Context, id uint64) error {
    if _, ok := f.rows[id]; !ok {
        return repository.ErrNotFound
    }
    delete(f.rows, id)
    return nil
}

func TestMinutesLifecycle(t *testing.T) {
    e, base := newApp(t)
    store := &fakeMinutes{rows: map[uint64]model.Minutes{}}
    h := &MinutesHandler{Base: base, Minutes: store}
    member := model.User{ID: 30, Username: "sec", Role: model.RoleMember}
    e.GET("/minutes", h.List, as(member))
    e.POST("/minutes", h.Create, as(member))
    e.GET("/minutes/:id", h.Show, as(member))
    e.POST("/minutes/:id/delete", h.Delete, as(member))

    rec := send(e, http.MethodPost, "/minutes", url.Values{
        "title": {"March council"}, "meeting_date": {"2026-03-04"}, "body": {"Quorum reached."},
    })
    assertRedirect(t, rec, "/minutes/1")
    require.Contains(t, store.rows, uint64(1))
    assert.Equal(t, uint64(30), store.rows[1].CreatedBy)

    rec = send(e, http.MethodGet, "/minutes/1", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "Quorum reached.")
    assert.Equal(t, http.StatusOK, send(e, http.MethodGet, "/minutes", nil).Code)

    rec = send(e, http.MethodPost, "/minutes", url.Values{"title": {"x"}, "meeting_date": {"04/03/2026"}, "body": {"y"}})
    assertFlash(t, base, rec, middleware.FlashError, "required")

    assertRedirect(t, send(e, http.MethodPost, "/minutes/1/delete", nil), "/minutes")
    assert.Empty(t, store.rows)
    rec = send(e, http.MethodPost, "/minutes/1/delete", nil)
    assertFlash(t, base, rec, middleware.FlashError, "no longer exists")
}
