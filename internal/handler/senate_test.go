package handler

import (
    "context"
    "errors"
    "net/http"
    "net/url"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/repository"
)

type fakeSenate struct {
    members []model.SenateMember
    counts  map[string]int64
}

func (f *fakeSenate) List(context.Context) ([]model.SenateMember, error) { return f.members, nil }

func (f *fakeSenate) Add(_ context.Context, m model.SenateMember) (uint64, error) {
    m.ID = uint64(len(f.members) + 1)
    f.members = append(f.members, m)
    return m.ID, nil
}

func (f *fakeSenate) Remove(_ context.Context, id uint64) error {
    for i, m := range f.members {
        if m.ID == id {
            f.members = append(f.members[:i], f.members[i+1:]...)
            return nil
        }
    }
    return repository.ErrNotFound
}

func (f *fakeSenate) Stats(context.Context) (map[string]int64, error) { return f.counts, nil }

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestSenateAddAndRemove(t *testing.T) {
    e, base := newApp(t)
    store := &fakeSenate{}
    h := &SenateHandler{Base: base, Senate: store}
    e.GET("/senate", h.List, as(admin))
    e.POST("/senate/members", h.Add, as(admin))
    e.POST("/senate/members/:id/delete", h.Remove, as(admin))

    rec := send(e, http.MethodPost, "/senate/members", url.Values{
        "name": {"A. Mensah"}, "faculty": {"Science"}, "position": {"Senator"},
        "term_start": {"2026-01-01"}, "term_end": {"2026-12-31"}, "user_id": {"12"},
    })
    assertRedirect(t, rec, "/senate")
    require.Len(t, store.members, 1)
    assert.Equal(t, uint64(12), store.members[0].UserID)

    page := send(e, http.MethodGet, "/senate", nil)
    require.Equal(t, http.StatusOK, page.Code)
    assert.Contains(t, page.Body.String(), "A. Mensah")

    rec = send(e, http.MethodPost, "/senate/members", url.Values{
        "name": {"B"}, "faculty": {"Arts"}, "position": {"Senator"},
        "term_start": {"2026-06-01"}, "term_end": {"2026-01-01"},
    })
    assertFlash(t, base, rec, middleware.FlashError, "Term end")

    assertRedirect(t, send(e, http.MethodPost, "/senate/members/1/delete", nil), "/senate")
    assert.Empty(t, store.members)
    rec = send(e, http.MethodPost, "/senate/members/1/delete", nil)
    assertFlash(t, base, rec, middleware.FlashError, "no longer exists")
}

func TestDiagnosticsReportsBackends(t *testing.T) {
    e, base := newApp(t)
    h := &SenateHandler{
        Base:         base,
        Senate:       &fakeSenate{counts: map[string]int64{"users": 3}},
        DB:           fakePinger{},
        SessionStore: "memory",
        Started:      time.Now().Add(-time.Minute),
    }
    e.GET("/senate/diagnostics", h.Diagnostics, as(root))

    rec := send(e, http.MethodGet, "/senate/diagnostics", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := rec.Body.String()
    assert.Contains(t, body, "not configured")
    assert.Contains(t, body, "memory")
    assert.Contains(t, body, "users")

    h.DB = fakePinger{err: errors.New("connection refused")}
    rec = send(e, http.MethodGet, "/senate/diagnostics", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "unreachable: connection refused")
}

func TestPolicyPages(t *testing.T) {
    e, base := newApp(t)
    h := &PolicyHandler{Base: base}
    e.GET("/policies", h.List)
    e.GET("/policies/:slug", h.Show)

    rec := send(e, http.MethodGet, "/policies", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    for _, p := range policies {
        assert.Contains(t, rec.Body.String(), "/policies/"+p.Slug)
    }
    rec = send(e, http.MethodGet, "/policies/finance", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "Finance Policy")

    assert.Equal(t, http.StatusNotFound, send(e, http.MethodGet, "/policies/nope", nil).Code)
}
