package handler

import (
    "context"
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

type fakeElections struct {
    rows      map[uint64]model.Election
    created   []model.Election
    cands     []model.Candidate
    candState map[uint64]model.CandidateStatus
}

func (f *fakeElections) List(context.Context) ([]model.Election, error) { return nil, nil }

func (f *fakeElections) Get(_ context.Context, id uint64) (model.Election, error) {
    e, ok := f.rows[id]
    if !ok {
        return model.Election{}, repository.ErrNotFound
    }
    return e, nil
}

func (f *fakeElections) Create(_ context.Context, e model.Election) (uint64, error) {
    f.created = append(f.created, e)
    return 5, nil
}

func (f *fakeElections) SetStatus(_ context.Context, id uint64, st model.ElectionStatus) error {
    e := f.rows[id]
    e.Status = st
    f.rows[id] = e
    return nil
}

func (f *fakeElections) Candidates(context.Context, uint64) ([]model.Candidate, error) {
    return f.cands, nil
}

func (f *fakeElections) Register(_ context.Context, c model.Candidate) (uint64, error) {
    for _, x := range f.cands {
        if x.ElectionID == c.ElectionID && x.UserID == c.UserID && x.Position == c.Position {
            return 0, repository.ErrDuplicate
        }
    }
    f.cands = append(f.cands, c)
    return uint64(len(f.cands)), nil
}

func (f *fakeElections) SetCandidateStatus(_ context.Context, id uint64, st model.CandidateStatus) error {
    f.candState[id] = st
    return nil
}

var student = model.User{ID: 20, Username: "fresher", Role: model.RoleStudent}

func TestElectionRegistration(t *testing.T) {
    e, base := newApp(t)
    now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
    store := &fakeElections{
        rows: map[uint64]model.Election{
            1: {ID: 1, Title: "General", Status: model.ElectionOpen, OpensAt: now.Add(-time.Hour), ClosesAt: now.Add(time.Hour)},
            2: {ID: 2, Title: "By-election", Status: model.ElectionOpen, OpensAt: now.Add(time.Hour), ClosesAt: now.Add(2 * time.Hour)},
        },
        candState: map[uint64]model.CandidateStatus{},
    }
    h := &ElectionHandler{Base: base, Elections: store, Now: func() time.Time { return now }}
    e.GET("/elections/:id", h.Show, as(student))
    e.POST("/elections/:id/candidates", h.Register, as(student))

    form := url.Values{"position": {"President"}, "manifesto": {"More study space."}}
    rec := send(e, http.MethodPost, "/elections/1/candidates", form)
    assertRedirect(t, rec, "/elections/1")
    assertFlash(t, base, rec, middleware.FlashSuccess, "Registration received")
    require.Len(t, store.cands, 1)
    assert.Equal(t, uint64(20), store.cands[0].UserID)

    rec = send(e, http.MethodPost, "/elections/1/candidates", form)
    assertFlash(t, base, rec, middleware.FlashError, "already registered")

    rec = send(e, http.MethodPost, "/elections/2/candidates", form)
    assertFlash(t, base, rec, middleware.FlashError, "closed")

    rec = send(e, http.MethodPost, "/elections/1/candidates", url.Values{"position": {"President"}})
    assertFlash(t, base, rec, middleware.FlashError, "required")
    assert.Len(t, store.cands, 1)

    assert.Equal(t, http.StatusOK, send(e, http.MethodGet, "/elections/1", nil).Code)
    assertRedirect(t, send(e, http.MethodGet, "/elections/9", nil), "/elections")
}

func TestElectionCreateAndStatus(t *testing.T) {
    e, base := newApp(t)
    store := &fakeElections{rows: map[uint64]model.Election{5: {ID: 5}}, candState: map[uint64]model.CandidateStatus{}}
    h := &ElectionHandler{Base: base, Elections: store}
    e.POST("/elections", h.Create, as(admin))
    e.POST("/elections/:id/status", h.SetStatus, as(admin))
    e.POST("/candidates/:id/status", h.SetCandidateStatus, as(admin))

    rec := send(e, http.MethodPost, "/elections", url.Values{
        "title": {"General"}, "opens_at": {"2026-03-01T09:00"}, "closes_at": {"2026-03-01T08:00"},
    })
    assertFlash(t, base, rec, middleware.FlashError, "close after it opens")

    rec = send(e, http.MethodPost, "/elections", url.Values{
        "title": {"General"}, "opens_at": {"2026-03-01T09:00"}, "closes_at": {"2026-03-08T17:00"},
    })
    assertRedirect(t, rec, "/elections/5")
    require.Len(t, store.created, 1)

    assertRedirect(t, send(e, http.MethodPost, "/elections/5/status", url.Values{"status": {"open"}}), "/elections/5")
    assert.Equal(t, model.ElectionOpen, store.rows[5].Status)
    rec = send(e, http.MethodPost, "/elections/5/status", url.Values{"status": {"cancelled"}})
    assertFlash(t, base, rec, middleware.FlashError, "Unknown status")

    assertRedirect(t, send(e, http.MethodPost, "/candidates/3/status", url.Values{"status": {"approved"}}), "/elections")
    assert.Equal(t, model.CandidateApproved, store.candState[3])
}
