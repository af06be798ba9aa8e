package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/repository"
)

type ElectionStore interface {
    List(ctx context.Context) ([]model.Election, error)
    Get(ctx context.Context, id uint64) (model.Election, error)
    Create(ctx context.Context, e model.Election) (uint64, error)
    SetStatus(ctx context.Context, id uint64, status model.ElectionStatus) error
    Candidates(ctx context.Context, electionID uint64) ([]model.Candidate, error)
    Register(ctx context.Context, c model.Candidate) (uint64, error)
    SetCandidateStatus(ctx context.Context, id uint64, status model.CandidateStatus) error
}

type ElectionHandler struct {
    Base
    Elections ElectionStore
    Now       func() time.Time
}

type electionPage struct {
    Election   model.Election
    Candidates []model.Candidate
    Open       bool
}

// datetime-local inputs carry no zone; they are read as UTC.
const formDateTime = "2006-01-02T15:04"

func (h *ElectionHandler) now() time.Time {
    if h.Now != nil {
        return h.Now()
    }
    return time.Now().UTC()
}

func (h *ElectionHandler) List(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    list, err := h.Elections.List(ctx)
    if err != nil {
        return h.internal(c, err, "/dashboard")
    }
    return h.render(c, http.StatusOK, "elections", "Elections", list)
}

func (h *ElectionHandler) Show(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown election.", "/elections")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    e, err := h.Elections.Get(ctx, id)
    if err != nil {
        return h.storeError(c, err, "/elections")
    }
    cands, err := h.Elections.Candidates(ctx, id)
    if err != nil {
        return h.internal(c, err, "/elections")
    }
    return h.render(c, http.StatusOK, "election_show", e.Title, electionPage{
        Election: e, Candidates: cands, Open: e.AcceptsCandidates(h.now()),
    })
}

// Create adds a draft election.
func (h *ElectionHandler) Create(c echo.Context) error {
    title := form(c, "title")
    opens, err1 := time.Parse(formDateTime, form(c, "opens_at"))
    closes, err2 := time.Parse(formDateTime, form(c, "closes_at"))
    switch {
    case title == "":
        return h.failure(c, "A title is required.", "/elections")
    case err1 != nil || err2 != nil:
        return h.failure(c, "Enter valid opening and closing times.", "/elections")
    case !closes.After(opens):
        return h.failure(c, "The election must close after it opens.", "/elections")
    }

    ctx, cancel := dbctx(c)
    defer cancel()
    id, err := h.Elections.Create(ctx, model.Election{Title: title, OpensAt: opens, ClosesAt: closes})
    if err != nil {
        return h.internal(c, err, "/elections")
    }
    return h.success(c, "Election created.", fmt.Sprintf("/elections/%d", id))
}

func (h *ElectionHandler) SetStatus(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown election.", "/elections")
    }
    show := fmt.Sprintf("/elections/%d", id)
    st := model.ElectionStatus(form(c, "status"))
    if st != model.ElectionDraft && st != model.ElectionOpen && st != model.ElectionClosed {
        return h.failure(c, "Unknown status.", show)
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Elections.SetStatus(ctx, id, st); err != nil {
        return h.storeError(c, err, show)
    }
    return h.success(c, "Election is now "+string(st)+".", show)
}

// Register enters the caller as a candidate while registration is open.
// A second registration for the same position is refused.
func (h *ElectionHandler) Register(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown election.", "/elections")
    }
    show := fmt.Sprintf("/elections/%d", id)
    position, manifesto := form(c, "position"), form(c, "manifesto")
    if position == "" || manifesto == "" {
        return h.failure(c, "Position and manifesto are required.", show)
    }

    ctx, cancel := dbctx(c)
    defer cancel()
    e, err := h.Elections.Get(ctx, id)
    if err != nil {
        return h.storeError(c, err, "/elections")
    }
    if !e.AcceptsCandidates(h.now()) {
        return h.failure(c, "Registration for this election is closed.", show)
    }
    _, err = h.Elections.Register(ctx, model.Candidate{
        ElectionID: id,
        UserID:     middleware.Current(c).User.ID,
        Position:   position,
        Manifesto:  manifesto,
    })
    if errors.Is(err, repository.ErrDuplicate) {
        return h.failure(c, "You have already registered for this position.", show)
    }
    if err != nil {
        return h.internal(c, err, show)
    }
    return h.success(c, "Registration received. It will be reviewed by the electoral committee.", show)
}

func (h *ElectionHandler) SetCandidateStatus(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown candidate.", "/elections")
    }
    st := model.CandidateStatus(form(c, "status"))
    if st != model.CandidateApproved && st != model.CandidateRejected && st != model.CandidatePending {
        return h.failure(c, "Unknown status.", "/elections")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Elections.SetCandidateStatus(ctx, id, st); err != nil {
        return h.storeError(c, err, "/elections")
    }
    return h.success(c, "Candidate "+string(st)+".", "/elections")
}
