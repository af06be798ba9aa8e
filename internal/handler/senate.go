package handler

import (
    "context"
    "fmt"
    "net/http"
    "runtime"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/src-portal/internal/model"
)

type SenateStore interface {
    List(ctx context.Context) ([]model.SenateMember, error)
    Add(ctx context.Context, m model.SenateMember) (uint64, error)
    Remove(ctx context.Context, id uint64) error
    Stats(ctx context.Context) (map[string]int64, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

type SenateHandler struct {
    Base
    Senate       SenateStore
    DB           Pinger
    Redis        *redis.Client // nil when Redis is down
    SessionStore string        // "redis" or "memory"
    Started      time.Time
}

func (h *SenateHandler) List(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    list, err := h.Senate.List(ctx)
    if err != nil {
        return h.internal(c, err, "/dashboard")
    }
    return h.render(c, http.StatusOK, "senate", "Senate", list)
}

func (h *SenateHandler) Add(c echo.Context) error {
    m := model.SenateMember{Name: form(c, "name"), Faculty: form(c, "faculty"), Position: form(c, "position")}
    if m.Name == "" || m.Faculty == "" || m.Position == "" {
        return h.failure(c, "Name, faculty and position are required.", "/senate")
    }
    var err error
    if m.TermStart, err = time.Parse("2006-01-02", form(c, "term_start")); err != nil {
        return h.failure(c, "Term start must be a date.", "/senate")
    }
    if m.TermEnd, err = time.Parse("2006-01-02", form(c, "term_end")); err != nil || m.TermEnd.Before(m.TermStart) {
        return h.failure(c, "Term end must be a date after the term start.", "/senate")
    }
    if s := form(c, "user_id"); s != "" {
        if m.UserID, err = strconv.ParseUint(s, 10, 64); err != nil {
            return h.failure(c, "Portal user id must be a number.", "/senate")
        }
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    if _, err := h.Senate.Add(ctx, m); err != nil {
        return h.storeError(c, err, "/senate")
    }
    return h.success(c, m.Name+" added to the senate.", "/senate")
}

func (h *SenateHandler) Remove(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown senate member.", "/senate")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Senate.Remove(ctx, id); err != nil {
        return h.storeError(c, err, "/senate")
    }
    return h.success(c, "Member removed.", "/senate")
}

type diagnostics struct {
    GoVersion    string
    Goroutines   int
    HeapMB       string
    Uptime       string
    Database     string
    Redis        string
    SessionStore string
    Counts       map[string]int64
}

// Diagnostics reports runtime and backing service health.  Failures are
// shown on the page rather than redirected.
func (h *SenateHandler) Diagnostics(c echo.Context) error {
    var ms runtime.MemStats
    runtime.ReadMemStats(&ms)
    d := diagnostics{
        GoVersion:    runtime.Version(),
        Goroutines:   runtime.NumGoroutine(),
        HeapMB:       fmt.Sprintf("%.1f", float64(ms.HeapInuse)/(1<<20)),
        Uptime:       time.Since(h.Started).Round(time.Second).String(),
        Database:     "ok",
        Redis:        "not configured",
        SessionStore: h.SessionStore,
    }

    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.DB.PingContext(ctx); err != nil {
        d.Database = "unreachable: " + err.Error()
    } else if counts, err := h.Senate.Stats(ctx); err != nil {
        h.Log.Warn().Err(err).Msg("diagnostics row counts")
    } else {
        d.Counts = counts
    }
    if h.Redis != nil {
        if err := h.Redis.Ping(ctx).Err(); err != nil {
            d.Redis = "unreachable: " + err.Error()
        } else {
            d.Redis = "ok"
        }
    }
    return h.render(c, http.StatusOK, "diagnostics", "Diagnostics", d)
}
