package handler

import (
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/src-portal/internal/authz"
    "github.com/iliyamo/src-portal/internal/config"
    "github.com/iliyamo/src-portal/internal/logger"
    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/view"
)

var testCookieConfig = config.SessionConfig{
    CookieName: "src_session",
    HashKey:    []byte("0123456789abcdef0123456789abcdef"),
    BlockKey:   []byte("abcdef0123456789abcdef0123456789"),
    MaxAge:     time.Hour,
}

// newApp returns an Echo instance with the real templates and error
// handler, plus a Base sharing its cookie codec.
func newApp(t *testing.T) (*echo.Echo, Base) {
    t.Helper()
    e := echo.New()
    r, err := view.New()
    require.NoError(t, err)
    e.Renderer = r
    e.HTTPErrorHandler = NewHTTPErrorHandler(logger.Nop())
    return e, Base{Cookies: middleware.NewCookies(testCookieConfig), Log: logger.Nop()}
}

// as installs u as the caller without going through the session store.
func as(u model.User) echo.MiddlewareFunc {
    if u.Status == "" {
        u.Status = model.StatusActive
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            uc := u
            middleware.SetIdentity(c, middleware.Identity{
                Session: &model.Session{Token: "tok", UserID: uc.ID},
                User:    &uc,
                Caps:    authz.Compute(uc),
            })
            return next(c)
        }
    }
}

func send(e *echo.Echo, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
    var req *http.Request
    if form != nil {
        req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    for _, c := range cookies {
        if c != nil {
            req.AddCookie(c)
        }
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func sendJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

// sessionCookie returns the last session cookie set on rec, or nil.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
    var found *http.Cookie
    for _, c := range rec.Result().Cookies() {
        if c.Name == testCookieConfig.CookieName {
            found = c
        }
    }
    return found
}

// flashes decodes the flash messages carried by rec's cookie.
func flashes(t *testing.T, b Base, rec *httptest.ResponseRecorder) []middleware.Flash {
    t.Helper()
    ck := sessionCookie(rec)
    require.NotNil(t, ck, "response set no cookie")
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.AddCookie(ck)
    c := echo.New().NewContext(req, httptest.NewRecorder())
    return b.Cookies.Flashes(c)
}

// tokenOf decodes the session token carried by rec's cookie.
func tokenOf(t *testing.T, b Base, rec *httptest.ResponseRecorder) string {
    t.Helper()
    ck := sessionCookie(rec)
    require.NotNil(t, ck, "response set no cookie")
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.AddCookie(ck)
    return b.Cookies.Token(echo.New().NewContext(req, httptest.NewRecorder()))
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, to string) {
    t.Helper()
    assert.Equal(t, http.StatusFound, rec.Code)
    assert.Equal(t, to, rec.Header().Get(echo.HeaderLocation))
}

func assertFlash(t *testing.T, b Base, rec *httptest.ResponseRecorder, kind, contains string) {
    t.Helper()
    fl := flashes(t, b, rec)
    require.NotEmpty(t, fl)
    assert.Equal(t, kind, fl[0].Kind)
    assert.Contains(t, fl[0].Message, contains)
}
