package middleware

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/src-portal/internal/config"
	"github.com/iliyamo/src-portal/internal/guard"
)

// Flash kinds.
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

const (
	keyToken = "sid"
	keyNext  = "next"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Cookies manages the signed and encrypted browser cookie.  It carries the
// opaque session token, pending flash messages and the page to return to
// after login.  Nothing else about the session lives in the browser.
type Cookies struct {
	store *sessions.CookieStore
	name  string
}

func NewCookies(cfg config.SessionConfig) *Cookies {
	st := sessions.NewCookieStore(cfg.HashKey, cfg.BlockKey)
	st.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// the codecs carry their own 30 day limit unless told otherwise
	st.MaxAge(int(cfg.MaxAge.Seconds()))
	name := cfg.CookieName
	if name == "" {
		name = "src_session"
	}
	return &Cookies{store: st, name: name}
}

// get never fails: an undecodable cookie yields a fresh session.
func (k *Cookies) get(c echo.Context) *sessions.Session {
	s, _ := k.store.Get(c.Request(), k.name)
	return s
}

func (k *Cookies) save(c echo.Context, s *sessions.Session) {
	if err := s.Save(c.Request(), c.Response()); err != nil {
		c.Logger().Errorf("session cookie save: %v", err)
	}
}

// Token returns the session token from the cookie, or "".
func (k *Cookies) Token(c echo.Context) string {
	v, _ := k.get(c).Values[keyToken].(string)
	return v
}

func (k *Cookies) SetToken(c echo.Context, token string) {
	s := k.get(c)
	s.Values[keyToken] = token
	k.save(c, s)
}

// ClearToken drops the token but keeps flashes.
func (k *Cookies) ClearToken(c echo.Context) {
	s := k.get(c)
	if _, ok := s.Values[keyToken]; !ok {
		return
	}
	delete(s.Values, keyToken)
	k.save(c, s)
}

func (k *Cookies) AddFlash(c echo.Context, kind, msg string) {
	if msg == "" {
		return
	}
	s := k.get(c)
	s.AddFlash(msg, kind)
	k.save(c, s)
}

// Flashes pops every pending flash message.
func (k *Cookies) Flashes(c echo.Context) []Flash {
	s := k.get(c)
	var out []Flash
	for _, kind := range []string{FlashError, FlashSuccess} {
		for _, v := range s.Flashes(kind) {
			if m, ok := v.(string); ok {
				out = append(out, Flash{Kind: kind, Message: m})
			}
		}
	}
	if len(out) > 0 {
		k.save(c, s)
	}
	return out
}

// Remember stores the post-login destination if it is a local path.
func (k *Cookies) Remember(c echo.Context, path string) {
	safe, ok := guard.SafeRedirect(path)
	if !ok {
		return
	}
	s := k.get(c)
	s.Values[keyNext] = safe
	k.save(c, s)
}

// TakeRemembered pops the stored post-login destination.
func (k *Cookies) TakeRemembered(c echo.Context) string {
	s := k.get(c)
	v, _ := s.Values[keyNext].(string)
	if v == "" {
		return ""
	}
	delete(s.Values, keyNext)
	k.save(c, s)
	if safe, ok := guard.SafeRedirect(v); ok {
		return safe
	}
	return ""
}
