package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookiesHonourLongMaxAge(t *testing.T) {
	cfg := testSessionConfig
	cfg.MaxAge = 90 * 24 * time.Hour
	ck := NewCookies(cfg)

	want := int64(cfg.MaxAge / time.Second)
	require.NotEmpty(t, ck.store.Codecs)
	for _, codec := range ck.store.Codecs {
		got := reflect.ValueOf(codec).Elem().FieldByName("maxAge").Int()
		assert.Equal(t, want, got)
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	ck.SetToken(c, "tok")
	var set *http.Cookie
	for _, x := range rec.Result().Cookies() {
		if x.Name == cfg.CookieName {
			set = x
		}
	}
	require.NotNil(t, set)
	assert.Equal(t, int(want), set.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(set)
	assert.Equal(t, "tok", ck.Token(e.NewContext(req, httptest.NewRecorder())))
}
