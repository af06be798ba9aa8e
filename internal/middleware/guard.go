package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/src-portal/internal/authz"
	"github.com/iliyamo/src-portal/internal/guard"
)

// FeatureChecker reports whether a feature flag is on;
// *settings.Service satisfies it.
type FeatureChecker interface {
	Enabled(ctx context.Context, name string) (bool, error)
}

// apply turns a denying decision into a 302 with a flash message.
func apply(c echo.Context, ck *Cookies, d guard.Decision) error {
	if d.RememberPath != "" {
		ck.Remember(c, d.RememberPath)
	}
	ck.AddFlash(c, FlashError, d.Flash)
	c.Logger().Debugf("guard: %s %s denied (%s)", c.Request().Method, c.Request().URL.Path, d.Reason)
	return c.Redirect(http.StatusFound, d.Redirect)
}

func decide(ck *Cookies, fn func(c echo.Context) guard.Decision) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d := fn(c); !d.Allow {
				return apply(c, ck, d)
			}
			return next(c)
		}
	}
}

// RequireLogin sends anonymous callers to /login and remembers where
// they were going.
func RequireLogin(ck *Cookies) echo.MiddlewareFunc {
	return decide(ck, func(c echo.Context) guard.Decision {
		return guard.RequireLogin(GuardRequest(c))
	})
}

// RequirePasswordCurrent sends callers with a pending password change to
// the change form.  Anonymous callers pass, so it can also run globally
// after LoadSession.  Place it before any capability check.
func RequirePasswordCurrent(ck *Cookies) echo.MiddlewareFunc {
	return decide(ck, func(c echo.Context) guard.Decision {
		return guard.RequirePasswordCurrent(GuardRequest(c))
	})
}

// RequireCapability redirects callers lacking want to fallback ("" means
// the dashboard).
func RequireCapability(ck *Cookies, want authz.Capability, fallback string) echo.MiddlewareFunc {
	return decide(ck, func(c echo.Context) guard.Decision {
		return guard.RequireCapability(GuardRequest(c), want, fallback)
	})
}

// RequireFeature redirects when flag name is off or cannot be read.
func RequireFeature(ck *Cookies, flags FeatureChecker, name, fallback string) echo.MiddlewareFunc {
	return decide(ck, func(c echo.Context) guard.Decision {
		on, err := flags.Enabled(c.Request().Context(), name)
		if err != nil {
			c.Logger().Errorf("feature %s: %v", name, err)
		}
		return guard.RequireFeature(on, err, fallback)
	})
}

// Authenticated is the standard chain for logged-in pages.
func Authenticated(ck *Cookies) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{RequireLogin(ck), RequirePasswordCurrent(ck)}
}
