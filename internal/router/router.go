package router // package router defines how HTTP routes are registered for the portal

import (
	"net/http"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/src-portal/internal/guard"
	"github.com/iliyamo/src-portal/internal/handler"    // page handlers
	"github.com/iliyamo/src-portal/internal/middleware" // session, guard and throttling middleware
)

// Deps carries every handler and shared middleware the routes need.  Login
// and Cache may be nil, in which case the routes are registered without
// throttling or caching.
type Deps struct {
	Cookies *middleware.Cookies
	Flags   middleware.FeatureChecker
	Login   echo.MiddlewareFunc // throttles credential POSTs
	Cache   echo.MiddlewareFunc // caches public pages

	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Budgets   *handler.BudgetHandler
	Elections *handler.ElectionHandler
	Minutes   *handler.MinutesHandler
	Messaging *handler.MessagingHandler
	Chat      *handler.ChatHandler
	Senate    *handler.SenateHandler
	Admin     *handler.AdminHandler
	Policies  *handler.PolicyHandler
}

// RegisterRoutes registers every route of the portal.  The caller installs
// the global middleware (request logging, LoadSession) on e beforehand.
// A pending password change then pins every logged-in request, public
// pages included, to the change form.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Use(middleware.RequirePasswordCurrent(d.Cookies))

	// Liveness probe; exempt from every guard.
	e.GET("/healthz", handler.Health)
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, guard.DefaultFallback)
	})

	RegisterPublic(e, d)
	RegisterAuth(e, d)
	RegisterPortal(e, d)
	RegisterAdmin(e, d)
}

// optional drops nil middleware so callers can pass a disabled one.
func optional(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterPublic registers the static policy pages.  They need no login and
// are served from the page cache for anonymous visitors.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/policies", optional(d.Cache)...)
	g.GET("", d.Policies.List)
	g.GET("/:slug", d.Policies.Show)
}
