package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/src-portal/internal/middleware"
)

// RegisterAuth registers login, logout and the password pages.  The
// credential forms are throttled per client; the change form requires a
// session but is exempt from the pending-password redirect.
func RegisterAuth(e *echo.Echo, d Deps) {
	a := d.Auth
	limit := optional(d.Login)

	e.GET("/login", a.LoginForm)
	e.POST("/login", a.Login, limit...)
	// Logout works with or without a live session.
	e.POST("/logout", a.Logout)

	e.GET("/password/forgot", a.ForgotForm)
	e.POST("/password/forgot", a.Forgot, limit...)
	e.GET("/password/reset", a.ResetForm)
	e.POST("/password/reset", a.Reset, limit...)

	auth := middleware.Authenticated(d.Cookies)
	e.GET("/password/change", a.ChangeForm, auth...)
	e.POST("/password/change", a.Change, auth...)
}
