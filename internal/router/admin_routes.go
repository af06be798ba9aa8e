package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/src-portal/internal/authz"
	"github.com/iliyamo/src-portal/internal/middleware"
)

// RegisterAdmin registers the settings and user administration pages.
func RegisterAdmin(e *echo.Echo, d Deps) {
	ck := d.Cookies
	g := e.Group("/admin", middleware.Authenticated(ck)...)

	// ---- Feature flags ----
	settingsCap := middleware.RequireCapability(ck, authz.CapManageSettings, "")
	g.GET("/settings", d.Admin.Settings, settingsCap)
	g.POST("/settings", d.Admin.SaveSettings, settingsCap)

	// ---- Users ----
	usersCap := middleware.RequireCapability(ck, authz.CapManageUsers, "")
	g.GET("/users", d.Admin.UserList, usersCap)
	g.POST("/users", d.Admin.CreateUser, usersCap)
	g.POST("/users/:id/status", d.Admin.SetUserStatus, usersCap)
	g.POST("/users/:id/force-password", d.Admin.ForcePassword, usersCap)
}
