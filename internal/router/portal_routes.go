package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/src-portal/internal/authz"
	"github.com/iliyamo/src-portal/internal/middleware"
	"github.com/iliyamo/src-portal/internal/settings"
)

// RegisterPortal registers the member pages.  Every group runs the login
// and password checks first, then any feature gate, then capability checks
// on the individual routes.
func RegisterPortal(e *echo.Echo, d Deps) {
	ck := d.Cookies
	auth := middleware.Authenticated(ck)
	can := func(want authz.Capability) echo.MiddlewareFunc {
		return middleware.RequireCapability(ck, want, "")
	}
	feature := func(name string) echo.MiddlewareFunc {
		return middleware.RequireFeature(ck, d.Flags, name, "")
	}
	gated := func(name string) []echo.MiddlewareFunc {
		return append(append([]echo.MiddlewareFunc{}, auth...), feature(name))
	}

	e.GET("/dashboard", d.Dashboard.Show, auth...)

	// ---- Budgets ----
	b := e.Group("/budgets", auth...)
	b.GET("", d.Budgets.List)
	b.GET("/new", d.Budgets.NewForm, can(authz.CapManageBudget))
	b.POST("", d.Budgets.Create, can(authz.CapManageBudget))
	b.GET("/:id", d.Budgets.Show)
	b.GET("/:id/edit", d.Budgets.EditForm, can(authz.CapManageBudget))
	b.POST("/:id", d.Budgets.Update, can(authz.CapManageBudget))
	// approve/reject additionally need approve_budget, checked in the handler
	b.POST("/:id/status", d.Budgets.SetStatus, can(authz.CapManageBudget))

	// ---- Elections ----
	el := e.Group("/elections", gated(settings.EnableElections)...)
	el.GET("", d.Elections.List)
	el.POST("", d.Elections.Create, can(authz.CapManageElections))
	el.GET("/:id", d.Elections.Show)
	el.POST("/:id/status", d.Elections.SetStatus, can(authz.CapManageElections))
	el.POST("/:id/candidates", d.Elections.Register)
	e.POST("/candidates/:id/status", d.Elections.SetCandidateStatus,
		append(gated(settings.EnableElections), can(authz.CapManageElections))...)

	// ---- Minutes ----
	m := e.Group("/minutes", gated(settings.EnableMinutes)...)
	m.GET("", d.Minutes.List)
	m.POST("", d.Minutes.Create, can(authz.CapManageMinutes))
	m.GET("/:id", d.Minutes.Show)
	m.POST("/:id/delete", d.Minutes.Delete, can(authz.CapManageMinutes))

	// ---- Messaging ----
	e.GET("/notifications", d.Messaging.Inbox, auth...)
	e.POST("/notifications/:id/read", d.Messaging.MarkRead, auth...)
	e.POST("/messages", d.Messaging.Send, append(append([]echo.MiddlewareFunc{}, auth...), can(authz.CapSendMessages))...)

	// ---- Public chat ----
	ch := e.Group("/chat", gated(settings.EnablePublicChat)...)
	ch.GET("", d.Chat.Page)
	ch.GET("/messages", d.Chat.Poll)
	ch.POST("/messages", d.Chat.Post)

	// ---- Senate ----
	s := e.Group("/senate", auth...)
	s.GET("", d.Senate.List)
	s.POST("/members", d.Senate.Add, can(authz.CapManageSenate))
	s.POST("/members/:id/delete", d.Senate.Remove, can(authz.CapManageSenate))
	s.GET("/diagnostics", d.Senate.Diagnostics, can(authz.CapViewDiagnostics))
}
