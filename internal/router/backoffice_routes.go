package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/handler"
	"github.com/iliyamo/pos-gateway/internal/middleware"
	"github.com/iliyamo/pos-gateway/internal/permission"
)

// registerSessions registers the shift endpoints.  Any terminal user may
// run their own shift; the report needs dashboard access.
func registerSessions(v1 *echo.Group, h *handler.SessionHandler) {
	g := v1.Group("/sessions")

	g.POST("", h.Start)
	g.GET("/current", h.Current)
	g.POST("/current/end", h.End)
	g.GET("/report", h.Report, middleware.RequirePermission(permission.DashboardView))
}

// registerDashboard registers the manager dashboard.  Responses are cached
// per user for a few seconds.
func registerDashboard(v1 *echo.Group, a Auth, h *handler.DashboardHandler) {
	g := v1.Group("/dashboard",
		middleware.RequirePermission(permission.DashboardView),
		middleware.NewRedisCache(a.Cache, a.Redis),
	)

	g.GET("", h.Summary)
	g.GET("/day-book", h.DayBook)
}
