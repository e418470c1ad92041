// Package router registers the gateway's HTTP routes.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pos-gateway/internal/config"
	"github.com/iliyamo/pos-gateway/internal/handler"
	"github.com/iliyamo/pos-gateway/internal/middleware"
	"github.com/iliyamo/pos-gateway/internal/permission"
	"github.com/iliyamo/pos-gateway/internal/realtime"
)

// Auth bundles what the protected groups need: token verification, the
// capability resolver and the Redis-backed limiter and cache.
type Auth struct {
	JWTSecret string
	Resolver  *permission.Resolver
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       logrus.FieldLogger
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterRealtime mounts the SockJS endpoint.  SockJS authenticates each
// connection itself.
func RegisterRealtime(e *echo.Echo, h http.Handler) {
	e.Any(realtime.Prefix+"/*", echo.WrapHandler(h))
}

// Handlers are the terminal API handlers.  Nil handlers leave their
// routes unregistered.
type Handlers struct {
	POS       *handler.POSHandler
	Billing   *handler.BillingHandler
	Sessions  *handler.SessionHandler
	Dashboard *handler.DashboardHandler
}

// RegisterAPI registers the authenticated, rate-limited /v1 routes.
func RegisterAPI(e *echo.Echo, a Auth, h Handlers) {
	g := e.Group("/v1",
		middleware.JWTAuth(a.JWTSecret, a.Resolver),
		middleware.NewTokenBucket(a.RateLimit, a.Redis, a.Log),
	)
	g.GET("/me", handler.Me)
	if h.POS != nil {
		registerPOS(g, h.POS)
	}
	if h.Billing != nil {
		registerBilling(g, h.Billing)
	}
	if h.Sessions != nil {
		registerSessions(g, h.Sessions)
	}
	if h.Dashboard != nil {
		registerDashboard(g, a, h.Dashboard)
	}
}
