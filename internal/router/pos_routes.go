package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/handler"
	"github.com/iliyamo/pos-gateway/internal/middleware"
	"github.com/iliyamo/pos-gateway/internal/permission"
)

// registerPOS registers the floor view under /v1/pos.
func registerPOS(v1 *echo.Group, h *handler.POSHandler) {
	g := v1.Group("/pos", middleware.RequirePermission(permission.POSView))

	g.GET("/floors", h.Floors)
	g.GET("/tables", h.Tables)
	g.GET("/tables/:id/destination", h.TableDestination)
	g.GET("/tables/:id/actions", h.TableActions)
	g.GET("/kots", h.KOTs)
	g.PUT("/kots/:id/status", h.UpdateKOTStatus)
	g.POST("/refresh", h.Refresh)

	orders := v1.Group("/pos/orders", middleware.RequirePermission(permission.OrdersView, permission.POSView))
	orders.GET("", h.Orders)
	orders.POST("/:id/cancel", h.CancelOrder, middleware.RequirePermission(permission.OrdersView))
}

// registerBilling registers the billing screen and cashier queue under
// /v1/billing.
func registerBilling(v1 *echo.Group, h *handler.BillingHandler) {
	g := v1.Group("/billing", middleware.RequirePermission(permission.POSView, permission.CashierView))

	g.GET("/tables/:id", h.TableContext)
	g.POST("/orders/:id/pay", h.Pay)
	g.GET("/orders/:id/receipt", h.Receipt)
	g.GET("/orders/:id/attempts", h.Attempts)
	g.GET("/cashier", h.Cashier, middleware.RequirePermission(permission.CashierView))
}
