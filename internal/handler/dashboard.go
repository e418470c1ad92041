package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/dashboard"
)

type DashboardHandler struct {
	Agg *dashboard.Aggregator
}

func NewDashboardHandler(agg *dashboard.Aggregator) *DashboardHandler {
	return &DashboardHandler{Agg: agg}
}

// Summary handles GET /v1/dashboard.  Reports that fail are listed in
// "failed" and their cards read zero.
func (h *DashboardHandler) Summary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Agg.Build(c.Request().Context()))
}

// DayBook handles GET /v1/dashboard/day-book?mode=daybook|sales.
func (h *DashboardHandler) DayBook(c echo.Context) error {
	db, err := h.Agg.DayBook(c.Request().Context(), c.QueryParam("mode"))
	if err != nil {
		return writeError(c, err, "Failed to load orders")
	}
	return c.JSON(http.StatusOK, db)
}
