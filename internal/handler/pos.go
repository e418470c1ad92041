package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/model"
	"github.com/iliyamo/pos-gateway/internal/stateview"
)

// POSHandler serves the floor view: floors, tables, tickets and orders as
// last loaded by the poller, plus the actions that change them.
type POSHandler struct {
	View *stateview.View
}

func NewPOSHandler(v *stateview.View) *POSHandler {
	if v == nil {
		panic("nil state view passed to NewPOSHandler")
	}
	return &POSHandler{View: v}
}

// Floors handles GET /v1/pos/floors.
func (h *POSHandler) Floors(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"floors":     h.View.Floors(),
		"updated_at": h.View.UpdatedAt(),
	})
}

// Tables handles GET /v1/pos/tables?floor_id=.  Without a floor the first
// floor is selected.
func (h *POSHandler) Tables(c echo.Context) error {
	floorID, tables := h.View.FloorTables(queryID(c, "floor_id"))
	return c.JSON(http.StatusOK, echo.Map{
		"floor_id":   floorID,
		"tables":     tables,
		"updated_at": h.View.UpdatedAt(),
	})
}

// table resolves the :id table from the view.  When ok is false the
// response has been written and err is its result.
func (h *POSHandler) table(c echo.Context) (t model.Table, ok bool, err error) {
	id, err := pathID(c, "id")
	if err != nil {
		return t, false, badRequest(c, err)
	}
	t, ok = h.View.Table(id)
	if !ok {
		return t, false, c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
	}
	return t, true, nil
}

// TableDestination handles GET /v1/pos/tables/:id/destination.
func (h *POSHandler) TableDestination(c echo.Context) error {
	t, ok, err := h.table(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, stateview.DestinationFor(t))
}

// TableActions handles GET /v1/pos/tables/:id/actions.
func (h *POSHandler) TableActions(c echo.Context) error {
	t, ok, err := h.table(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"table": t, "actions": h.View.Actions(t)})
}

// KOTs handles GET /v1/pos/kots?status=.  Pending tickets come from the
// view; any other status is read from the backend.
func (h *POSHandler) KOTs(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" || status == model.KOTPending {
		return c.JSON(http.StatusOK, echo.Map{"kots": h.View.PendingKOTs()})
	}
	kots, err := h.View.LoadKOTs(c.Request().Context(), status)
	if err != nil {
		return writeError(c, err, "Failed to load KOTs")
	}
	return c.JSON(http.StatusOK, echo.Map{"kots": kots})
}

type kotStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Served"`
}

// UpdateKOTStatus handles PUT /v1/pos/kots/:id/status.
func (h *POSHandler) UpdateKOTStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var body kotStatusRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, err)
	}
	if err := h.View.UpdateKOTStatus(c.Request().Context(), id, body.Status); err != nil {
		return writeError(c, err, "Failed to update KOT status")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "KOT marked as " + body.Status,
		"kots":    h.View.PendingKOTs(),
	})
}

// Orders handles GET /v1/pos/orders.
func (h *POSHandler) Orders(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"orders": h.View.Orders(), "updated_at": h.View.UpdatedAt()})
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

// CancelOrder handles POST /v1/pos/orders/:id/cancel.  The body must carry
// "confirm": true.
func (h *POSHandler) CancelOrder(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var body confirmRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, err)
	}
	o, err := h.View.CancelOrder(c.Request().Context(), id, body.Confirm)
	if err != nil {
		return writeError(c, err, "Failed to cancel order")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order cancelled successfully", "order": o})
}

// Refresh handles POST /v1/pos/refresh: an immediate reload of every
// slice.  Slices that fail keep their previous contents.
func (h *POSHandler) Refresh(c echo.Context) error {
	res := h.View.Refresh(c.Request().Context())
	msg := "Refreshed"
	if !res.OK() {
		msg = "Some data could not be loaded"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    msg,
		"failed":     res.Failed,
		"updated_at": res.UpdatedAt,
	})
}
