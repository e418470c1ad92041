package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/billing"
	"github.com/iliyamo/pos-gateway/internal/middleware"
	"github.com/iliyamo/pos-gateway/internal/model"
	"github.com/iliyamo/pos-gateway/internal/stateview"
)

// AttemptLister reads the settlement journal.
type AttemptLister interface {
	ListByOrder(ctx context.Context, orderID int64, limit int) ([]model.PaymentAttempt, error)
}

// BillingHandler serves the billing screen, receipts and the cashier queue.
type BillingHandler struct {
	Svc      *billing.Service
	View     *stateview.View // optional; supplies the already-loaded table
	Journal  AttemptLister   // optional
	Receipts billing.ReceiptOptions
}

func NewBillingHandler(svc *billing.Service, view *stateview.View, journal AttemptLister, receipts billing.ReceiptOptions) *BillingHandler {
	if svc == nil {
		panic("nil billing service passed to NewBillingHandler")
	}
	return &BillingHandler{Svc: svc, View: view, Journal: journal, Receipts: receipts}
}

// TableContext handles GET /v1/billing/tables/:id.
func (h *BillingHandler) TableContext(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var known *model.Table
	if h.View != nil {
		if t, ok := h.View.Table(id); ok {
			known = &t
		}
	}
	bc, err := h.Svc.LoadContext(c.Request().Context(), id, known)
	if err != nil {
		return writeError(c, err, "Failed to load billing data")
	}
	return c.JSON(http.StatusOK, bc)
}

type payRequest struct {
	PaymentType string  `json:"payment_type" validate:"notblank"`
	PaidAmount  float64 `json:"paid_amount" validate:"gte=0"`
}

// Pay handles POST /v1/billing/orders/:id/pay.
func (h *BillingHandler) Pay(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var body payRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, err)
	}
	p, _ := middleware.PrincipalFrom(c)
	st, err := h.Svc.ProcessPayment(c.Request().Context(), billing.PaymentRequest{
		OrderID:     id,
		PaymentType: body.PaymentType,
		PaidAmount:  body.PaidAmount,
		UserID:      p.UserID,
	})
	if err != nil {
		return writeError(c, err, billing.PaymentFailedMessage)
	}
	return c.JSON(http.StatusOK, st)
}

// Receipt handles GET /v1/billing/orders/:id/receipt.  The order the view
// already holds is printed as is; only an unknown order is fetched.  The
// receipt is plain text unless ?format=json is given.
func (h *BillingHandler) Receipt(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var text string
	if o, ok := h.cachedOrder(id); ok {
		text = billing.RenderReceipt(o, h.Receipts)
	} else if text, err = h.Svc.Receipt(c.Request().Context(), id, h.Receipts); err != nil {
		return writeError(c, err, "Failed to load order for printing")
	}
	if c.QueryParam("format") == "json" {
		return c.JSON(http.StatusOK, echo.Map{"order_id": id, "receipt": text})
	}
	return c.String(http.StatusOK, text)
}

func (h *BillingHandler) cachedOrder(id int64) (model.Order, bool) {
	if h.View == nil {
		return model.Order{}, false
	}
	return h.View.Order(id)
}

// Cashier handles GET /v1/billing/cashier?q=.
func (h *BillingHandler) Cashier(c echo.Context) error {
	orders, err := h.Svc.Cashier(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return writeError(c, err, "Failed to load bills")
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// Attempts handles GET /v1/billing/orders/:id/attempts?limit=.
func (h *BillingHandler) Attempts(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	if h.Journal == nil {
		return c.JSON(http.StatusOK, echo.Map{"attempts": []model.PaymentAttempt{}})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, err := h.Journal.ListByOrder(c.Request().Context(), id, limit)
	if err != nil {
		return writeError(c, err, "Failed to load payment attempts")
	}
	return c.JSON(http.StatusOK, echo.Map{"attempts": list})
}
