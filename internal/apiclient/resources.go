package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/pos-gateway/internal/model"
)

// ListFloors returns every floor.
func (c *Client) ListFloors(ctx context.Context) ([]model.Floor, error) {
	return getList[model.Floor](ctx, c, "/floors", nil)
}

// ListTables returns tables, restricted to floorID when it is non-zero.
func (c *Client) ListTables(ctx context.Context, floorID int64) ([]model.Table, error) {
	var q url.Values
	if floorID > 0 {
		q = url.Values{"floor_id": {strconv.FormatInt(floorID, 10)}}
	}
	return getList[model.Table](ctx, c, "/tables", q)
}

func (c *Client) GetTable(ctx context.Context, id int64) (model.Table, error) {
	var t model.Table
	err := c.do(ctx, http.MethodGet, "/tables/"+strconv.FormatInt(id, 10), nil, nil, &t)
	return t, err
}

// GetActiveOrder asks the backend for the table's running order.  A 404
// means no active order and is returned as (nil, nil).
func (c *Client) GetActiveOrder(ctx context.Context, tableID int64) (*model.Order, error) {
	var o model.Order
	err := c.do(ctx, http.MethodGet, "/tables/"+strconv.FormatInt(tableID, 10)+"/active-order", nil, nil, &o)
	if re, ok := AsRequestError(err); ok && re.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

// ListKOTs returns tickets, restricted to status when it is non-empty.
func (c *Client) ListKOTs(ctx context.Context, status string) ([]model.KOT, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	return getList[model.KOT](ctx, c, "/kot", q)
}

func (c *Client) UpdateKOTStatus(ctx context.Context, id int64, status string) error {
	body := map[string]string{"status": status}
	return c.do(ctx, http.MethodPut, "/kot/"+strconv.FormatInt(id, 10)+"/status", nil, body, nil)
}

// OrderFilter narrows ListOrders.  Empty fields are not sent.
type OrderFilter struct {
	Status    string
	OrderType string
}

func (c *Client) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.OrderType != "" {
		q.Set("order_type", f.OrderType)
	}
	return getList[model.Order](ctx, c, "/orders", q)
}

func (c *Client) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), nil, nil, &o)
	return o, err
}

func (c *Client) UpdateOrder(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(id, 10), nil, patch, &o)
	return o, err
}

func (c *Client) CreateSession(ctx context.Context, in model.SessionCreate) (model.Session, error) {
	var s model.Session
	err := c.do(ctx, http.MethodPost, "/sessions/", nil, in, &s)
	return s, err
}

func (c *Client) UpdateSession(ctx context.Context, id int64, in model.SessionUpdate) (model.Session, error) {
	var s model.Session
	err := c.do(ctx, http.MethodPut, "/sessions/"+strconv.FormatInt(id, 10), nil, in, &s)
	return s, err
}

// ListSessions lists sessions newest first.  Listing also makes the backend
// close sessions that have been active for more than 24 hours.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	return getList[model.Session](ctx, c, "/sessions/", nil)
}

func (c *Client) GetSession(ctx context.Context, id int64) (model.Session, error) {
	var s model.Session
	err := c.do(ctx, http.MethodGet, "/sessions/"+strconv.FormatInt(id, 10), nil, nil, &s)
	return s, err
}

func (c *Client) DashboardSummary(ctx context.Context) (model.DashboardSummary, error) {
	var d model.DashboardSummary
	err := c.do(ctx, http.MethodGet, "/reports/dashboard-summary", nil, nil, &d)
	return d, err
}

func (c *Client) SalesSummary(ctx context.Context) (model.SalesSummary, error) {
	var s model.SalesSummary
	err := c.do(ctx, http.MethodGet, "/reports/sales-summary", nil, nil, &s)
	return s, err
}

func (c *Client) SessionReport(ctx context.Context) ([]model.SessionReportRow, error) {
	return getList[model.SessionReportRow](ctx, c, "/reports/sessions", nil)
}

func (c *Client) PaymentModes(ctx context.Context) ([]model.PaymentMode, error) {
	return getList[model.PaymentMode](ctx, c, "/settings/payment-modes", nil)
}
