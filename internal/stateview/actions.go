package stateview

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pos-gateway/internal/model"
)

// tableViewInactive lists the order statuses the floor view treats as no
// longer running on a table.
var tableViewInactive = map[string]bool{
	model.OrderCompleted: true,
	model.OrderCancelled: true,
	model.OrderPaid:      true,
}

// ActiveOrder picks the running order for tableID out of orders: the most
// recent by created_at (higher id on a tie) whose status is still open.
func ActiveOrder(orders []model.Order, tableID int64) *model.Order {
	var best *model.Order
	for i := range orders {
		o := &orders[i]
		if !o.IsForTable(tableID) || tableViewInactive[o.Status] {
			continue
		}
		if best == nil || newer(o, best) {
			best = o
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}

func newer(a, b *model.Order) bool {
	if a.CreatedAt.Equal(b.CreatedAt.Time) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt.Time)
}

// ActiveOrderForTable resolves the table's running order from the cached
// order list.
func (v *View) ActiveOrderForTable(tableID int64) *model.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return ActiveOrder(v.orders, tableID)
}

// Actions offered on a table.
const (
	ActionOrderTaking = "order_taking"
	ActionBilling     = "billing"
)

// Actions returns the menu a terminal shows for t.  Order taking is always
// offered; billing only when something is running on the table.
func (v *View) Actions(t model.Table) []string {
	if t.HasActiveOrder() || t.Status == model.TableOccupied || t.Status == model.TableBillRequested ||
		v.ActiveOrderForTable(t.ID) != nil {
		return []string{ActionOrderTaking, ActionBilling}
	}
	return []string{ActionOrderTaking}
}

// Destination kinds.
const (
	DestinationOrder           = "order"
	DestinationOrderWithActive = "order_with_active"
)

// Destination is where a table click leads.  Table travels along so the
// next screen can skip fetching it.
type Destination struct {
	Kind    string      `json:"kind"`
	Path    string      `json:"path"`
	Table   model.Table `json:"table"`
	OrderID *int64      `json:"order_id,omitempty"`
}

// DestinationFor resolves a table click by the presence of active_order_id.
func DestinationFor(t model.Table) Destination {
	d := Destination{
		Kind:  DestinationOrder,
		Path:  "/pos/order/" + strconv.FormatInt(t.ID, 10),
		Table: t,
	}
	if t.HasActiveOrder() {
		id := *t.ActiveOrderID
		d.Kind = DestinationOrderWithActive
		d.OrderID = &id
	}
	return d
}

// UpdateKOTStatus records a ticket transition and then re-reads the Pending
// tickets followed by the tables, since serving a ticket changes the
// table's pending counts.  Re-read failures leave the previous values.
func (v *View) UpdateKOTStatus(ctx context.Context, id int64, status string) error {
	if err := v.api.UpdateKOTStatus(ctx, id, status); err != nil {
		return err
	}
	v.publish(ctx, "kot.status_changed", map[string]any{"kot_id": id, "status": status})
	_, _ = v.LoadKOTs(ctx, model.KOTPending)
	_, _ = v.LoadTables(ctx, 0)
	v.saveSnapshot(ctx)
	return nil
}

// CancelOrder sets the order to Cancelled.  confirmed must be true,
// otherwise nothing is sent upstream.
func (v *View) CancelOrder(ctx context.Context, id int64, confirmed bool) (model.Order, error) {
	if !confirmed {
		return model.Order{}, ErrConfirmationRequired
	}
	status := model.OrderCancelled
	o, err := v.api.UpdateOrder(ctx, id, model.OrderPatch{Status: &status})
	if err != nil {
		return model.Order{}, err
	}
	v.publish(ctx, "order.cancelled", map[string]any{"order_id": id, "order_number": o.OrderNumber})
	_ = v.LoadOrders(ctx)
	_, _ = v.LoadTables(ctx, 0)
	v.saveSnapshot(ctx)
	return o, nil
}

// Trigger asks a running poller for an immediate refresh.  Triggers that
// arrive while one is already queued are merged.
func (v *View) Trigger() {
	select {
	case v.trigger <- struct{}{}:
	default:
	}
}

func (v *View) publish(ctx context.Context, key string, payload any) {
	if v.events == nil {
		return
	}
	if err := v.events.Publish(ctx, key, payload); err != nil {
		v.log.WithError(err).WithFields(logrus.Fields{"routing_key": key}).Warn("publish event")
	}
}
