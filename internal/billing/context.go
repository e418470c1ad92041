package billing

import (
	"context"
	"fmt"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/model"
)

// NoActiveOrderMessage is shown when a table has nothing to settle.
const NoActiveOrderMessage = "No active order found for this table."

// EmptyState is the terminal screen for a table without a running order.
// It is a valid outcome, not an error, and offers a single way out.
type EmptyState struct {
	Message string `json:"message"`
	Exit    string `json:"exit"`
}

// Context is everything the billing screen needs for one table.
type Context struct {
	Table        model.Table  `json:"table"`
	Order        *model.Order `json:"order,omitempty"`
	Amounts      *Amounts     `json:"amounts,omitempty"`
	PaymentModes []string     `json:"payment_modes"`
	DefaultMode  string       `json:"default_mode"`
	Empty        *EmptyState  `json:"empty,omitempty"`
}

// LoadContext resolves the table (known may carry it already), finds the
// running order from a freshly fetched order list and lists the payment
// modes.  Cash is always offered and selected by default.
func (s *Service) LoadContext(ctx context.Context, tableID int64, known *model.Table) (Context, error) {
	var table model.Table
	if known != nil && known.ID == tableID {
		table = *known
	} else {
		t, err := s.api.GetTable(ctx, tableID)
		if err != nil {
			return Context{}, err
		}
		table = t
	}

	order, err := s.activeOrder(ctx, tableID)
	if err != nil {
		return Context{}, err
	}

	bc := Context{
		Table:        table,
		PaymentModes: s.paymentModes(ctx),
		DefaultMode:  model.PaymentCash,
	}
	if order == nil {
		bc.Empty = &EmptyState{Message: NoActiveOrderMessage, Exit: "/pos"}
		return bc, nil
	}
	amounts := AmountsFor(*order)
	bc.Order = order
	bc.Amounts = &amounts
	return bc, nil
}

func (s *Service) activeOrder(ctx context.Context, tableID int64) (*model.Order, error) {
	if s.activeByAPI {
		o, err := s.api.GetActiveOrder(ctx, tableID)
		if err != nil {
			return nil, fmt.Errorf("active order for table %d: %w", tableID, err)
		}
		if o != nil && settledStatuses[o.Status] {
			return nil, nil
		}
		return o, nil
	}
	orders, err := s.api.ListOrders(ctx, apiclient.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return pickUnsettled(orders, tableID), nil
}

// pickUnsettled returns the most recent order on tableID that billing may
// still settle.
func pickUnsettled(orders []model.Order, tableID int64) *model.Order {
	var best *model.Order
	for i := range orders {
		o := orders[i]
		if !o.IsForTable(tableID) || settledStatuses[o.Status] {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt.Time) ||
			(o.CreatedAt.Equal(best.CreatedAt.Time) && o.ID > best.ID) {
			best = &o
		}
	}
	return best
}

func (s *Service) paymentModes(ctx context.Context) []string {
	modes := []string{model.PaymentCash}
	list, err := s.api.PaymentModes(ctx)
	if err != nil {
		s.log.WithError(err).Warn("load payment modes; offering cash only")
		return modes
	}
	for _, m := range list {
		if m.Name != "" && m.Name != model.PaymentCash {
			modes = append(modes, m.Name)
		}
	}
	return modes
}
