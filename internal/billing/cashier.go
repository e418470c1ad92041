package billing

import (
	"context"
	"strings"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/model"
)

// CashierQueue keeps the orders awaiting the cashier (Completed or Pending)
// whose order number or customer name contains query, case-insensitively.
func CashierQueue(orders []model.Order, query string) []model.Order {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != model.OrderCompleted && o.Status != model.OrderPending {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(o.OrderNumber), q) &&
			!strings.Contains(strings.ToLower(o.CustomerName()), q) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Cashier fetches the order list and filters it with CashierQueue.
func (s *Service) Cashier(ctx context.Context, query string) ([]model.Order, error) {
	orders, err := s.api.ListOrders(ctx, apiclient.OrderFilter{})
	if err != nil {
		return nil, err
	}
	return CashierQueue(orders, query), nil
}
