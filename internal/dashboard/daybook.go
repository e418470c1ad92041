package dashboard

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/model"
)

// Day book modes.  The day book lists settled orders; the sales mode lists
// every order.
const (
	ModeDayBook = "daybook"
	ModeSales   = "sales"
)

// Payment statuses shown in the day book.
const (
	StatusFullPaid = "Fullpaid"
	StatusPending  = "Pending"
)

type DayBookEntry struct {
	ID            int64   `json:"id"`
	OrderNumber   string  `json:"order_number"`
	PaymentStatus string  `json:"payment_status"`
	Received      float64 `json:"received"`
}

type DayBook struct {
	Mode          string         `json:"mode"`
	Entries       []DayBookEntry `json:"entries"`
	TotalReceived float64        `json:"total_received"`
}

func settled(status string) bool {
	return status == model.OrderPaid || status == model.OrderCompleted
}

// orderSeq is the numeric suffix after the last '-' of an order number, or
// 0 when there is none.
func orderSeq(number string) int {
	tail := number
	if i := strings.LastIndex(number, "-"); i >= 0 {
		tail = number[i+1:]
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return 0
	}
	return n
}

// BuildDayBook turns orders into day book entries, newest order number
// first.
func BuildDayBook(orders []model.Order, mode string) DayBook {
	if mode != ModeSales {
		mode = ModeDayBook
	}
	db := DayBook{Mode: mode, Entries: []DayBookEntry{}}
	for _, o := range orders {
		if mode == ModeDayBook && !settled(o.Status) {
			continue
		}
		e := DayBookEntry{ID: o.ID, OrderNumber: o.OrderNumber, PaymentStatus: StatusPending, Received: o.PaidAmount}
		if settled(o.Status) {
			e.PaymentStatus = StatusFullPaid
		}
		db.Entries = append(db.Entries, e)
		db.TotalReceived += e.Received
	}
	sort.SliceStable(db.Entries, func(i, j int) bool {
		return orderSeq(db.Entries[i].OrderNumber) > orderSeq(db.Entries[j].OrderNumber)
	})
	return db
}

// DayBook fetches the order list and builds the day book.
func (a *Aggregator) DayBook(ctx context.Context, mode string) (DayBook, error) {
	orders, err := a.api.ListOrders(ctx, apiclient.OrderFilter{})
	if err != nil {
		return DayBook{}, err
	}
	return BuildDayBook(orders, mode), nil
}
