package billing

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/pos-gateway/internal/format"
	"github.com/iliyamo/pos-gateway/internal/model"
)

// ReceiptOptions controls the printed layout.
type ReceiptOptions struct {
	Width       int      // columns; 48 fits 80mm paper
	Glyph       string   // currency prefix on the total line
	Title       string   // restaurant name
	HeaderLines []string // address, phone, tax number
	Location    *time.Location
}

const (
	qtyCol = 5
	amtCol = 12
)

// Receipt re-reads the order and renders it.
func (s *Service) Receipt(ctx context.Context, orderID int64, opts ReceiptOptions) (string, error) {
	o, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return RenderReceipt(o, opts), nil
}

// RenderReceipt lays out o as fixed-width text.  It only reads the order it
// is given and performs no I/O.
func RenderReceipt(o model.Order, opts ReceiptOptions) string {
	w := opts.Width
	if w < 32 {
		w = 48
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	rule := strings.Repeat("-", w)
	var b strings.Builder
	line := func(s string) {
		b.WriteString(strings.TrimRight(s, " "))
		b.WriteByte('\n')
	}

	if opts.Title != "" {
		line(center(strings.ToUpper(opts.Title), w))
	}
	for _, h := range opts.HeaderLines {
		line(center(h, w))
	}
	line(rule)

	line("Bill No: " + o.OrderNumber)
	date := "-"
	if !o.CreatedAt.IsZero() {
		date = o.CreatedAt.In(loc).Format("2006-01-02 15:04")
	}
	line("Date: " + date)
	table := o.TableCode()
	if table == "" {
		table = "Walk-in"
	}
	line("Table: " + table)
	line("Order Type: " + o.OrderType)
	if name := o.CustomerName(); name != "" {
		line("Customer: " + name)
	}
	line(rule)

	itemCol := w - qtyCol - amtCol
	line(padRight("Item", itemCol) + padLeft("Qty", qtyCol) + padLeft("Amt", amtCol))
	for _, it := range o.Items {
		line(padRight(truncate(it.Name(), itemCol-1), itemCol) +
			padLeft(strconv.Itoa(it.Quantity), qtyCol) +
			padLeft(format.Number(it.Subtotal), amtCol))
	}
	line(rule)

	a := AmountsFor(o)
	line(spread("Subtotal:", format.Number(a.Subtotal), w))
	if a.Discount > 0 {
		line(spread("Discount:", "-"+format.Number(a.Discount), w))
	}
	if a.ServiceCharge > 0 {
		line(spread("Service Charge (5%):", format.Number(a.ServiceCharge), w))
	}
	line(spread("TOTAL:", format.Money(opts.Glyph, a.Total), w))
	line(rule)
	line(center("Thank You for Visiting!", w))
	line(center("Please visit again", w))
	return b.String()
}

func runes(s string) int { return utf8.RuneCountInString(s) }

func padRight(s string, n int) string {
	if d := n - runes(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

func padLeft(s string, n int) string {
	if d := n - runes(s); d > 0 {
		return strings.Repeat(" ", d) + s
	}
	return s
}

func center(s string, w int) string {
	if d := w - runes(s); d > 0 {
		return strings.Repeat(" ", d/2) + s
	}
	return s
}

func spread(left, right string, w int) string {
	gap := w - runes(left) - runes(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func truncate(s string, n int) string {
	if runes(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
