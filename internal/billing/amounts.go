package billing

import (
	"math"

	"github.com/iliyamo/pos-gateway/internal/model"
)

// Amounts is the bill breakdown shown before settlement.  Only the three
// aggregate fields of the order take part; item composition does not.
type Amounts struct {
	Subtotal        float64 `json:"subtotal"`
	Discount        float64 `json:"discount"`
	ServiceCharge   float64 `json:"service_charge"`
	Total           float64 `json:"total"`
	AmountToPay     float64 `json:"amount_to_pay"`
	DefaultReceived float64 `json:"default_received"`
}

// jsRound rounds half toward +Inf, so jsRound(-2.5) == -2.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}

// ServiceCharge is round(net − gross + discount).
func ServiceCharge(o model.Order) float64 {
	return jsRound(o.NetAmount - o.GrossAmount + o.Discount)
}

// AmountsFor derives the bill breakdown of o.
func AmountsFor(o model.Order) Amounts {
	return Amounts{
		Subtotal:        o.GrossAmount,
		Discount:        o.Discount,
		ServiceCharge:   ServiceCharge(o),
		Total:           o.NetAmount,
		AmountToPay:     o.NetAmount,
		DefaultReceived: o.NetAmount,
	}
}

// Change owed back to the customer.
func Change(net, paid float64) float64 {
	return math.Max(0, paid-net)
}

// Credit left outstanding on the order.
func Credit(net, paid float64) float64 {
	return math.Max(0, net-paid)
}
