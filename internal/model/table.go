package model

// Table statuses as reported by the upstream.  The gateway never performs
// transitions; it only reads the current value.
const (
	TableAvailable     = "Available"
	TableOccupied      = "Occupied"
	TableReserved      = "Reserved"
	TableBillRequested = "BillRequested"
)

// Table is the server-derived read model of a dining table.  Status, ticket
// counts and the running amount are computed by the backend.
//
// Fields:
//
//	ID            – numeric primary key used in URLs.
//	TableID       – display code printed on the floor plan (e.g. "T7").
//	Floor/FloorID – seating area the table belongs to.
//	KOTCount      – pending kitchen tickets for the active order.
//	BOTCount      – pending bar tickets for the active order.
//	ActiveOrderID – order currently running on the table, when any.
//	TotalAmount   – running amount owed on the active order.
type Table struct {
	ID            int64   `json:"id"`
	TableID       string  `json:"table_id"`
	Floor         string  `json:"floor"`
	FloorID       int64   `json:"floor_id"`
	TableType     string  `json:"table_type"`
	Capacity      int     `json:"capacity"`
	Status        string  `json:"status"`
	KOTCount      int     `json:"kot_count"`
	BOTCount      int     `json:"bot_count"`
	ActiveOrderID *int64  `json:"active_order_id"`
	TotalAmount   float64 `json:"total_amount"`
}

// HasActiveOrder reports whether the backend attached a running order.
func (t Table) HasActiveOrder() bool { return t.ActiveOrderID != nil && *t.ActiveOrderID > 0 }

// TableRef is the nested table shape embedded in orders and tickets.
type TableRef struct {
	TableID string `json:"table_id"`
}
