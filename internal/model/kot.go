package model

// Ticket types and statuses.
const (
	KOTTypeKitchen = "KOT"
	KOTTypeBar     = "BOT"

	KOTPending = "Pending"
	KOTServed  = "Served"
)

// KOTOrderRef is the parent order summary embedded in a ticket.
type KOTOrderRef struct {
	Table    *TableRef `json:"table,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
}

// KOTItem is a line on a kitchen or bar ticket.
type KOTItem struct {
	ID       int64        `json:"id"`
	Quantity int          `json:"quantity"`
	MenuItem *MenuItemRef `json:"menu_item,omitempty"`
}

// UserRef names the staff member who fired a ticket.
type UserRef struct {
	FullName string `json:"full_name"`
}

// KOT is a kitchen (KOT) or bar (BOT) order ticket routed to preparation
// staff.  Pending → Served on acknowledgment, or implicitly when the parent
// order is paid (upstream cascade).
type KOT struct {
	ID            int64        `json:"id"`
	KOTNumber     string       `json:"kot_number"`
	KOTType       string       `json:"kot_type"`
	Status        string       `json:"status"`
	CreatedAt     Timestamp    `json:"created_at"`
	Order         *KOTOrderRef `json:"order,omitempty"`
	Items         []KOTItem    `json:"items,omitempty"`
	CreatedByUser *UserRef     `json:"created_by_user,omitempty"`
}

// TableCode returns the parent order's table code, or "Walk-in".
func (k KOT) TableCode() string {
	if k.Order == nil || k.Order.Table == nil || k.Order.Table.TableID == "" {
		return "Walk-in"
	}
	return k.Order.Table.TableID
}
