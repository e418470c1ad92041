package model

// Order statuses.
const (
	OrderPending    = "Pending"
	OrderInProgress = "In Progress"
	OrderCompleted  = "Completed"
	OrderPaid       = "Paid"
	OrderCancelled  = "Cancelled"
	OrderRefunded   = "Refunded"
)

// Order types.
const (
	OrderTypeTable           = "Table"
	OrderTypeSelfDelivery    = "Self Delivery"
	OrderTypeDeliveryPartner = "Delivery Partner"
	OrderTypeTakeaway        = "Takeaway"
	OrderTypePayFirst        = "Pay First"
)

// Customer is the nested customer shape carried by orders and tickets.
type Customer struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// MenuItemRef names the menu item behind an order or ticket line.
type MenuItemRef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// OrderItem is a single line on an order.
type OrderItem struct {
	ID       int64        `json:"id"`
	MenuItem *MenuItemRef `json:"menu_item,omitempty"`
	Quantity int          `json:"quantity"`
	Price    float64      `json:"price"`
	Subtotal float64      `json:"subtotal"`
	Notes    string       `json:"notes,omitempty"`
}

// Name returns the menu item name or an empty string.
func (i OrderItem) Name() string {
	if i.MenuItem == nil {
		return ""
	}
	return i.MenuItem.Name
}

// KOTRef is the short ticket shape listed on an order.
type KOTRef struct {
	ID      int64  `json:"id,omitempty"`
	KOTType string `json:"kot_type"`
}

// Order mirrors the upstream order resource.  An order belongs to exactly
// one table or is tableless (takeaway, delivery).  Monetary fields are whole
// currency floats.
type Order struct {
	ID           int64       `json:"id"`
	OrderNumber  string      `json:"order_number"`
	OrderType    string      `json:"order_type"`
	Status       string      `json:"status"`
	TableID      *int64      `json:"table_id"`
	Table        *TableRef   `json:"table,omitempty"`
	Customer     *Customer   `json:"customer,omitempty"`
	Items        []OrderItem `json:"items,omitempty"`
	KOTs         []KOTRef    `json:"kots,omitempty"`
	GrossAmount  float64     `json:"gross_amount"`
	Discount     float64     `json:"discount"`
	NetAmount    float64     `json:"net_amount"`
	PaidAmount   float64     `json:"paid_amount"`
	CreditAmount float64     `json:"credit_amount"`
	PaymentType  string      `json:"payment_type,omitempty"`
	CreatedAt    Timestamp   `json:"created_at"`
}

// IsForTable reports whether the order is attached to table id.
func (o Order) IsForTable(id int64) bool { return o.TableID != nil && *o.TableID == id }

// CustomerName returns the customer's name or an empty string.
func (o Order) CustomerName() string {
	if o.Customer == nil {
		return ""
	}
	return o.Customer.Name
}

// TableCode returns the display code of the order's table, if any.
func (o Order) TableCode() string {
	if o.Table == nil {
		return ""
	}
	return o.Table.TableID
}

// TicketCounts counts the KOT and BOT tickets fired for the order.
func (o Order) TicketCounts() (kot, bot int) {
	for _, k := range o.KOTs {
		switch k.KOTType {
		case KOTTypeKitchen:
			kot++
		case KOTTypeBar:
			bot++
		}
	}
	return kot, bot
}

// OrderPatch is the partial update body accepted by PUT /orders/{id}.  Only
// non-nil fields are sent.
type OrderPatch struct {
	Status       *string  `json:"status,omitempty"`
	PaymentType  *string  `json:"payment_type,omitempty"`
	PaidAmount   *float64 `json:"paid_amount,omitempty"`
	CreditAmount *float64 `json:"credit_amount,omitempty"`
}
