package model

// TopItem is an entry of the top-selling or top-outstanding lists.
type TopItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity,omitempty"`
	Revenue  float64 `json:"revenue,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// AreaSales is the net sales attributed to one floor.
type AreaSales struct {
	Area   string  `json:"area"`
	Amount float64 `json:"amount"`
}

// DashboardSummary is the denormalised read-only aggregate returned by
// GET /reports/dashboard-summary for the last 24 hours.
type DashboardSummary struct {
	Occupancy           float64     `json:"occupancy"`
	TotalTables         int         `json:"total_tables"`
	OccupiedTables      int         `json:"occupied_tables"`
	Sales24h            float64     `json:"sales_24h"`
	PaidSales           float64     `json:"paid_sales"`
	CreditSales         float64     `json:"credit_sales"`
	Discount            float64     `json:"discount"`
	Orders24h           int         `json:"orders_24h"`
	DineInCount         int         `json:"dine_in_count"`
	TakeawayCount       int         `json:"takeaway_count"`
	DeliveryCount       int         `json:"delivery_count"`
	OutstandingRevenue  float64     `json:"outstanding_revenue"`
	TopOutstandingItems []TopItem   `json:"top_outstanding_items"`
	TopSellingItems     []TopItem   `json:"top_selling_items"`
	SalesByArea         []AreaSales `json:"sales_by_area"`
	PeakTimeData        []int       `json:"peak_time_data"`
	HourlySales         []float64   `json:"hourly_sales"`
	Period              string      `json:"period"`
}

// SalesSummary is returned by GET /reports/sales-summary.
type SalesSummary struct {
	TotalSales        float64 `json:"total_sales"`
	TotalOrders       int     `json:"total_orders"`
	AverageOrderValue float64 `json:"average_order_value"`
}
