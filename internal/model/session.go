package model

// Session statuses.
const (
	SessionActive = "Active"
	SessionClosed = "Closed"
)

// Session is a staff work shift.  At most one Active session exists per user;
// the backend enforces this and the gateway does not re-validate it.
type Session struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	StartTime      Timestamp  `json:"start_time"`
	EndTime        *Timestamp `json:"end_time"`
	Status         string     `json:"status"`
	OpeningBalance float64    `json:"opening_balance"`
	ClosingBalance float64    `json:"closing_balance"`
	TotalSales     float64    `json:"total_sales"`
	TotalOrders    int        `json:"total_orders"`
	Notes          *string    `json:"notes,omitempty"`
}

// IsActive reports whether the session is still running.
func (s Session) IsActive() bool { return s.Status == SessionActive }

// SessionCreate is the body of POST /sessions/.
type SessionCreate struct {
	OpeningBalance float64 `json:"opening_balance"`
	Notes          *string `json:"notes,omitempty"`
}

// SessionUpdate is the partial body of PUT /sessions/{id}.
type SessionUpdate struct {
	ClosingBalance *float64 `json:"closing_balance,omitempty"`
	Status         *string  `json:"status,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

// SessionReportRow is one row of GET /reports/sessions.
type SessionReportRow struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	UserName       string     `json:"user_name"`
	StartTime      *Timestamp `json:"start_time"`
	EndTime        *Timestamp `json:"end_time"`
	Status         string     `json:"status"`
	OpeningBalance float64    `json:"opening_balance"`
	ClosingBalance float64    `json:"closing_balance"`
	TotalSales     float64    `json:"total_sales"`
	TotalOrders    int        `json:"total_orders"`
	Notes          *string    `json:"notes,omitempty"`
}
