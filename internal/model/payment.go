package model

import "time"

// PaymentCash is always offered even when no other modes are configured.
const PaymentCash = "Cash"

// PaymentMode is an admin-configured payment method (FonePay, Card, ...).
type PaymentMode struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Outcomes of a settlement attempt.
const (
	AttemptPending   = "pending"
	AttemptSucceeded = "succeeded"
	AttemptFailed    = "failed"
	AttemptRejected  = "rejected"
)

// PaymentAttempt is a journalled request to settle an order.
type PaymentAttempt struct {
	ID          int64     `json:"id"`
	AttemptID   string    `json:"attempt_id"`
	OrderID     int64     `json:"order_id"`
	UserID      string    `json:"user_id"`
	PaymentType string    `json:"payment_type"`
	PaidAmount  float64   `json:"paid_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentOutcome closes a journalled attempt.
type PaymentOutcome struct {
	Status       string  `json:"status"`
	NetAmount    float64 `json:"net_amount"`
	CreditAmount float64 `json:"credit_amount"`
	ChangeAmount float64 `json:"change_amount"`
	Error        string  `json:"error,omitempty"`
}
