// Package queue carries gateway events over RabbitMQ: outgoing domain
// events on the pos.events topic exchange and incoming change
// notifications on the pos.changes queue.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys published by the gateway.
const (
	KeyKOTStatusChanged = "kot.status_changed"
	KeyOrderCancelled   = "order.cancelled"
	KeyPaymentSettled   = "payment.settled"
)

// Event is the envelope written to pos.events.  Data holds the
// routing-key specific payload.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// ChangeEvent is what the backend posts to pos.changes whenever floor,
// table, order or KOT data changes.  Only Entity is required.
type ChangeEvent struct {
	Entity string `json:"entity"`
	ID     int64  `json:"id,omitempty"`
	Action string `json:"action,omitempty"`
}

// DecodeChange parses a change notification.
func DecodeChange(body []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("unmarshal change: %w", err)
	}
	if ev.Entity == "" {
		return ChangeEvent{}, fmt.Errorf("change event without entity")
	}
	return ev, nil
}
