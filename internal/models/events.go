package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderReceived = "ORDER_RECEIVED"
	EventTypeOrderChecked  = "ORDER_CHECKED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderReceivedEvent is the queue job payload delivered once (at least)
// per incoming marketplace order
type OrderReceivedEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	WebhookEventID string `json:"webhook_event_id,omitempty"`
}

// OrderCheckedEvent is published after the profit pipeline has run for
// an order, for downstream consumers (dashboard, analytics)
type OrderCheckedEvent struct {
	BaseEvent
	OrderID      int64           `json:"order_id"`
	Marketplace  string          `json:"marketplace"`
	Status       string          `json:"status"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	AnyDangerous bool            `json:"any_dangerous"`
}
