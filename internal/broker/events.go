package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"profit-guard/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderReceived publishes an order job for the pipeline
func (ep *EventPublisher) PublishOrderReceived(ctx context.Context, event *models.OrderReceivedEvent) error {
	stampEvent(&event.BaseEvent, models.EventTypeOrderReceived)
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderChecked publishes the pipeline outcome for an order
func (ep *EventPublisher) PublishOrderChecked(ctx context.Context, event *models.OrderCheckedEvent) error {
	stampEvent(&event.BaseEvent, models.EventTypeOrderChecked)
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

func stampEvent(base *models.BaseEvent, eventType string) {
	if base.EventID == "" {
		base.EventID = uuid.New().String()
	}
	base.EventType = eventType
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onOrderReceived func(context.Context, *models.OrderReceivedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderReceived registers a handler for order jobs
func (eh *EventHandler) OnOrderReceived(handler func(context.Context, *models.OrderReceivedEvent) error) {
	eh.onOrderReceived = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderReceived:
		if eh.onOrderReceived != nil {
			var event models.OrderReceivedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderReceived event: %w", err)
			}
			return eh.onOrderReceived(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
