package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"profit-guard/internal/broker"
	"profit-guard/internal/models"
	"profit-guard/internal/service"
	"profit-guard/internal/store"
)

// OrderWorker consumes order jobs and runs them through the profit
// pipeline. A not-found order is terminal: the message is committed
// instead of redelivered forever.
type OrderWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	orchestrator *service.Orchestrator
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(consumer *broker.Consumer, orchestrator *service.Orchestrator) *OrderWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderReceived(func(ctx context.Context, event *models.OrderReceivedEvent) error {
		_, err := orchestrator.ProcessOrderJob(ctx, event)
		if errors.Is(err, store.ErrOrderNotFound) {
			log.Printf("Order %d not found, dropping job", event.OrderID)
			return nil
		}
		return err
	})

	return &OrderWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		orchestrator: orchestrator,
	}
}

// Start starts the worker
func (w *OrderWorker) Start(ctx context.Context) error {
	log.Println("Starting order worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	log.Println("Stopping order worker...")
	return w.consumer.Close()
}

// SweepWorker periodically re-checks orders stuck in PENDING, picking
// up cost prices and policy changes that arrived after the first pass.
type SweepWorker struct {
	orchestrator *service.Orchestrator
	interval     time.Duration
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(orchestrator *service.Orchestrator, interval time.Duration) *SweepWorker {
	return &SweepWorker{
		orchestrator: orchestrator,
		interval:     interval,
	}
}

// Start runs the sweep loop until the context is cancelled
func (sw *SweepWorker) Start(ctx context.Context) {
	log.Printf("Starting pending sweep every %s", sw.interval)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweep worker stopping...")
			return
		case <-ticker.C:
			if _, err := sw.orchestrator.ProcessPendingOrders(ctx); err != nil {
				log.Printf("Pending sweep failed: %v", err)
			}
		}
	}
}
