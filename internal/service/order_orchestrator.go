package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"profit-guard/internal/models"
	"profit-guard/internal/notify"
	"profit-guard/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderStore is the relational access the orchestrator needs
type OrderStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetSaleLinesByOrderID(ctx context.Context, orderID int64) ([]models.SaleLine, error)
	ListPendingOrders(ctx context.Context, limit int) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	UpdateSaleLineProfit(ctx context.Context, lineID int64, profit decimal.Decimal, rate *decimal.Decimal) error
}

// Deduper suppresses exact duplicate webhook deliveries
type Deduper interface {
	MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// Notifier fans an event out to the configured channels
type Notifier interface {
	Send(ctx context.Context, ev notify.Event) []notify.SendResult
}

// ResultPublisher publishes the pipeline outcome for downstream consumers
type ResultPublisher interface {
	PublishOrderChecked(ctx context.Context, event *models.OrderCheckedEvent) error
}

// LineProfit is the per-line outcome inside an order summary
type LineProfit struct {
	SaleLineID int64            `json:"sale_line_id"`
	SKU        string           `json:"sku"`
	Profit     decimal.Decimal  `json:"profit"`
	ProfitRate *decimal.Decimal `json:"profit_rate,omitempty"`
	Verdict    string           `json:"verdict"`
	Allowed    bool             `json:"allowed"`
	Dangerous  bool             `json:"dangerous"`
	SourceURL  *string          `json:"source_url,omitempty"`
}

// OrderProfitSummary is the aggregate decision for one order
type OrderProfitSummary struct {
	OrderID      int64           `json:"order_id"`
	Allowed      bool            `json:"allowed"`
	AnyDangerous bool            `json:"any_dangerous"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	Items        []LineProfit    `json:"items"`
}

// OrderProcessResult is returned to the queue transport per job
type OrderProcessResult struct {
	Success      bool            `json:"success"`
	Duplicate    bool            `json:"duplicate,omitempty"`
	OrderID      int64           `json:"order_id"`
	Status       string          `json:"status,omitempty"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	AnyDangerous bool            `json:"any_dangerous"`
	Notified     bool            `json:"notified"`
	Error        string          `json:"error,omitempty"`
}

// SweepResult tallies one batch sweep over pending orders
type SweepResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Orchestrator runs the profit pipeline once per order: per-line
// decisions, aggregate shadow log entry, status transition, and
// notification fan-out.
type Orchestrator struct {
	store     OrderStore
	engine    *DecisionEngine
	shadow    ShadowWriter
	notifier  Notifier
	publisher ResultPublisher
	dedup     Deduper
	dedupTTL  time.Duration
	batchSize int
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator. notifier, publisher and
// dedup may be nil.
func NewOrchestrator(
	store OrderStore,
	engine *DecisionEngine,
	shadow ShadowWriter,
	notifier Notifier,
	publisher ResultPublisher,
	dedup Deduper,
	dedupTTL time.Duration,
	batchSize int,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		engine:    engine,
		shadow:    shadow,
		notifier:  notifier,
		publisher: publisher,
		dedup:     dedup,
		dedupTTL:  dedupTTL,
		batchSize: batchSize,
		logger:    util.GetLogger(),
	}
}

// CheckProfit runs one standalone profit decision, usable from the
// pre-listing price simulator as well as order processing.
func (o *Orchestrator) CheckProfit(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	return o.engine.Check(ctx, req)
}

// ProcessOrderJob is the queue entry point. An exact duplicate delivery
// within the dedup TTL short-circuits before any side effect.
func (o *Orchestrator) ProcessOrderJob(ctx context.Context, job *models.OrderReceivedEvent) (*OrderProcessResult, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.ProcessOrderJob")
	defer span.End()

	if job.WebhookEventID != "" && o.dedup != nil {
		first, err := o.dedup.MarkEventSeen(ctx, job.WebhookEventID, o.dedupTTL)
		if err != nil {
			// Reprocessing a duplicate is accepted; losing a real job is not.
			o.logger.Warn("Dedup check failed, processing anyway",
				zap.String("webhook_event_id", job.WebhookEventID),
				zap.Error(err))
		} else if !first {
			o.logger.Info("Duplicate order job skipped",
				zap.Int64("order_id", job.OrderID),
				zap.String("webhook_event_id", job.WebhookEventID))
			return &OrderProcessResult{Success: true, Duplicate: true, OrderID: job.OrderID}, nil
		}
	}

	return o.ProcessOrder(ctx, job.OrderID)
}

// ProcessOrder runs the full pipeline for one order id
func (o *Orchestrator) ProcessOrder(ctx context.Context, orderID int64) (*OrderProcessResult, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.ProcessOrder")
	defer span.End()

	util.OrdersCheckedTotal.Inc()
	start := time.Now()

	order, err := o.store.GetOrderByID(ctx, orderID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("not_found").Inc()
		return &OrderProcessResult{OrderID: orderID, Error: err.Error()}, err
	}

	lines, err := o.store.GetSaleLinesByOrderID(ctx, orderID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return &OrderProcessResult{OrderID: orderID, Error: err.Error()},
			fmt.Errorf("failed to load sale lines: %w", err)
	}

	summary, err := o.checkLines(ctx, order, lines)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("check_failed").Inc()
		return &OrderProcessResult{OrderID: orderID, Error: err.Error()}, err
	}

	o.writeOrderShadow(ctx, order, summary, time.Since(start))

	status := models.OrderStatusConfirmed
	if summary.AnyDangerous {
		status = models.OrderStatusPending
	}
	if err := o.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return &OrderProcessResult{OrderID: orderID, Error: err.Error()},
			fmt.Errorf("failed to update order status: %w", err)
	}

	if summary.AnyDangerous {
		util.OrdersFlaggedTotal.Inc()
	} else {
		util.OrdersConfirmedTotal.Inc()
	}

	notified := o.notifyOrderChecked(ctx, order, summary)
	o.publishOrderChecked(ctx, order, summary, status)

	o.logger.Info("Order processed",
		zap.Int64("order_id", orderID),
		zap.String("status", status),
		zap.String("total_profit", summary.TotalProfit.String()),
		zap.Bool("any_dangerous", summary.AnyDangerous))

	return &OrderProcessResult{
		Success:      true,
		OrderID:      orderID,
		Status:       status,
		TotalProfit:  summary.TotalProfit,
		AnyDangerous: summary.AnyDangerous,
		Notified:     notified,
	}, nil
}

// CheckOrderProfit computes the aggregate decision for an order without
// mutating it. Per-line shadow entries are still written.
func (o *Orchestrator) CheckOrderProfit(ctx context.Context, orderID int64) (*OrderProfitSummary, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.CheckOrderProfit")
	defer span.End()

	order, err := o.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := o.store.GetSaleLinesByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale lines: %w", err)
	}

	return o.checkLines(ctx, order, lines)
}

// ProcessPendingOrders sweeps orders stuck in PENDING, oldest first.
// One order's failure never aborts the sweep.
func (o *Orchestrator) ProcessPendingOrders(ctx context.Context) (*SweepResult, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.ProcessPendingOrders")
	defer span.End()

	orders, err := o.store.ListPendingOrders(ctx, o.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}

	result := &SweepResult{}
	for _, order := range orders {
		if _, err := o.ProcessOrder(ctx, order.ID); err != nil {
			result.Errors++
			util.SweepErrorsTotal.Inc()
			o.logger.Error("Sweep failed for order",
				zap.Int64("order_id", order.ID),
				zap.Error(err))
			continue
		}
		result.Processed++
		util.SweepOrdersProcessedTotal.Inc()
	}

	o.logger.Info("Pending sweep completed",
		zap.Int("processed", result.Processed),
		zap.Int("errors", result.Errors))
	return result, nil
}

// checkLines runs the decision engine per sale line and aggregates
func (o *Orchestrator) checkLines(ctx context.Context, order *models.Order, lines []models.SaleLine) (*OrderProfitSummary, error) {
	summary := &OrderProfitSummary{
		OrderID: order.ID,
		Allowed: true,
		Items:   make([]LineProfit, 0, len(lines)),
	}

	for i := range lines {
		line := &lines[i]

		cost := decimal.Zero
		costUnknown := true
		if line.CostPrice != nil {
			cost = *line.CostPrice
			costUnknown = false
		}

		lineID := line.ID
		orderID := order.ID
		req := CheckRequest{
			OrderID:     &orderID,
			SaleLineID:  &lineID,
			SalePrice:   line.UnitPrice,
			CostPrice:   cost,
			CostUnknown: costUnknown,
			Marketplace: order.Marketplace,
			Category:    line.Category,
		}

		res, err := o.engine.Check(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("profit check failed for line %d: %w", line.ID, err)
		}

		var rate *decimal.Decimal
		if res.Calculation.RateDefined {
			r := res.Calculation.ProfitRate
			rate = &r
		}
		if err := o.store.UpdateSaleLineProfit(ctx, line.ID, res.Calculation.Profit, rate); err != nil {
			o.logger.Error("Failed to persist line profit",
				zap.Int64("sale_line_id", line.ID),
				zap.Error(err))
		}

		summary.TotalProfit = summary.TotalProfit.Add(res.Calculation.Profit)
		summary.AnyDangerous = summary.AnyDangerous || res.Dangerous
		summary.Allowed = summary.Allowed && res.Allowed
		summary.Items = append(summary.Items, LineProfit{
			SaleLineID: line.ID,
			SKU:        line.SKU,
			Profit:     res.Calculation.Profit,
			ProfitRate: rate,
			Verdict:    res.Verdict,
			Allowed:    res.Allowed,
			Dangerous:  res.Dangerous,
			SourceURL:  line.SourceURL,
		})
	}

	return summary, nil
}

// writeOrderShadow persists the order-level aggregate entry, separate
// from the per-line entries the engine writes.
func (o *Orchestrator) writeOrderShadow(ctx context.Context, order *models.Order, summary *OrderProfitSummary, elapsed time.Duration) {
	input, _ := json.Marshal(map[string]interface{}{
		"order_id":    order.ID,
		"marketplace": order.Marketplace,
		"external_id": order.ExternalID,
		"lines":       len(summary.Items),
	})
	output, _ := json.Marshal(summary)

	decision := models.VerdictApprove
	var reason *string
	if summary.AnyDangerous {
		decision = models.VerdictHold
		r := "one or more sale lines flagged dangerous"
		reason = &r
	}

	entry := &models.ShadowLogEntry{
		Service:    "profit-guard",
		Operation:  "check_order",
		Input:      input,
		Output:     output,
		Decision:   decision,
		Reason:     reason,
		DurationMS: elapsed.Milliseconds(),
	}

	if err := o.shadow.AppendShadowLog(ctx, entry); err != nil {
		util.ShadowLogFailuresTotal.Inc()
		o.logger.Error("Failed to write order shadow log entry",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}

// notifyOrderChecked dispatches the operator-facing summary. Returns
// false only when at least one channel delivery failed.
func (o *Orchestrator) notifyOrderChecked(ctx context.Context, order *models.Order, summary *OrderProfitSummary) bool {
	if o.notifier == nil {
		return false
	}

	severity := notify.SeveritySuccess
	title := fmt.Sprintf("Order %s confirmed", order.ExternalID)
	if summary.AnyDangerous {
		severity = notify.SeverityWarning
		title = fmt.Sprintf("Order %s held: low profit", order.ExternalID)
	}

	data := map[string]interface{}{
		"order_id":     order.ID,
		"marketplace":  order.Marketplace,
		"buyer":        order.BuyerName,
		"total":        order.TotalAmount.StringFixed(2) + " " + order.Currency,
		"total_profit": summary.TotalProfit.String() + " JPY",
	}
	if order.ShippingAddr != "" {
		data["shipping_addr"] = order.ShippingAddr
	}
	for _, item := range summary.Items {
		key := fmt.Sprintf("line %s", item.SKU)
		val := fmt.Sprintf("profit %s (%s)", item.Profit.String(), item.Verdict)
		if item.SourceURL != nil {
			val += " " + *item.SourceURL
		}
		data[key] = val
	}

	results := o.notifier.Send(ctx, notify.Event{
		Type:        notify.EventOrderChecked,
		Title:       title,
		Message:     fmt.Sprintf("%d line(s), total profit %s JPY", len(summary.Items), summary.TotalProfit.String()),
		Severity:    severity,
		Marketplace: order.Marketplace,
		Data:        data,
	})

	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

// publishOrderChecked emits the result event, best-effort
func (o *Orchestrator) publishOrderChecked(ctx context.Context, order *models.Order, summary *OrderProfitSummary, status string) {
	if o.publisher == nil {
		return
	}

	event := &models.OrderCheckedEvent{
		OrderID:      order.ID,
		Marketplace:  order.Marketplace,
		Status:       status,
		TotalProfit:  summary.TotalProfit,
		AnyDangerous: summary.AnyDangerous,
	}
	if err := o.publisher.PublishOrderChecked(ctx, event); err != nil {
		o.logger.Error("Failed to publish order checked event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}
