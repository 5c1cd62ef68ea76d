package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"profit-guard/internal/models"
	"profit-guard/internal/notify"
	"profit-guard/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderStore struct {
	orders       map[int64]*models.Order
	lines        map[int64][]models.SaleLine
	statusByID   map[int64]string
	lineProfits  map[int64]decimal.Decimal
	failOrderIDs map[int64]bool
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:       make(map[int64]*models.Order),
		lines:        make(map[int64][]models.SaleLine),
		statusByID:   make(map[int64]string),
		lineProfits:  make(map[int64]decimal.Decimal),
		failOrderIDs: make(map[int64]bool),
	}
}

func (f *fakeOrderStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	if f.failOrderIDs[id] {
		return nil, errors.New("db down")
	}
	order, ok := f.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) GetSaleLinesByOrderID(ctx context.Context, orderID int64) ([]models.SaleLine, error) {
	return f.lines[orderID], nil
}

func (f *fakeOrderStore) ListPendingOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var pending []models.Order
	for _, order := range f.orders {
		if order.Status == models.OrderStatusPending && len(pending) < limit {
			pending = append(pending, *order)
		}
	}
	return pending, nil
}

func (f *fakeOrderStore) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	f.statusByID[orderID] = status
	return nil
}

func (f *fakeOrderStore) UpdateSaleLineProfit(ctx context.Context, lineID int64, profit decimal.Decimal, rate *decimal.Decimal) error {
	f.lineProfits[lineID] = profit
	return nil
}

type fakeNotifier struct {
	events  []notify.Event
	results []notify.SendResult
}

func (f *fakeNotifier) Send(ctx context.Context, ev notify.Event) []notify.SendResult {
	f.events = append(f.events, ev)
	return f.results
}

type fakeDeduper struct {
	seen map[string]bool
}

func (f *fakeDeduper) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func costPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func testOrder(id int64) *models.Order {
	return &models.Order{
		ID:          id,
		Marketplace: models.MarketplaceJoom,
		ExternalID:  "EXT-1",
		BuyerName:   "buyer",
		Currency:    "USD",
		TotalAmount: decimal.NewFromInt(200),
		Status:      models.OrderStatusPending,
	}
}

func saleLine(id, orderID int64, cost *decimal.Decimal) models.SaleLine {
	return models.SaleLine{
		ID:        id,
		OrderID:   orderID,
		SKU:       "SKU-1",
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(100),
		CostPrice: cost,
	}
}

func newTestOrchestrator(st *fakeOrderStore, shadow *fakeShadow, notifier Notifier, dedup Deduper) *Orchestrator {
	engine := newTestEngine(enforcedThreshold(), shadow)
	return NewOrchestrator(st, engine, shadow, notifier, nil, dedup, time.Hour, 10)
}

func TestProcessOrderConfirmsSafeOrder(t *testing.T) {
	st := newFakeOrderStore()
	st.orders[1] = testOrder(1)
	st.lines[1] = []models.SaleLine{
		saleLine(10, 1, costPtr(5000)),
		saleLine(11, 1, costPtr(4000)),
	}

	shadow := &fakeShadow{}
	notifier := &fakeNotifier{}
	o := newTestOrchestrator(st, shadow, notifier, nil)

	result, err := o.ProcessOrder(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.AnyDangerous)
	assert.Equal(t, models.OrderStatusConfirmed, st.statusByID[1])
	assert.Equal(t, "12600", result.TotalProfit.String()) // 5800 + 6800

	// Two per-line entries plus the order-level aggregate
	require.Len(t, shadow.entries, 3)
	aggregate := shadow.entries[2]
	assert.Equal(t, "check_order", aggregate.Operation)
	assert.Equal(t, models.VerdictApprove, aggregate.Decision)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.SeveritySuccess, notifier.events[0].Severity)
	assert.Equal(t, models.MarketplaceJoom, notifier.events[0].Marketplace)
}

func TestProcessOrderHoldsMixedOrder(t *testing.T) {
	st := newFakeOrderStore()
	st.orders[1] = testOrder(1)
	st.lines[1] = []models.SaleLine{
		saleLine(10, 1, costPtr(5000)),  // profitable
		saleLine(11, 1, costPtr(14000)), // negative profit
	}

	shadow := &fakeShadow{}
	notifier := &fakeNotifier{}
	o := newTestOrchestrator(st, shadow, notifier, nil)

	result, err := o.ProcessOrder(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, result.AnyDangerous)
	assert.Equal(t, models.OrderStatusPending, st.statusByID[1])

	aggregate := shadow.entries[len(shadow.entries)-1]
	assert.Equal(t, "check_order", aggregate.Operation)
	assert.Equal(t, models.VerdictHold, aggregate.Decision)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.SeverityWarning, notifier.events[0].Severity)
}

func TestProcessOrderPersistsLineProfits(t *testing.T) {
	st := newFakeOrderStore()
	st.orders[1] = testOrder(1)
	st.lines[1] = []models.SaleLine{saleLine(10, 1, costPtr(5000))}

	o := newTestOrchestrator(st, &fakeShadow{}, nil, nil)
	_, err := o.ProcessOrder(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "5800", st.lineProfits[10].String())
}

func TestProcessOrderNotFound(t *testing.T) {
	st := newFakeOrderStore()
	o := newTestOrchestrator(st, &fakeShadow{}, nil, nil)

	_, err := o.ProcessOrder(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrOrderNotFound))
}

func TestProcessOrderJobSkipsDuplicate(t *testing.T) {
	st := newFakeOrderStore()
	st.orders[1] = testOrder(1)
	st.lines[1] = []models.SaleLine{saleLine(10, 1, costPtr(5000))}

	shadow := &fakeShadow{}
	o := newTestOrchestrator(st, shadow, nil, &fakeDeduper{})

	job := &models.OrderReceivedEvent{OrderID: 1, WebhookEventID: "wh-1"}

	first, err := o.ProcessOrderJob(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := o.ProcessOrderJob(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.True(t, second.Success)

	// Only the first delivery processed lines and wrote shadow entries
	assert.Len(t, shadow.entries, 2)
}

func TestCheckOrderProfitDoesNotMutateStatus(t *testing.T) {
	st := newFakeOrderStore()
	st.orders[1] = testOrder(1)
	st.lines[1] = []models.SaleLine{saleLine(10, 1, costPtr(14000))}

	o := newTestOrchestrator(st, &fakeShadow{}, nil, nil)

	summary, err := o.CheckOrderProfit(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, summary.AnyDangerous)
	assert.False(t, summary.Allowed)
	assert.Empty(t, st.statusByID, "read path must not transition status")
}

func TestProcessPendingOrdersIsolatesFailures(t *testing.T) {
	st := newFakeOrderStore()
	st.orders[1] = testOrder(1)
	st.lines[1] = []models.SaleLine{saleLine(10, 1, costPtr(5000))}
	st.orders[2] = testOrder(2)
	st.failOrderIDs[2] = true

	o := newTestOrchestrator(st, &fakeShadow{}, nil, nil)

	result, err := o.ProcessPendingOrders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Errors)
}

func TestProcessOrderUnknownCostLineIsAllowed(t *testing.T) {
	st := newFakeOrderStore()
	st.orders[1] = testOrder(1)
	st.lines[1] = []models.SaleLine{saleLine(10, 1, nil)}

	shadow := &fakeShadow{}
	o := newTestOrchestrator(st, shadow, nil, nil)

	result, err := o.ProcessOrder(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, result.AnyDangerous)
	assert.Equal(t, models.OrderStatusConfirmed, st.statusByID[1])
	// The profit field is persisted even though no rate is defined
	assert.Equal(t, "10800", st.lineProfits[10].String())
}
