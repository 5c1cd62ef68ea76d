package store

import (
	"context"
	"database/sql"
	"fmt"

	"profit-guard/internal/models"

	"github.com/shopspring/decimal"
)

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetSaleLinesByOrderID retrieves all sale lines for an order
func (s *Store) GetSaleLinesByOrderID(ctx context.Context, orderID int64) ([]models.SaleLine, error) {
	var lines []models.SaleLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM sale_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// ListPendingOrders retrieves orders awaiting a profit check, oldest first
func (s *Store) ListPendingOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE status = $1 ORDER BY created_at ASC LIMIT $2",
		models.OrderStatusPending, limit)
	return orders, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateSaleLineProfit persists the computed profit fields on a sale line.
// A nil rate means the line's cost price was unknown and no rate is defined.
func (s *Store) UpdateSaleLineProfit(ctx context.Context, lineID int64, profit decimal.Decimal, rate *decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sale_lines SET profit_amount = $1, profit_rate = $2 WHERE id = $3",
		profit, rate, lineID)
	return err
}
