package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parts-service/internal/apperr"
	"parts-service/internal/models"

	"github.com/shopspring/decimal"
)

const orderColumns = `id, client_id, status_id, delivery_method_id, total_amount, discount, paid_amount,
	notes, delivery_address, tracking_number, idempotency_key, created_by, created_at, issued_at, paid_at`

// CreateOrder inserts a new order
func (q *queries) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (client_id, status_id, delivery_method_id, total_amount, discount, paid_amount,
			notes, delivery_address, tracking_number, idempotency_key, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	err := q.get(ctx, &order.ID, query,
		order.ClientID, order.StatusID, order.DeliveryMethodID, order.TotalAmount, order.Discount,
		order.PaidAmount, order.Notes, order.DeliveryAddress, order.TrackingNumber,
		order.IdempotencyKey, order.CreatedBy, order.CreatedAt)
	if isUniqueViolation(err) {
		return &apperr.Error{Kind: apperr.KindConflict, Message: "order with this idempotency key already exists", Err: err}
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// GetOrderByID retrieves an order by ID
func (q *queries) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	return q.getOrder(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

// LockOrder retrieves an order and holds a row lock until the transaction ends
func (q *queries) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	return q.getOrder(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
}

func (q *queries) getOrder(ctx context.Context, query string, id int64) (*models.Order, error) {
	var order models.Order
	err := q.get(ctx, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key.
// Returns nil, nil when no order uses the key.
func (q *queries) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := q.get(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus writes the status and the derived timestamps
func (q *queries) UpdateOrderStatus(ctx context.Context, order *models.Order) error {
	return q.execOne(ctx, order.ID,
		"UPDATE orders SET status_id = $2, issued_at = $3, paid_at = $4 WHERE id = $1",
		order.ID, order.StatusID, order.IssuedAt, order.PaidAt)
}

// UpdateOrderPayment sets paid_amount and paid_at. The statement refuses to
// push paid_amount above the net total (floored at zero).
func (q *queries) UpdateOrderPayment(ctx context.Context, orderID int64, paidAmount decimal.Decimal, paidAt *time.Time) error {
	result, err := q.ext.ExecContext(ctx,
		`UPDATE orders SET paid_amount = $2, paid_at = $3
		 WHERE id = $1 AND $2 <= GREATEST(total_amount - discount, 0)`,
		orderID, paidAmount, paidAt)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.Overpayment("paid amount %s exceeds net total of order %d", paidAmount, orderID)
	}
	return nil
}

// UpdateOrderDetails writes the descriptive and amount fields
func (q *queries) UpdateOrderDetails(ctx context.Context, order *models.Order) error {
	return q.execOne(ctx, order.ID,
		`UPDATE orders SET notes = $2, delivery_address = $3, tracking_number = $4,
			total_amount = $5, discount = $6
		 WHERE id = $1`,
		order.ID, order.Notes, order.DeliveryAddress, order.TrackingNumber, order.TotalAmount, order.Discount)
}

// DeleteOrder removes an order; items and history go with it
func (q *queries) DeleteOrder(ctx context.Context, id int64) error {
	return q.execOne(ctx, id, "DELETE FROM orders WHERE id = $1", id)
}

func (q *queries) execOne(ctx context.Context, orderID int64, query string, args ...interface{}) error {
	result, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("order not found: %d", orderID)
	}
	return nil
}

// CreateOrderItem inserts an order item
func (q *queries) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, part_id, warehouse_id, quantity, unit_price, article, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if err := q.get(ctx, &item.ID, query,
		item.OrderID, item.PartID, item.WarehouseID, item.Quantity, item.UnitPrice,
		item.Article, item.Description); err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}
	return nil
}

// GetOrderItems retrieves all items for an order
func (q *queries) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := q.selectAll(ctx, &items,
		`SELECT id, order_id, part_id, warehouse_id, quantity, unit_price, article, description
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	return items, err
}

// AppendStatusHistory inserts a history entry
func (q *queries) AppendStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (order_id, status_id, actor_id, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if err := q.get(ctx, &entry.ID, query,
		entry.OrderID, entry.StatusID, entry.ActorID, entry.Comment, entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// GetStatusHistory returns the history of an order, oldest first
func (q *queries) GetStatusHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	history := []models.OrderStatusHistory{}
	err := q.selectAll(ctx, &history,
		`SELECT id, order_id, status_id, actor_id, comment, created_at
		 FROM order_status_history WHERE order_id = $1 ORDER BY id`, orderID)
	return history, err
}
