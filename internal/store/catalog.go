package store

import (
	"context"
	"database/sql"
	"errors"

	"parts-service/internal/apperr"
	"parts-service/internal/models"
)

// GetPart retrieves a part by ID
func (q *queries) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	var part models.Part
	err := q.get(ctx, &part,
		"SELECT id, article, description, category_id, brand_id FROM parts WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("part not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &part, nil
}

// GetWarehouse retrieves a warehouse by ID
func (q *queries) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	var wh models.Warehouse
	err := q.get(ctx, &wh, "SELECT id, name, address FROM warehouses WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("warehouse not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

// GetClient retrieves a client by ID
func (q *queries) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	err := q.get(ctx, &client, "SELECT id, name, price_tier_id FROM clients WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("client not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetDeliveryMethod retrieves a delivery method by ID
func (q *queries) GetDeliveryMethod(ctx context.Context, id int64) (*models.DeliveryMethod, error) {
	var dm models.DeliveryMethod
	err := q.get(ctx, &dm, "SELECT id, name FROM delivery_methods WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("delivery method not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &dm, nil
}

const statusColumns = "id, name, color, is_last, kind"

// GetOrderStatus retrieves an order status by ID
func (q *queries) GetOrderStatus(ctx context.Context, id int64) (*models.OrderStatus, error) {
	var status models.OrderStatus
	err := q.get(ctx, &status, "SELECT "+statusColumns+" FROM order_statuses WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order status not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetInitialOrderStatus returns the open status of kind "new" with the lowest id
func (q *queries) GetInitialOrderStatus(ctx context.Context) (*models.OrderStatus, error) {
	var status models.OrderStatus
	err := q.get(ctx, &status,
		"SELECT "+statusColumns+" FROM order_statuses WHERE kind = $1 AND is_last = false ORDER BY id LIMIT 1",
		models.StatusKindNew)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("no initial order status configured")
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetPrice retrieves the price of a part under a price tier
func (q *queries) GetPrice(ctx context.Context, partID, priceTierID int64) (*models.Price, error) {
	var price models.Price
	err := q.get(ctx, &price,
		"SELECT part_id, price_tier_id, amount FROM prices WHERE part_id = $1 AND price_tier_id = $2",
		partID, priceTierID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("no price for part %d in tier %d", partID, priceTierID)
	}
	if err != nil {
		return nil, err
	}
	return &price, nil
}
