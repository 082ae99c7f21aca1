package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parts-service/internal/apperr"
	"parts-service/internal/models"
)

// GetStockQuantity returns the quantity held for a (part, warehouse) pair.
// A missing row counts as zero.
func (q *queries) GetStockQuantity(ctx context.Context, partID, warehouseID int64) (int, error) {
	var quantity int
	err := q.get(ctx, &quantity,
		"SELECT quantity FROM stock_entries WHERE part_id = $1 AND warehouse_id = $2",
		partID, warehouseID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// DecrementStock subtracts quantity only while the row holds at least that much
func (q *queries) DecrementStock(ctx context.Context, partID, warehouseID int64, quantity int) error {
	result, err := q.ext.ExecContext(ctx,
		`UPDATE stock_entries SET quantity = quantity - $3, updated_at = NOW()
		 WHERE part_id = $1 AND warehouse_id = $2 AND quantity >= $3`,
		partID, warehouseID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		available, err := q.GetStockQuantity(ctx, partID, warehouseID)
		if err != nil {
			return err
		}
		return apperr.InsufficientStock("insufficient stock: available=%d, requested=%d", available, quantity)
	}
	return nil
}

// IncrementStock adds quantity, creating the row when absent
func (q *queries) IncrementStock(ctx context.Context, partID, warehouseID int64, quantity int) error {
	_, err := q.ext.ExecContext(ctx,
		`INSERT INTO stock_entries (part_id, warehouse_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (part_id, warehouse_id)
		 DO UPDATE SET quantity = stock_entries.quantity + EXCLUDED.quantity, updated_at = NOW()`,
		partID, warehouseID, quantity)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	return nil
}

// CreateStockEntry inserts a new (part, warehouse) row
func (q *queries) CreateStockEntry(ctx context.Context, entry *models.StockEntry) error {
	_, err := q.ext.ExecContext(ctx,
		"INSERT INTO stock_entries (part_id, warehouse_id, quantity) VALUES ($1, $2, $3)",
		entry.PartID, entry.WarehouseID, entry.Quantity)
	if isUniqueViolation(err) {
		return &apperr.Error{
			Kind:    apperr.KindConflict,
			Message: fmt.Sprintf("stock entry already exists for part %d in warehouse %d", entry.PartID, entry.WarehouseID),
			Err:     err,
		}
	}
	if err != nil {
		return fmt.Errorf("failed to create stock entry: %w", err)
	}
	return nil
}
