package service

import (
	"context"
	"sort"

	"parts-service/internal/apperr"
	"parts-service/internal/auth"
	"parts-service/internal/models"
	"parts-service/internal/store"
	"parts-service/internal/util"

	"go.uber.org/zap"
)

// StockLedger tracks quantity per (part, warehouse) pair
type StockLedger struct {
	repo   store.Repository
	logger *zap.Logger
}

// NewStockLedger creates a new stock ledger
func NewStockLedger(repo store.Repository) *StockLedger {
	return &StockLedger{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// QuantityOf returns the held quantity; a missing pair holds zero
func (l *StockLedger) QuantityOf(ctx context.Context, partID, warehouseID int64) (int, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.QuantityOf")
	defer span.End()

	return l.repo.GetStockQuantity(ctx, partID, warehouseID)
}

// Decrement subtracts qty inside the caller's unit of work. The store applies
// it as a guarded update, so an over-subscribed balance fails with
// InsufficientStock instead of going negative.
func (l *StockLedger) Decrement(ctx context.Context, q store.Queries, partID, warehouseID int64, qty int) error {
	if qty <= 0 {
		return apperr.Validation("quantity must be positive, got %d", qty)
	}
	err := q.DecrementStock(ctx, partID, warehouseID, qty)
	if apperr.Is(err, apperr.KindInsufficientStock) {
		util.StockDecrementRejected.Inc()
	}
	return err
}

// Increment adds qty inside the caller's unit of work, creating the pair if absent
func (l *StockLedger) Increment(ctx context.Context, q store.Queries, partID, warehouseID int64, qty int) error {
	if qty <= 0 {
		return apperr.Validation("quantity must be positive, got %d", qty)
	}
	return q.IncrementStock(ctx, partID, warehouseID, qty)
}

// Receive books incoming goods into a warehouse and returns the new balance
func (l *StockLedger) Receive(ctx context.Context, actor auth.Actor, partID, warehouseID int64, qty int) (*models.StockEntry, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Receive")
	defer span.End()

	if err := actor.Authorize(auth.ActionStockReceive); err != nil {
		return nil, err
	}

	entry := &models.StockEntry{PartID: partID, WarehouseID: warehouseID}
	err := l.repo.WithinTx(ctx, func(q store.Queries) error {
		if err := requirePartAndWarehouse(ctx, q, partID, warehouseID); err != nil {
			return err
		}
		if err := l.Increment(ctx, q, partID, warehouseID, qty); err != nil {
			return err
		}
		var err error
		entry.Quantity, err = q.GetStockQuantity(ctx, partID, warehouseID)
		return err
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	l.logger.Info("Stock received",
		zap.Int64("part_id", partID),
		zap.Int64("warehouse_id", warehouseID),
		zap.Int("quantity", qty),
		zap.Int("balance", entry.Quantity))
	return entry, nil
}

// Assign creates the first stock row for a pair. An existing row is a Conflict.
func (l *StockLedger) Assign(ctx context.Context, actor auth.Actor, entry models.StockEntry) (*models.StockEntry, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Assign")
	defer span.End()

	if err := actor.Authorize(auth.ActionStockReceive); err != nil {
		return nil, err
	}
	if entry.Quantity < 0 {
		return nil, apperr.Validation("quantity must not be negative, got %d", entry.Quantity)
	}

	err := l.repo.WithinTx(ctx, func(q store.Queries) error {
		if err := requirePartAndWarehouse(ctx, q, entry.PartID, entry.WarehouseID); err != nil {
			return err
		}
		return q.CreateStockEntry(ctx, &entry)
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	return &entry, nil
}

func requirePartAndWarehouse(ctx context.Context, q store.Queries, partID, warehouseID int64) error {
	if _, err := q.GetPart(ctx, partID); err != nil {
		return err
	}
	if _, err := q.GetWarehouse(ctx, warehouseID); err != nil {
		return err
	}
	return nil
}

// stockRowOrder returns the indexes of items sorted by (part, warehouse).
// Every unit of work that touches several stock rows walks them in this
// order, so two of them never wait on each other's rows.
func stockRowOrder(items []models.OrderItem) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	partOf := func(item models.OrderItem) int64 {
		if item.PartID == nil {
			return 0
		}
		return *item.PartID
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := items[idx[a]], items[idx[b]]
		if pa, pb := partOf(ia), partOf(ib); pa != pb {
			return pa < pb
		}
		return ia.WarehouseID < ib.WarehouseID
	})
	return idx
}
