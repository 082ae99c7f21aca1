package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"parts-service/internal/models"
	"parts-service/internal/store"
	"parts-service/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowLog struct {
	mu   sync.Mutex
	rows []string
}

func (l *rowLog) add(op string, partID, warehouseID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, fmt.Sprintf("%s %d@%d", op, partID, warehouseID))
}

type loggingQueries struct {
	store.Queries
	log *rowLog
}

func (q loggingQueries) DecrementStock(ctx context.Context, partID, warehouseID int64, quantity int) error {
	q.log.add("dec", partID, warehouseID)
	return q.Queries.DecrementStock(ctx, partID, warehouseID, quantity)
}

func (q loggingQueries) IncrementStock(ctx context.Context, partID, warehouseID int64, quantity int) error {
	q.log.add("inc", partID, warehouseID)
	return q.Queries.IncrementStock(ctx, partID, warehouseID, quantity)
}

// loggingRepo records every stock row write made inside a unit of work
type loggingRepo struct {
	*memstore.Store
	log *rowLog
}

func (r loggingRepo) WithinTx(ctx context.Context, fn func(q store.Queries) error) error {
	return r.Store.WithinTx(ctx, func(q store.Queries) error {
		return fn(loggingQueries{Queries: q, log: r.log})
	})
}

func newLoggingRepo(t *testing.T) loggingRepo {
	t.Helper()
	f := newFixture(t)
	f.store.SetStock(partBrake, warehouseA, 10)
	f.store.SetStock(partBrake, warehouseB, 10)
	f.store.SetStock(partFilter, warehouseB, 10)
	return loggingRepo{Store: f.store, log: &rowLog{}}
}

func TestTransferWritesRowsInWarehouseOrder(t *testing.T) {
	repo := newLoggingRepo(t)
	transfer := NewStockTransferService(repo, NewStockLedger(repo), nil)

	result, err := transfer.Transfer(context.Background(), warehouse, TransferRequest{
		PartID: partBrake, FromWarehouseID: warehouseB, ToWarehouseID: warehouseA, Quantity: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inc 1@1", "dec 1@2"}, repo.log.rows)
	assert.Equal(t, 6, result.From.Quantity)
	assert.Equal(t, 14, result.To.Quantity)
}

func TestTransferFailureAfterIncrementRollsBack(t *testing.T) {
	repo := newLoggingRepo(t)
	transfer := NewStockTransferService(repo, NewStockLedger(repo), nil)

	_, err := transfer.Transfer(context.Background(), warehouse, TransferRequest{
		PartID: partBrake, FromWarehouseID: warehouseB, ToWarehouseID: warehouseA, Quantity: 11,
	})
	require.Error(t, err)

	qty, _ := repo.GetStockQuantity(context.Background(), partBrake, warehouseA)
	assert.Equal(t, 10, qty)
	qty, _ = repo.GetStockQuantity(context.Background(), partBrake, warehouseB)
	assert.Equal(t, 10, qty)
}

func TestOrderLifecycleWritesRowsInPairOrder(t *testing.T) {
	repo := newLoggingRepo(t)
	ledger := NewStockLedger(repo)
	orders := NewOrderService(repo, ledger, NewPricingResolver(nil), nil)
	deletion := NewOrderDeletionService(repo, ledger, nil)

	order, err := orders.CreateOrder(context.Background(), manager, &CreateOrderRequest{
		ClientID: clientACME,
		Items: []OrderItemRequest{
			{PartID: partFilter, WarehouseID: warehouseB, Quantity: 1, UnitPrice: price("5")},
			{PartID: partBrake, WarehouseID: warehouseB, Quantity: 2, UnitPrice: price("20")},
			{PartID: partBrake, WarehouseID: warehouseA, Quantity: 3, UnitPrice: price("20")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dec 1@1", "dec 1@2", "dec 2@2"}, repo.log.rows)

	require.Len(t, order.Items, 3)
	assert.Equal(t, "FLT-200", order.Items[0].Article)

	repo.log.rows = nil
	restored, err := deletion.DeleteOrder(context.Background(), manager, order.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"inc 1@1", "inc 1@2", "inc 2@2"}, repo.log.rows)
	require.Len(t, restored, 3)
	assert.Equal(t, partFilter, *restored[0].PartID)
}

func TestStockRowOrderIsStable(t *testing.T) {
	brake, filter := partBrake, partFilter
	items := []models.OrderItem{
		{PartID: &filter, WarehouseID: warehouseA},
		{PartID: &brake, WarehouseID: warehouseB},
		{PartID: &brake, WarehouseID: warehouseA, Quantity: 1},
		{PartID: &brake, WarehouseID: warehouseA, Quantity: 2},
	}
	assert.Equal(t, []int{2, 3, 1, 0}, stockRowOrder(items))
}
