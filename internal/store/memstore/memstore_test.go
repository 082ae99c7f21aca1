package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"parts-service/internal/apperr"
	"parts-service/internal/models"
	"parts-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrementIsGuarded(t *testing.T) {
	s := New()
	s.SetStock(1, 1, 3)

	err := s.DecrementStock(context.Background(), 1, 1, 5)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))

	qty, err := s.GetStockQuantity(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)
}

func TestConcurrentDecrementsNeverOversubscribe(t *testing.T) {
	s := New()
	s.SetStock(1, 1, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.DecrementStock(context.Background(), 1, 1, 3); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	qty, _ := s.GetStockQuantity(context.Background(), 1, 1)
	assert.Equal(t, 1, qty)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	s.SetStock(1, 1, 10)
	s.PutClient(models.Client{ID: 1, Name: "ACME"})

	boom := errors.New("boom")
	err := s.WithinTx(context.Background(), func(q store.Queries) error {
		if err := q.DecrementStock(context.Background(), 1, 1, 4); err != nil {
			return err
		}
		if err := q.CreateOrder(context.Background(), &models.Order{ClientID: 1, StatusID: 1}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	qty, _ := s.GetStockQuantity(context.Background(), 1, 1)
	assert.Equal(t, 10, qty)
	assert.Equal(t, 0, s.OrderCount())
}

func TestWithinTxHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(q store.Queries) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCreateStockEntryConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateStockEntry(ctx, &models.StockEntry{PartID: 1, WarehouseID: 2, Quantity: 5}))
	err := s.CreateStockEntry(ctx, &models.StockEntry{PartID: 1, WarehouseID: 2, Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestIdempotencyKeyIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := "abc"

	require.NoError(t, s.CreateOrder(ctx, &models.Order{ClientID: 1, StatusID: 1, IdempotencyKey: &key}))
	err := s.CreateOrder(ctx, &models.Order{ClientID: 1, StatusID: 1, IdempotencyKey: &key})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	found, err := s.GetOrderByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(1), found.ID)

	missing, err := s.GetOrderByIdempotencyKey(ctx, "other")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteOrderCascades(t *testing.T) {
	s := New()
	ctx := context.Background()

	order := &models.Order{ClientID: 1, StatusID: 1}
	require.NoError(t, s.CreateOrder(ctx, order))
	require.NoError(t, s.CreateOrderItem(ctx, &models.OrderItem{OrderID: order.ID, WarehouseID: 1, Quantity: 2}))
	require.NoError(t, s.AppendStatusHistory(ctx, &models.OrderStatusHistory{OrderID: order.ID, StatusID: 1}))

	require.NoError(t, s.DeleteOrder(ctx, order.ID))

	items, _ := s.GetOrderItems(ctx, order.ID)
	history, _ := s.GetStatusHistory(ctx, order.ID)
	assert.Empty(t, items)
	assert.Empty(t, history)
	assert.True(t, apperr.Is(s.DeleteOrder(ctx, order.ID), apperr.KindNotFound))
}

func TestRemovePartNullsItemReference(t *testing.T) {
	s := New()
	ctx := context.Background()
	partID := int64(7)
	s.PutPart(models.Part{ID: partID, Article: "BRK-1"})

	order := &models.Order{ClientID: 1, StatusID: 1}
	require.NoError(t, s.CreateOrder(ctx, order))
	require.NoError(t, s.CreateOrderItem(ctx, &models.OrderItem{OrderID: order.ID, PartID: &partID, WarehouseID: 1, Quantity: 1, Article: "BRK-1"}))

	s.RemovePart(partID)

	items, err := s.GetOrderItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].PartID)
	assert.Equal(t, "BRK-1", items[0].Article)
}

func TestInitialStatusIsLowestNewKind(t *testing.T) {
	s := New()
	require.NoError(t, s.PutStatus(models.OrderStatus{ID: 10, Name: "Draft", Kind: models.StatusKindNew}))

	st, err := s.GetInitialOrderStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ID)
}

func TestPutStatusRejectsUnknownKind(t *testing.T) {
	s := New()

	err := s.PutStatus(models.OrderStatus{ID: 7, Name: "Shipped", Kind: "shipped"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.GetOrderStatus(context.Background(), 7)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
