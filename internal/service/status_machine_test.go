package service

import (
	"context"
	"testing"
	"time"

	"parts-service/internal/apperr"
	"parts-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionStampsIssuedAtOnce(t *testing.T) {
	f := newFixture(t)
	f.store.SetStock(partBrake, warehouseA, 10)
	order := f.createOrder(t, 1, "10", "0")
	ctx := context.Background()

	readyAt := f.clock
	got, err := f.statuses.Transition(ctx, warehouse, order.ID, statusReady, "")
	require.NoError(t, err)
	require.NotNil(t, got.IssuedAt)
	assert.Equal(t, readyAt, *got.IssuedAt)
	assert.Nil(t, got.PaidAt)

	f.advance(time.Hour)
	got, err = f.statuses.Transition(ctx, warehouse, order.ID, statusIssued, "handed over")
	require.NoError(t, err)
	assert.Equal(t, readyAt, *got.IssuedAt)
	assert.Equal(t, models.StatusKindIssued, got.Status.Kind)
}

func TestTransitionAppendsHistory(t *testing.T) {
	f := newFixture(t)
	f.store.SetStock(partBrake, warehouseA, 10)
	order := f.createOrder(t, 1, "10", "0")
	ctx := context.Background()

	_, err := f.statuses.Transition(ctx, manager, order.ID, statusProcessing, "")
	require.NoError(t, err)
	_, err = f.statuses.Transition(ctx, warehouse, order.ID, statusReady, "packed")
	require.NoError(t, err)

	history, err := f.orders.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, statusNew, history[0].StatusID)
	assert.Equal(t, statusProcessing, history[1].StatusID)
	assert.Equal(t, `Status changed from "New" to "Processing"`, history[1].Comment)
	assert.Equal(t, manager.ID, history[1].ActorID)
	assert.Equal(t, statusReady, history[2].StatusID)
	assert.Equal(t, "packed", history[2].Comment)
	assert.Equal(t, warehouse.ID, history[2].ActorID)

	require.Len(t, f.events.changed, 2)
	assert.Equal(t, statusProcessing, f.events.changed[1].FromStatusID)
	assert.Equal(t, models.StatusKindReady, f.events.changed[1].ToKind)
}

func TestTerminalStatusIsFinal(t *testing.T) {
	f := newFixture(t)
	f.store.SetStock(partBrake, warehouseA, 10)
	order := f.createOrder(t, 1, "10", "0")
	ctx := context.Background()

	paid, err := f.statuses.Transition(ctx, manager, order.ID, statusPaid, "")
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	_, err = f.statuses.Transition(ctx, manager, order.ID, statusCancelled, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindForbiddenTransition))

	got, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, statusPaid, got.StatusID)

	history, err := f.orders.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestTransitionKeepsPaidAtFromPayment(t *testing.T) {
	f := newFixture(t)
	f.store.SetStock(partBrake, warehouseA, 10)
	order := f.createOrder(t, 1, "10", "0")
	ctx := context.Background()

	paidAt := f.clock
	_, err := f.payments.MarkFullyPaid(ctx, manager, order.ID)
	require.NoError(t, err)

	f.advance(24 * time.Hour)
	got, err := f.statuses.Transition(ctx, manager, order.ID, statusPaid, "")
	require.NoError(t, err)
	assert.Equal(t, paidAt, *got.PaidAt)
}

func TestTransitionToUnknownStatus(t *testing.T) {
	f := newFixture(t)
	f.store.SetStock(partBrake, warehouseA, 10)
	order := f.createOrder(t, 1, "10", "0")

	_, err := f.statuses.Transition(context.Background(), manager, order.ID, 99, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	history, _ := f.orders.GetStatusHistory(context.Background(), order.ID)
	assert.Len(t, history, 1)
}

func TestTransitionUnknownOrderAndPermission(t *testing.T) {
	f := newFixture(t)

	_, err := f.statuses.Transition(context.Background(), manager, 404, statusReady, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.statuses.Transition(context.Background(), viewer, 404, statusReady, "")
	assert.True(t, apperr.Is(err, apperr.KindPermissionDenied))
}
