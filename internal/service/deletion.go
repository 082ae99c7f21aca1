package service

import (
	"context"
	"time"

	"parts-service/internal/apperr"
	"parts-service/internal/auth"
	"parts-service/internal/models"
	"parts-service/internal/store"
	"parts-service/internal/util"

	"go.uber.org/zap"
)

// OrderDeletionService removes orders that have not progressed past "new"
// and returns their stock.
type OrderDeletionService struct {
	repo   store.Repository
	ledger *StockLedger
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderDeletionService creates a new deletion service
func NewOrderDeletionService(repo store.Repository, ledger *StockLedger, events EventPublisher) *OrderDeletionService {
	return &OrderDeletionService{
		repo:   repo,
		ledger: ledger,
		events: orNoop(events),
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// DeleteOrder restores every item with a resolvable part to its warehouse and
// deletes the order. It returns the restored lines.
func (d *OrderDeletionService) DeleteOrder(ctx context.Context, actor auth.Actor, orderID int64) ([]models.OrderItemData, error) {
	ctx, span := util.StartSpan(ctx, "OrderDeletionService.DeleteOrder")
	defer span.End()

	if err := actor.Authorize(auth.ActionOrderDelete); err != nil {
		return nil, err
	}

	var restored []models.OrderItem
	err := d.repo.WithinTx(ctx, func(q store.Queries) error {
		order, err := q.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}

		status, err := q.GetOrderStatus(ctx, order.StatusID)
		if err != nil {
			return err
		}
		if err := deletable(order, status); err != nil {
			return err
		}

		items, err := q.GetOrderItems(ctx, order.ID)
		if err != nil {
			return err
		}
		for _, i := range stockRowOrder(items) {
			if items[i].PartID == nil {
				continue
			}
			if err := d.ledger.Increment(ctx, q, *items[i].PartID, items[i].WarehouseID, items[i].Quantity); err != nil {
				return err
			}
		}
		for _, item := range items {
			if item.PartID != nil {
				restored = append(restored, item)
			}
		}

		return q.DeleteOrder(ctx, order.ID)
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.OrdersDeletedTotal.Inc()
	d.logger.Info("Order deleted",
		zap.Int64("order_id", orderID),
		zap.Int("restored_items", len(restored)),
		zap.Int64("actor_id", actor.ID))

	event := &models.OrderDeletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderDeleted, actor.ID, d.now()),
		OrderID:   orderID,
		Restored:  itemData(restored),
	}
	publishBestEffort(ctx, d.logger, event.EventType, func(ctx context.Context) error {
		return d.events.PublishOrderDeleted(ctx, event)
	})

	return event.Restored, nil
}

func deletable(order *models.Order, status *models.OrderStatus) error {
	if status.IsLast {
		return apperr.ForbiddenTransition("order %d cannot be deleted: status %q is terminal", order.ID, status.Name)
	}
	if status.Kind != models.StatusKindNew {
		return apperr.ForbiddenTransition("order %d cannot be deleted: status %q is past new", order.ID, status.Name)
	}
	return nil
}
