package service

import (
	"context"
	"time"

	"parts-service/internal/models"
	"parts-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher receives domain events after their unit of work commits.
// *broker.EventPublisher satisfies it.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderPayment(ctx context.Context, event *models.OrderPaymentEvent) error
	PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error
	PublishStockTransferred(ctx context.Context, event *models.StockTransferredEvent) error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(context.Context, *models.OrderCreatedEvent) error {
	return nil
}

func (NoopPublisher) PublishOrderStatusChanged(context.Context, *models.OrderStatusChangedEvent) error {
	return nil
}

func (NoopPublisher) PublishOrderPayment(context.Context, *models.OrderPaymentEvent) error {
	return nil
}

func (NoopPublisher) PublishOrderDeleted(context.Context, *models.OrderDeletedEvent) error {
	return nil
}

func (NoopPublisher) PublishStockTransferred(context.Context, *models.StockTransferredEvent) error {
	return nil
}

func orNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return NoopPublisher{}
	}
	return p
}

func newBaseEvent(eventType string, actorID int64, at time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: at,
		ActorID:   actorID,
	}
}

// publishBestEffort runs publish and logs a failure. The mutation has already
// committed, so the caller's result does not depend on the broker.
func publishBestEffort(ctx context.Context, logger *zap.Logger, eventType string, publish func(context.Context) error) {
	if err := publish(ctx); err != nil {
		util.EventsPublishFailed.WithLabelValues(eventType).Inc()
		logger.Error("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func itemData(items []models.OrderItem) []models.OrderItemData {
	data := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		data = append(data, models.OrderItemData{
			PartID:      item.PartID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return data
}
