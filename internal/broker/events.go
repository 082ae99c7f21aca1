package broker

import (
	"context"
	"fmt"

	"parts-service/internal/models"
)

// EventPublisher handles publishing domain events. Order events are keyed by
// order id so a single order's events stay on one partition.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishOrderCreated publishes ORDER_CREATED
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderStatusChanged publishes ORDER_STATUS_CHANGED
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderPayment publishes ORDER_PAYMENT_UPDATED
func (ep *EventPublisher) PublishOrderPayment(ctx context.Context, event *models.OrderPaymentEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderDeleted publishes ORDER_DELETED
func (ep *EventPublisher) PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishStockTransferred publishes STOCK_TRANSFERRED, keyed by part
func (ep *EventPublisher) PublishStockTransferred(ctx context.Context, event *models.StockTransferredEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("part-%d", event.PartID), event)
}
