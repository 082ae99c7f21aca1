package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderPayment       = "ORDER_PAYMENT_UPDATED"
	EventTypeOrderDeleted       = "ORDER_DELETED"
	EventTypeStockTransferred   = "STOCK_TRANSFERRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   int64     `json:"actor_id"`
}

// OrderCreatedEvent published when an order is committed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	ClientID    int64           `json:"client_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Discount    decimal.Decimal `json:"discount"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published after a status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID      int64      `json:"order_id"`
	FromStatusID int64      `json:"from_status_id"`
	ToStatusID   int64      `json:"to_status_id"`
	ToKind       StatusKind `json:"to_kind"`
	Comment      string     `json:"comment"`
}

// OrderPaymentEvent published whenever paid_amount changes
type OrderPaymentEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	FullyPaid  bool            `json:"fully_paid"`
}

// OrderDeletedEvent published after an order is removed and its stock restored
type OrderDeletedEvent struct {
	BaseEvent
	OrderID  int64           `json:"order_id"`
	Restored []OrderItemData `json:"restored"`
}

// StockTransferredEvent published after a warehouse-to-warehouse move
type StockTransferredEvent struct {
	BaseEvent
	PartID          int64 `json:"part_id"`
	FromWarehouseID int64 `json:"from_warehouse_id"`
	ToWarehouseID   int64 `json:"to_warehouse_id"`
	Quantity        int   `json:"quantity"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	PartID      *int64          `json:"part_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}
