package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Part represents a catalog part
type Part struct {
	ID          int64  `db:"id" json:"id"`
	Article     string `db:"article" json:"article"`
	Description string `db:"description" json:"description"`
	CategoryID  *int64 `db:"category_id" json:"category_id,omitempty"`
	BrandID     *int64 `db:"brand_id" json:"brand_id,omitempty"`
}

// Warehouse represents a stock location
type Warehouse struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address"`
}

// PriceTier groups prices for a class of customers (retail, wholesale, ...)
type PriceTier struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Price is the amount of one part under one price tier
type Price struct {
	PartID      int64           `db:"part_id" json:"part_id"`
	PriceTierID int64           `db:"price_tier_id" json:"price_tier_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
}

// Client represents a customer placing orders
type Client struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	PriceTierID *int64 `db:"price_tier_id" json:"price_tier_id,omitempty"`
}

// DeliveryMethod represents how an order leaves the warehouse
type DeliveryMethod struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// StockEntry is the quantity of one part held at one warehouse
type StockEntry struct {
	PartID      int64 `db:"part_id" json:"part_id"`
	WarehouseID int64 `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int   `db:"quantity" json:"quantity"`
}

// OrderStatus is a row of the order status dictionary
type OrderStatus struct {
	ID     int64      `db:"id" json:"id"`
	Name   string     `db:"name" json:"name"`
	Color  string     `db:"color" json:"color"`
	IsLast bool       `db:"is_last" json:"is_last"`
	Kind   StatusKind `db:"kind" json:"kind"`
}

// Order represents a customer order
type Order struct {
	ID               int64           `db:"id" json:"id"`
	ClientID         int64           `db:"client_id" json:"client_id"`
	StatusID         int64           `db:"status_id" json:"status_id"`
	DeliveryMethodID *int64          `db:"delivery_method_id" json:"delivery_method_id,omitempty"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
	Discount         decimal.Decimal `db:"discount" json:"discount"`
	PaidAmount       decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	Notes            string          `db:"notes" json:"notes"`
	DeliveryAddress  string          `db:"delivery_address" json:"delivery_address"`
	TrackingNumber   string          `db:"tracking_number" json:"tracking_number"`
	IdempotencyKey   *string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedBy        int64           `db:"created_by" json:"created_by"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	IssuedAt         *time.Time      `db:"issued_at" json:"issued_at"`
	PaidAt           *time.Time      `db:"paid_at" json:"paid_at"`

	Items  []OrderItem  `db:"-" json:"items,omitempty"`
	Client *Client      `db:"-" json:"client,omitempty"`
	Status *OrderStatus `db:"-" json:"status,omitempty"`
}

// NetTotal is the amount payments are measured against
func (o *Order) NetTotal() decimal.Decimal {
	return o.TotalAmount.Sub(o.Discount)
}

// Remaining is the unpaid part of the net total
func (o *Order) Remaining() decimal.Decimal {
	return o.NetTotal().Sub(o.PaidAmount)
}

// OrderItem represents a line of an order. Article and Description are
// copied from the part when the order is created.
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	PartID      *int64          `db:"part_id" json:"part_id"`
	WarehouseID int64           `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Article     string          `db:"article" json:"article"`
	Description string          `db:"description" json:"description"`
}

// Amount is quantity times unit price
func (i *OrderItem) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory is an append-only record of a status change
type OrderStatusHistory struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	StatusID  int64     `db:"status_id" json:"status_id"`
	ActorID   int64     `db:"actor_id" json:"actor_id"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
