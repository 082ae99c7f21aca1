// Package memstore is an in-process store.Repository. Units of work are
// serialized by a single mutex and rolled back by restoring a snapshot, so
// a failed WithinTx leaves no trace.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"parts-service/internal/apperr"
	"parts-service/internal/models"
	"parts-service/internal/store"

	"github.com/shopspring/decimal"
)

type pairKey struct {
	a, b int64
}

type state struct {
	parts           map[int64]models.Part
	warehouses      map[int64]models.Warehouse
	clients         map[int64]models.Client
	deliveryMethods map[int64]models.DeliveryMethod
	priceTiers      map[int64]models.PriceTier
	statuses        map[int64]models.OrderStatus
	prices          map[pairKey]decimal.Decimal
	stock           map[pairKey]int
	orders          map[int64]models.Order
	items           map[int64][]models.OrderItem
	history         map[int64][]models.OrderStatusHistory

	nextOrderID   int64
	nextItemID    int64
	nextHistoryID int64
}

func newState() *state {
	return &state{
		parts:           map[int64]models.Part{},
		warehouses:      map[int64]models.Warehouse{},
		clients:         map[int64]models.Client{},
		deliveryMethods: map[int64]models.DeliveryMethod{},
		priceTiers:      map[int64]models.PriceTier{},
		statuses:        map[int64]models.OrderStatus{},
		prices:          map[pairKey]decimal.Decimal{},
		stock:           map[pairKey]int{},
		orders:          map[int64]models.Order{},
		items:           map[int64][]models.OrderItem{},
		history:         map[int64][]models.OrderStatusHistory{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.parts {
		c.parts[k] = v
	}
	for k, v := range s.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.deliveryMethods {
		c.deliveryMethods[k] = v
	}
	for k, v := range s.priceTiers {
		c.priceTiers[k] = v
	}
	for k, v := range s.statuses {
		c.statuses[k] = v
	}
	for k, v := range s.prices {
		c.prices[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]models.OrderItem(nil), v...)
	}
	for k, v := range s.history {
		c.history[k] = append([]models.OrderStatusHistory(nil), v...)
	}
	c.nextOrderID = s.nextOrderID
	c.nextItemID = s.nextItemID
	c.nextHistoryID = s.nextHistoryID
	return c
}

// DefaultStatuses mirrors the rows seeded by the SQL migration
func DefaultStatuses() []models.OrderStatus {
	return []models.OrderStatus{
		{ID: 1, Name: "New", Color: "#3b82f6", Kind: models.StatusKindNew},
		{ID: 2, Name: "Processing", Color: "#f59e0b", Kind: models.StatusKindProcessing},
		{ID: 3, Name: "Ready for pickup", Color: "#8b5cf6", Kind: models.StatusKindReady},
		{ID: 4, Name: "Issued", Color: "#10b981", Kind: models.StatusKindIssued},
		{ID: 5, Name: "Paid", Color: "#059669", IsLast: true, Kind: models.StatusKindPaid},
		{ID: 6, Name: "Cancelled", Color: "#6b7280", IsLast: true, Kind: models.StatusKindCancelled},
	}
}

// Store is an in-memory store.Repository
type Store struct {
	mu    sync.Mutex
	state *state
}

// New returns an empty store seeded with DefaultStatuses
func New() *Store {
	s := &Store{state: newState()}
	for _, st := range DefaultStatuses() {
		s.state.statuses[st.ID] = st
	}
	return s
}

// WithinTx runs fn with exclusive access; any error restores the prior state
func (s *Store) WithinTx(ctx context.Context, fn func(q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.state.clone()
	if err := fn(&queries{st: s.state}); err != nil {
		s.state = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// autocommit runs a single call as its own unit of work
func (s *Store) autocommit(ctx context.Context, fn func(q *queries) error) error {
	return s.WithinTx(ctx, func(q store.Queries) error {
		return fn(q.(*queries))
	})
}

// Seeding helpers for reference data owned outside the core.

// PutPart inserts or replaces a part
func (s *Store) PutPart(p models.Part) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.parts[p.ID] = p
}

// RemovePart deletes a part and nulls the reference held by order items
func (s *Store) RemovePart(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.parts, id)
	for orderID, items := range s.state.items {
		for i := range items {
			if items[i].PartID != nil && *items[i].PartID == id {
				items[i].PartID = nil
			}
		}
		s.state.items[orderID] = items
	}
}

// PutWarehouse inserts or replaces a warehouse
func (s *Store) PutWarehouse(w models.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.warehouses[w.ID] = w
}

// PutClient inserts or replaces a client
func (s *Store) PutClient(c models.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.clients[c.ID] = c
}

// PutDeliveryMethod inserts or replaces a delivery method
func (s *Store) PutDeliveryMethod(d models.DeliveryMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.deliveryMethods[d.ID] = d
}

// PutPriceTier inserts or replaces a price tier
func (s *Store) PutPriceTier(t models.PriceTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.priceTiers[t.ID] = t
}

// PutStatus inserts or replaces an order status. Unknown kinds are rejected
// the way the order_statuses CHECK constraint rejects them.
func (s *Store) PutStatus(st models.OrderStatus) error {
	if !st.Kind.IsValid() {
		return apperr.Validation("unknown status kind %q", string(st.Kind))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.statuses[st.ID] = st
	return nil
}

// PutPrice sets the price of a part under a price tier
func (s *Store) PutPrice(p models.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.prices[pairKey{p.PartID, p.PriceTierID}] = p.Amount
}

// SetStock overwrites the quantity of a (part, warehouse) pair
func (s *Store) SetStock(partID, warehouseID int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.stock[pairKey{partID, warehouseID}] = quantity
}

// StockSnapshot returns a copy of every stock row
func (s *Store) StockSnapshot() []models.StockEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]models.StockEntry, 0, len(s.state.stock))
	for k, qty := range s.state.stock {
		entries = append(entries, models.StockEntry{PartID: k.a, WarehouseID: k.b, Quantity: qty})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PartID != entries[j].PartID {
			return entries[i].PartID < entries[j].PartID
		}
		return entries[i].WarehouseID < entries[j].WarehouseID
	})
	return entries
}

// OrderCount returns the number of stored orders
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.orders)
}

var _ store.Repository = (*Store)(nil)

// Queries methods on Store run as autocommit units of work.

func (s *Store) GetPart(ctx context.Context, id int64) (p *models.Part, err error) {
	err = s.autocommit(ctx, func(q *queries) error { p, err = q.GetPart(ctx, id); return err })
	return p, err
}

func (s *Store) GetWarehouse(ctx context.Context, id int64) (w *models.Warehouse, err error) {
	err = s.autocommit(ctx, func(q *queries) error { w, err = q.GetWarehouse(ctx, id); return err })
	return w, err
}

func (s *Store) GetClient(ctx context.Context, id int64) (c *models.Client, err error) {
	err = s.autocommit(ctx, func(q *queries) error { c, err = q.GetClient(ctx, id); return err })
	return c, err
}

func (s *Store) GetDeliveryMethod(ctx context.Context, id int64) (d *models.DeliveryMethod, err error) {
	err = s.autocommit(ctx, func(q *queries) error { d, err = q.GetDeliveryMethod(ctx, id); return err })
	return d, err
}

func (s *Store) GetOrderStatus(ctx context.Context, id int64) (st *models.OrderStatus, err error) {
	err = s.autocommit(ctx, func(q *queries) error { st, err = q.GetOrderStatus(ctx, id); return err })
	return st, err
}

func (s *Store) GetInitialOrderStatus(ctx context.Context) (st *models.OrderStatus, err error) {
	err = s.autocommit(ctx, func(q *queries) error { st, err = q.GetInitialOrderStatus(ctx); return err })
	return st, err
}

func (s *Store) GetPrice(ctx context.Context, partID, priceTierID int64) (p *models.Price, err error) {
	err = s.autocommit(ctx, func(q *queries) error { p, err = q.GetPrice(ctx, partID, priceTierID); return err })
	return p, err
}

func (s *Store) GetStockQuantity(ctx context.Context, partID, warehouseID int64) (qty int, err error) {
	err = s.autocommit(ctx, func(q *queries) error { qty, err = q.GetStockQuantity(ctx, partID, warehouseID); return err })
	return qty, err
}

func (s *Store) DecrementStock(ctx context.Context, partID, warehouseID int64, quantity int) error {
	return s.autocommit(ctx, func(q *queries) error { return q.DecrementStock(ctx, partID, warehouseID, quantity) })
}

func (s *Store) IncrementStock(ctx context.Context, partID, warehouseID int64, quantity int) error {
	return s.autocommit(ctx, func(q *queries) error { return q.IncrementStock(ctx, partID, warehouseID, quantity) })
}

func (s *Store) CreateStockEntry(ctx context.Context, entry *models.StockEntry) error {
	return s.autocommit(ctx, func(q *queries) error { return q.CreateStockEntry(ctx, entry) })
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.autocommit(ctx, func(q *queries) error { return q.CreateOrder(ctx, order) })
}

func (s *Store) GetOrderByID(ctx context.Context, id int64) (o *models.Order, err error) {
	err = s.autocommit(ctx, func(q *queries) error { o, err = q.GetOrderByID(ctx, id); return err })
	return o, err
}

func (s *Store) LockOrder(ctx context.Context, id int64) (o *models.Order, err error) {
	return s.GetOrderByID(ctx, id)
}

func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (o *models.Order, err error) {
	err = s.autocommit(ctx, func(q *queries) error { o, err = q.GetOrderByIdempotencyKey(ctx, key); return err })
	return o, err
}

func (s *Store) UpdateOrderStatus(ctx context.Context, order *models.Order) error {
	return s.autocommit(ctx, func(q *queries) error { return q.UpdateOrderStatus(ctx, order) })
}

func (s *Store) UpdateOrderPayment(ctx context.Context, orderID int64, paidAmount decimal.Decimal, paidAt *time.Time) error {
	return s.autocommit(ctx, func(q *queries) error { return q.UpdateOrderPayment(ctx, orderID, paidAmount, paidAt) })
}

func (s *Store) UpdateOrderDetails(ctx context.Context, order *models.Order) error {
	return s.autocommit(ctx, func(q *queries) error { return q.UpdateOrderDetails(ctx, order) })
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	return s.autocommit(ctx, func(q *queries) error { return q.DeleteOrder(ctx, id) })
}

func (s *Store) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	return s.autocommit(ctx, func(q *queries) error { return q.CreateOrderItem(ctx, item) })
}

func (s *Store) GetOrderItems(ctx context.Context, orderID int64) (items []models.OrderItem, err error) {
	err = s.autocommit(ctx, func(q *queries) error { items, err = q.GetOrderItems(ctx, orderID); return err })
	return items, err
}

func (s *Store) AppendStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return s.autocommit(ctx, func(q *queries) error { return q.AppendStatusHistory(ctx, entry) })
}

func (s *Store) GetStatusHistory(ctx context.Context, orderID int64) (h []models.OrderStatusHistory, err error) {
	err = s.autocommit(ctx, func(q *queries) error { h, err = q.GetStatusHistory(ctx, orderID); return err })
	return h, err
}

// queries operates on state while the store mutex is held
type queries struct {
	st *state
}

func (q *queries) GetPart(_ context.Context, id int64) (*models.Part, error) {
	p, ok := q.st.parts[id]
	if !ok {
		return nil, apperr.NotFound("part not found: %d", id)
	}
	return &p, nil
}

func (q *queries) GetWarehouse(_ context.Context, id int64) (*models.Warehouse, error) {
	w, ok := q.st.warehouses[id]
	if !ok {
		return nil, apperr.NotFound("warehouse not found: %d", id)
	}
	return &w, nil
}

func (q *queries) GetClient(_ context.Context, id int64) (*models.Client, error) {
	c, ok := q.st.clients[id]
	if !ok {
		return nil, apperr.NotFound("client not found: %d", id)
	}
	return &c, nil
}

func (q *queries) GetDeliveryMethod(_ context.Context, id int64) (*models.DeliveryMethod, error) {
	d, ok := q.st.deliveryMethods[id]
	if !ok {
		return nil, apperr.NotFound("delivery method not found: %d", id)
	}
	return &d, nil
}

func (q *queries) GetOrderStatus(_ context.Context, id int64) (*models.OrderStatus, error) {
	st, ok := q.st.statuses[id]
	if !ok {
		return nil, apperr.NotFound("order status not found: %d", id)
	}
	return &st, nil
}

func (q *queries) GetInitialOrderStatus(_ context.Context) (*models.OrderStatus, error) {
	var found *models.OrderStatus
	for _, st := range q.st.statuses {
		st := st
		if st.Kind != models.StatusKindNew || st.IsLast {
			continue
		}
		if found == nil || st.ID < found.ID {
			found = &st
		}
	}
	if found == nil {
		return nil, apperr.NotFound("no initial order status configured")
	}
	return found, nil
}

func (q *queries) GetPrice(_ context.Context, partID, priceTierID int64) (*models.Price, error) {
	amount, ok := q.st.prices[pairKey{partID, priceTierID}]
	if !ok {
		return nil, apperr.NotFound("no price for part %d in tier %d", partID, priceTierID)
	}
	return &models.Price{PartID: partID, PriceTierID: priceTierID, Amount: amount}, nil
}

func (q *queries) GetStockQuantity(_ context.Context, partID, warehouseID int64) (int, error) {
	return q.st.stock[pairKey{partID, warehouseID}], nil
}

func (q *queries) DecrementStock(_ context.Context, partID, warehouseID int64, quantity int) error {
	key := pairKey{partID, warehouseID}
	available := q.st.stock[key]
	if available < quantity {
		return apperr.InsufficientStock("insufficient stock: available=%d, requested=%d", available, quantity)
	}
	q.st.stock[key] = available - quantity
	return nil
}

func (q *queries) IncrementStock(_ context.Context, partID, warehouseID int64, quantity int) error {
	q.st.stock[pairKey{partID, warehouseID}] += quantity
	return nil
}

func (q *queries) CreateStockEntry(_ context.Context, entry *models.StockEntry) error {
	key := pairKey{entry.PartID, entry.WarehouseID}
	if _, ok := q.st.stock[key]; ok {
		return apperr.Conflict("stock entry already exists for part %d in warehouse %d", entry.PartID, entry.WarehouseID)
	}
	q.st.stock[key] = entry.Quantity
	return nil
}

func (q *queries) CreateOrder(_ context.Context, order *models.Order) error {
	if order.IdempotencyKey != nil {
		for _, o := range q.st.orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return apperr.Conflict("order with this idempotency key already exists")
			}
		}
	}
	q.st.nextOrderID++
	order.ID = q.st.nextOrderID
	stored := *order
	stored.Items, stored.Client, stored.Status = nil, nil, nil
	q.st.orders[order.ID] = stored
	return nil
}

func (q *queries) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	o, ok := q.st.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found: %d", id)
	}
	return &o, nil
}

func (q *queries) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	return q.GetOrderByID(ctx, id)
}

func (q *queries) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	for _, o := range q.st.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			o := o
			return &o, nil
		}
	}
	return nil, nil
}

func (q *queries) UpdateOrderStatus(_ context.Context, order *models.Order) error {
	o, ok := q.st.orders[order.ID]
	if !ok {
		return apperr.NotFound("order not found: %d", order.ID)
	}
	o.StatusID = order.StatusID
	o.IssuedAt = order.IssuedAt
	o.PaidAt = order.PaidAt
	q.st.orders[order.ID] = o
	return nil
}

func (q *queries) UpdateOrderPayment(_ context.Context, orderID int64, paidAmount decimal.Decimal, paidAt *time.Time) error {
	o, ok := q.st.orders[orderID]
	if !ok {
		return apperr.NotFound("order not found: %d", orderID)
	}
	if paidAmount.GreaterThan(decimal.Max(o.NetTotal(), decimal.Zero)) {
		return apperr.Overpayment("paid amount %s exceeds net total of order %d", paidAmount, orderID)
	}
	o.PaidAmount = paidAmount
	o.PaidAt = paidAt
	q.st.orders[orderID] = o
	return nil
}

func (q *queries) UpdateOrderDetails(_ context.Context, order *models.Order) error {
	o, ok := q.st.orders[order.ID]
	if !ok {
		return apperr.NotFound("order not found: %d", order.ID)
	}
	o.Notes = order.Notes
	o.DeliveryAddress = order.DeliveryAddress
	o.TrackingNumber = order.TrackingNumber
	o.TotalAmount = order.TotalAmount
	o.Discount = order.Discount
	q.st.orders[order.ID] = o
	return nil
}

func (q *queries) DeleteOrder(_ context.Context, id int64) error {
	if _, ok := q.st.orders[id]; !ok {
		return apperr.NotFound("order not found: %d", id)
	}
	delete(q.st.orders, id)
	delete(q.st.items, id)
	delete(q.st.history, id)
	return nil
}

func (q *queries) CreateOrderItem(_ context.Context, item *models.OrderItem) error {
	if _, ok := q.st.orders[item.OrderID]; !ok {
		return apperr.NotFound("order not found: %d", item.OrderID)
	}
	q.st.nextItemID++
	item.ID = q.st.nextItemID
	q.st.items[item.OrderID] = append(q.st.items[item.OrderID], *item)
	return nil
}

func (q *queries) GetOrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	return append([]models.OrderItem{}, q.st.items[orderID]...), nil
}

func (q *queries) AppendStatusHistory(_ context.Context, entry *models.OrderStatusHistory) error {
	if _, ok := q.st.orders[entry.OrderID]; !ok {
		return apperr.NotFound("order not found: %d", entry.OrderID)
	}
	q.st.nextHistoryID++
	entry.ID = q.st.nextHistoryID
	q.st.history[entry.OrderID] = append(q.st.history[entry.OrderID], *entry)
	return nil
}

func (q *queries) GetStatusHistory(_ context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	return append([]models.OrderStatusHistory{}, q.st.history[orderID]...), nil
}
