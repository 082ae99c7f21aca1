package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"parts-service/internal/auth"
	"parts-service/internal/models"
	"parts-service/internal/store/memstore"

	"github.com/shopspring/decimal"
)

const (
	partBrake  int64 = 1
	partFilter int64 = 2

	warehouseA int64 = 1
	warehouseB int64 = 2

	retailTier int64 = 1
	clientACME int64 = 1
	clientBare int64 = 2

	statusNew        int64 = 1
	statusProcessing int64 = 2
	statusReady      int64 = 3
	statusIssued     int64 = 4
	statusPaid       int64 = 5
	statusCancelled  int64 = 6
)

var (
	admin     = auth.Actor{ID: 1, Role: auth.RoleAdmin}
	manager   = auth.Actor{ID: 2, Role: auth.RoleManager}
	warehouse = auth.Actor{ID: 3, Role: auth.RoleWarehouse}
	viewer    = auth.Actor{ID: 4, Role: auth.RoleViewer}
)

type recordingPublisher struct {
	mu      sync.Mutex
	created []*models.OrderCreatedEvent
	changed []*models.OrderStatusChangedEvent
	payment []*models.OrderPaymentEvent
	deleted []*models.OrderDeletedEvent
	moved   []*models.StockTransferredEvent
	err     error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, e *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderPayment(_ context.Context, e *models.OrderPaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payment = append(p.payment, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderDeleted(_ context.Context, e *models.OrderDeletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, e)
	return p.err
}

func (p *recordingPublisher) PublishStockTransferred(_ context.Context, e *models.StockTransferredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moved = append(p.moved, e)
	return p.err
}

type fixture struct {
	store    *memstore.Store
	events   *recordingPublisher
	ledger   *StockLedger
	transfer *StockTransferService
	orders   *OrderService
	statuses *OrderStatusMachine
	payments *PaymentTracker
	deletion *OrderDeletionService
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := memstore.New()
	s.PutPart(models.Part{ID: partBrake, Article: "BRK-100", Description: "Brake pad set"})
	s.PutPart(models.Part{ID: partFilter, Article: "FLT-200", Description: "Oil filter"})
	s.PutWarehouse(models.Warehouse{ID: warehouseA, Name: "Main"})
	s.PutWarehouse(models.Warehouse{ID: warehouseB, Name: "North"})
	s.PutPriceTier(models.PriceTier{ID: retailTier, Name: "retail"})
	tier := retailTier
	s.PutClient(models.Client{ID: clientACME, Name: "ACME Garage", PriceTierID: &tier})
	s.PutClient(models.Client{ID: clientBare, Name: "Walk-in"})
	s.PutPrice(models.Price{PartID: partFilter, PriceTierID: retailTier, Amount: decimal.RequireFromString("12.50")})
	s.PutDeliveryMethod(models.DeliveryMethod{ID: 1, Name: "Courier"})

	f := &fixture{
		store:  s,
		events: &recordingPublisher{},
		clock:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }

	f.ledger = NewStockLedger(s)
	f.transfer = NewStockTransferService(s, f.ledger, f.events)
	f.transfer.now = now
	f.orders = NewOrderService(s, f.ledger, NewPricingResolver(nil), f.events)
	f.orders.now = now
	f.statuses = NewOrderStatusMachine(s, f.events)
	f.statuses.now = now
	f.payments = NewPaymentTracker(s, f.events)
	f.payments.now = now
	f.deletion = NewOrderDeletionService(s, f.ledger, f.events)
	f.deletion.now = now
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) qty(t *testing.T, partID, warehouseID int64) int {
	t.Helper()
	q, err := f.ledger.QuantityOf(context.Background(), partID, warehouseID)
	if err != nil {
		t.Fatalf("QuantityOf: %v", err)
	}
	return q
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// createOrder places qty x BRK-100 from warehouse A at unitPrice
func (f *fixture) createOrder(t *testing.T, qty int, unitPrice, discount string) *models.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(context.Background(), manager, &CreateOrderRequest{
		ClientID: clientACME,
		Items: []OrderItemRequest{
			{PartID: partBrake, WarehouseID: warehouseA, Quantity: qty, UnitPrice: price(unitPrice)},
		},
		Discount: decimal.RequireFromString(discount),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}
