package service

import (
	"context"
	"fmt"
	"time"

	"parts-service/internal/apperr"
	"parts-service/internal/auth"
	"parts-service/internal/models"
	"parts-service/internal/store"
	"parts-service/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles order business logic
type OrderService struct {
	repo     store.Repository
	ledger   *StockLedger
	pricing  *PricingResolver
	events   EventPublisher
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	repo store.Repository,
	ledger *StockLedger,
	pricing *PricingResolver,
	events EventPublisher,
) *OrderService {
	return &OrderService{
		repo:     repo,
		ledger:   ledger,
		pricing:  pricing,
		events:   orNoop(events),
		validate: validator.New(),
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	ClientID         int64              `json:"client_id"`
	Items            []OrderItemRequest `json:"items"`
	Discount         decimal.Decimal    `json:"discount"`
	DeliveryMethodID *int64             `json:"delivery_method_id,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	DeliveryAddress  string             `json:"delivery_address,omitempty"`
	IdempotencyKey   string             `json:"idempotency_key,omitempty"`
}

// OrderItemRequest represents an item in an order. A nil UnitPrice is
// resolved from the client's price tier.
type OrderItemRequest struct {
	PartID      int64            `json:"part_id"`
	WarehouseID int64            `json:"warehouse_id"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

// OrderUpdate is an explicit partial update. Nil fields are left untouched.
type OrderUpdate struct {
	Notes           *string          `json:"notes" validate:"omitempty,max=2000"`
	DeliveryAddress *string          `json:"delivery_address" validate:"omitempty,max=500"`
	TrackingNumber  *string          `json:"tracking_number" validate:"omitempty,max=100"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	Discount        *decimal.Decimal `json:"discount"`
}

func (u *OrderUpdate) touchesAmounts() bool {
	return u.TotalAmount != nil || u.Discount != nil
}

// CreateOrder validates the request and, in one unit of work, inserts the
// order and its items, decrements stock and records the initial status.
func (s *OrderService) CreateOrder(ctx context.Context, actor auth.Actor, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderCreateLatency.Observe(time.Since(start).Seconds())
	}()

	if err := actor.Authorize(auth.ActionOrderCreate); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("order_id", existing.ID))
			return s.GetOrder(ctx, existing.ID)
		}
	}

	if err := validateCreateRequest(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}

	order, err := s.createInTx(ctx, actor, req)
	if err != nil {
		// Lost a race against a concurrent request with the same key.
		if req.IdempotencyKey != "" && apperr.Is(err, apperr.KindConflict) {
			if existing, lookupErr := s.repo.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil && existing != nil {
				return s.GetOrder(ctx, existing.ID)
			}
		}
		util.OrdersFailedTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("client_id", order.ClientID),
		zap.String("total_amount", order.TotalAmount.String()),
		zap.Int("items", len(order.Items)))

	event := &models.OrderCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCreated, actor.ID, order.CreatedAt),
		OrderID:     order.ID,
		ClientID:    order.ClientID,
		TotalAmount: order.TotalAmount,
		Discount:    order.Discount,
		Items:       itemData(order.Items),
	}
	publishBestEffort(ctx, s.logger, event.EventType, func(ctx context.Context) error {
		return s.events.PublishOrderCreated(ctx, event)
	})

	return order, nil
}

func validateCreateRequest(req *CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return apperr.Validation("order must contain at least one item")
	}
	if req.ClientID <= 0 {
		return apperr.Validation("client_id is required")
	}
	if req.Discount.IsNegative() {
		return apperr.Validation("discount must not be negative")
	}
	if err := requireMoneyScale("discount", req.Discount); err != nil {
		return err
	}
	for i, item := range req.Items {
		if item.PartID <= 0 || item.WarehouseID <= 0 {
			return apperr.Validation("item %d: part_id and warehouse_id are required", i+1)
		}
		if item.Quantity <= 0 {
			return apperr.Validation("item %d: quantity must be positive, got %d", i+1, item.Quantity)
		}
		if item.UnitPrice != nil {
			if item.UnitPrice.IsNegative() {
				return apperr.Validation("item %d: unit price must not be negative", i+1)
			}
			if err := requireMoneyScale(fmt.Sprintf("item %d: unit price", i+1), *item.UnitPrice); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *OrderService) createInTx(ctx context.Context, actor auth.Actor, req *CreateOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := s.repo.WithinTx(ctx, func(q store.Queries) error {
		client, err := q.GetClient(ctx, req.ClientID)
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("unknown client %d", req.ClientID)
		}
		if err != nil {
			return err
		}

		if req.DeliveryMethodID != nil {
			if _, err := q.GetDeliveryMethod(ctx, *req.DeliveryMethodID); err != nil {
				return err
			}
		}

		status, err := q.GetInitialOrderStatus(ctx)
		if err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		subtotal := decimal.Zero
		for _, itemReq := range req.Items {
			item, err := s.snapshotItem(ctx, q, client, itemReq)
			if err != nil {
				return err
			}
			subtotal = subtotal.Add(item.Amount())
			items = append(items, *item)
		}

		// The discount is taken off the subtotal to form totalAmount and again
		// when the net total is computed, so it may be at most half the subtotal.
		if req.Discount.Mul(decimal.NewFromInt(2)).GreaterThan(subtotal) {
			return apperr.Validation("discount %s exceeds half of order subtotal %s", req.Discount, subtotal)
		}

		now := s.now()
		order = &models.Order{
			ClientID:         client.ID,
			StatusID:         status.ID,
			DeliveryMethodID: req.DeliveryMethodID,
			TotalAmount:      subtotal.Sub(req.Discount),
			Discount:         req.Discount,
			PaidAmount:       decimal.Zero,
			Notes:            req.Notes,
			DeliveryAddress:  req.DeliveryAddress,
			CreatedBy:        actor.ID,
			CreatedAt:        now,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			order.IdempotencyKey = &key
		}

		if err := q.CreateOrder(ctx, order); err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := q.CreateOrderItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		for _, i := range stockRowOrder(items) {
			err := s.ledger.Decrement(ctx, q, *items[i].PartID, items[i].WarehouseID, items[i].Quantity)
			if apperr.Is(err, apperr.KindInsufficientStock) {
				return apperr.InsufficientStock("insufficient stock for article %s: %s", items[i].Article, err.Error())
			}
			if err != nil {
				return err
			}
		}

		if err := q.AppendStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			StatusID:  status.ID,
			ActorID:   actor.ID,
			Comment:   "Order created",
			CreatedAt: now,
		}); err != nil {
			return err
		}

		order.Items = items
		order.Client = client
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// snapshotItem resolves the part and price and checks the held quantity
func (s *OrderService) snapshotItem(ctx context.Context, q store.Queries, client *models.Client, req OrderItemRequest) (*models.OrderItem, error) {
	part, err := q.GetPart(ctx, req.PartID)
	if err != nil {
		return nil, err
	}
	if _, err := q.GetWarehouse(ctx, req.WarehouseID); err != nil {
		return nil, err
	}

	held, err := q.GetStockQuantity(ctx, req.PartID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if held < req.Quantity {
		return nil, apperr.InsufficientStock("insufficient stock for article %s: available=%d, requested=%d",
			part.Article, held, req.Quantity)
	}

	var unitPrice decimal.Decimal
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	} else {
		unitPrice, err = s.pricing.ResolveForClient(ctx, q, client, part.ID)
		if err != nil {
			return nil, err
		}
	}

	partID := part.ID
	return &models.OrderItem{
		PartID:      &partID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		UnitPrice:   unitPrice,
		Article:     part.Article,
		Description: part.Description,
	}, nil
}

// GetOrder returns the order with its items, client and status
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	return loadOrder(ctx, s.repo, orderID)
}

// GetStatusHistory returns the status log of an order, oldest first
func (s *OrderService) GetStatusHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetStatusHistory")
	defer span.End()

	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.GetStatusHistory(ctx, orderID)
}

// UpdateOrder merges a validated OrderUpdate into the stored order
func (s *OrderService) UpdateOrder(ctx context.Context, actor auth.Actor, orderID int64, upd *OrderUpdate) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	if err := actor.Authorize(auth.ActionOrderUpdate); err != nil {
		return nil, err
	}
	if err := s.validateUpdate(upd); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.repo.WithinTx(ctx, func(q store.Queries) error {
		var err error
		order, err = q.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}

		if upd.touchesAmounts() {
			status, err := q.GetOrderStatus(ctx, order.StatusID)
			if err != nil {
				return err
			}
			if status.IsLast {
				return apperr.ForbiddenTransition("order %d is in terminal status %q; amounts are locked", order.ID, status.Name)
			}
		}

		if upd.Notes != nil {
			order.Notes = *upd.Notes
		}
		if upd.DeliveryAddress != nil {
			order.DeliveryAddress = *upd.DeliveryAddress
		}
		if upd.TrackingNumber != nil {
			order.TrackingNumber = *upd.TrackingNumber
		}
		if upd.TotalAmount != nil {
			order.TotalAmount = *upd.TotalAmount
		}
		if upd.Discount != nil {
			order.Discount = *upd.Discount
		}

		if upd.touchesAmounts() && order.PaidAmount.GreaterThan(order.NetTotal()) {
			return apperr.Validation("net total %s would fall below paid amount %s", order.NetTotal(), order.PaidAmount)
		}

		return q.UpdateOrderDetails(ctx, order)
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Order updated", zap.Int64("order_id", orderID), zap.Int64("actor_id", actor.ID))
	return loadOrder(ctx, s.repo, orderID)
}

func (s *OrderService) validateUpdate(upd *OrderUpdate) error {
	if err := s.validate.Struct(upd); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperr.Validation("field %s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return apperr.Validation("invalid update: %v", err)
	}
	if upd.TotalAmount != nil {
		if upd.TotalAmount.IsNegative() {
			return apperr.Validation("total_amount must not be negative")
		}
		if err := requireMoneyScale("total_amount", *upd.TotalAmount); err != nil {
			return err
		}
	}
	if upd.Discount != nil {
		if upd.Discount.IsNegative() {
			return apperr.Validation("discount must not be negative")
		}
		if err := requireMoneyScale("discount", *upd.Discount); err != nil {
			return err
		}
	}
	return nil
}

// loadOrder reads an order and attaches its items, client and status
func loadOrder(ctx context.Context, q store.Queries, orderID int64) (*models.Order, error) {
	order, err := q.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Items, err = q.GetOrderItems(ctx, orderID); err != nil {
		return nil, err
	}
	if order.Client, err = q.GetClient(ctx, order.ClientID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	if order.Status, err = q.GetOrderStatus(ctx, order.StatusID); err != nil {
		return nil, err
	}
	return order, nil
}
