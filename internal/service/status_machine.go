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

	"go.uber.org/zap"
)

// OrderStatusMachine applies status transitions. Terminal statuses (IsLast)
// have no outgoing transitions.
type OrderStatusMachine struct {
	repo   store.Repository
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderStatusMachine creates a new status machine
func NewOrderStatusMachine(repo store.Repository, events EventPublisher) *OrderStatusMachine {
	return &OrderStatusMachine{
		repo:   repo,
		events: orNoop(events),
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// Transition moves the order to statusID, stamps issued_at / paid_at by the
// target's kind (never overwriting) and appends a history entry.
func (m *OrderStatusMachine) Transition(ctx context.Context, actor auth.Actor, orderID, statusID int64, comment string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderStatusMachine.Transition")
	defer span.End()

	if err := actor.Authorize(auth.ActionOrderTransition); err != nil {
		return nil, err
	}

	var from, to *models.OrderStatus
	err := m.repo.WithinTx(ctx, func(q store.Queries) error {
		order, err := q.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}

		from, err = q.GetOrderStatus(ctx, order.StatusID)
		if err != nil {
			return err
		}
		if from.IsLast {
			return apperr.ForbiddenTransition("order %d is in terminal status %q", order.ID, from.Name)
		}

		to, err = q.GetOrderStatus(ctx, statusID)
		if err != nil {
			return err
		}

		now := m.now()
		if to.Kind.SetsIssuedAt() && order.IssuedAt == nil {
			order.IssuedAt = &now
		}
		if to.Kind.SetsPaidAt() && order.PaidAt == nil {
			order.PaidAt = &now
		}
		order.StatusID = to.ID

		if err := q.UpdateOrderStatus(ctx, order); err != nil {
			return err
		}

		if comment == "" {
			comment = fmt.Sprintf("Status changed from %q to %q", from.Name, to.Name)
		}
		return q.AppendStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			StatusID:  to.ID,
			ActorID:   actor.ID,
			Comment:   comment,
			CreatedAt: now,
		})
	})
	if err != nil {
		util.StatusTransitionsRejected.WithLabelValues(string(apperr.KindOf(err))).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	util.StatusTransitionsTotal.WithLabelValues(string(to.Kind)).Inc()
	m.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", from.Name),
		zap.String("to", to.Name),
		zap.Int64("actor_id", actor.ID))

	event := &models.OrderStatusChangedEvent{
		BaseEvent:    newBaseEvent(models.EventTypeOrderStatusChanged, actor.ID, m.now()),
		OrderID:      orderID,
		FromStatusID: from.ID,
		ToStatusID:   to.ID,
		ToKind:       to.Kind,
		Comment:      comment,
	}
	publishBestEffort(ctx, m.logger, event.EventType, func(ctx context.Context) error {
		return m.events.PublishOrderStatusChanged(ctx, event)
	})

	return loadOrder(ctx, m.repo, orderID)
}
