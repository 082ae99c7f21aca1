package service

import (
	"context"
	"time"

	"parts-service/internal/apperr"
	"parts-service/internal/auth"
	"parts-service/internal/models"
	"parts-service/internal/store"
	"parts-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentTracker accumulates payments against an order's net total
type PaymentTracker struct {
	repo   store.Repository
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewPaymentTracker creates a new payment tracker
func NewPaymentTracker(repo store.Repository, events EventPublisher) *PaymentTracker {
	return &PaymentTracker{
		repo:   repo,
		events: orNoop(events),
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

type paymentChange func(order *models.Order, now time.Time) error

// AddPartialPayment adds amount to paid_amount. Reaching the net total stamps
// paid_at if it is not already set.
func (p *PaymentTracker) AddPartialPayment(ctx context.Context, actor auth.Actor, orderID int64, amount decimal.Decimal) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "PaymentTracker.AddPartialPayment")
	defer span.End()

	if err := actor.Authorize(auth.ActionPaymentRecord); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		util.PaymentsRejectedTotal.WithLabelValues(string(apperr.KindValidation)).Inc()
		return nil, apperr.Validation("payment amount must be positive, got %s", amount)
	}
	if err := requireMoneyScale("payment amount", amount); err != nil {
		util.PaymentsRejectedTotal.WithLabelValues(string(apperr.KindValidation)).Inc()
		return nil, err
	}

	return p.apply(ctx, actor, orderID, "partial", amount, func(order *models.Order, now time.Time) error {
		remaining := order.Remaining()
		if amount.GreaterThan(remaining) {
			return apperr.Overpayment("payment of %s exceeds remaining balance %s", amount, remaining)
		}
		order.PaidAmount = order.PaidAmount.Add(amount)
		if order.PaidAmount.GreaterThanOrEqual(order.NetTotal()) && order.PaidAt == nil {
			order.PaidAt = &now
		}
		return nil
	})
}

// MarkFullyPaid sets paid_amount to the net total. A net total below zero is
// treated as zero.
func (p *PaymentTracker) MarkFullyPaid(ctx context.Context, actor auth.Actor, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "PaymentTracker.MarkFullyPaid")
	defer span.End()

	if err := actor.Authorize(auth.ActionPaymentRecord); err != nil {
		return nil, err
	}

	return p.apply(ctx, actor, orderID, "full", decimal.Zero, func(order *models.Order, now time.Time) error {
		order.PaidAmount = decimal.Max(order.NetTotal(), decimal.Zero)
		if order.PaidAt == nil {
			order.PaidAt = &now
		}
		return nil
	})
}

// ResetPayment clears paid_amount and paid_at. It is the only operation that
// clears paid_at.
func (p *PaymentTracker) ResetPayment(ctx context.Context, actor auth.Actor, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "PaymentTracker.ResetPayment")
	defer span.End()

	if err := actor.Authorize(auth.ActionPaymentReset); err != nil {
		return nil, err
	}

	return p.apply(ctx, actor, orderID, "reset", decimal.Zero, func(order *models.Order, _ time.Time) error {
		order.PaidAmount = decimal.Zero
		order.PaidAt = nil
		return nil
	})
}

func (p *PaymentTracker) apply(ctx context.Context, actor auth.Actor, orderID int64, paymentType string, amount decimal.Decimal, change paymentChange) (*models.Order, error) {
	var before decimal.Decimal
	var after *models.Order

	err := p.repo.WithinTx(ctx, func(q store.Queries) error {
		order, err := q.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		before = order.PaidAmount

		if err := change(order, p.now()); err != nil {
			return err
		}
		if err := q.UpdateOrderPayment(ctx, order.ID, order.PaidAmount, order.PaidAt); err != nil {
			return err
		}
		after = order
		return nil
	})
	if err != nil {
		util.PaymentsRejectedTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}

	util.PaymentsRecordedTotal.WithLabelValues(paymentType).Inc()
	fullyPaid := after.PaidAt != nil && after.PaidAmount.GreaterThanOrEqual(after.NetTotal())
	p.logger.Info("Payment updated",
		zap.Int64("order_id", orderID),
		zap.String("type", paymentType),
		zap.String("paid_amount", after.PaidAmount.String()),
		zap.Bool("fully_paid", fullyPaid))

	if paymentType != "partial" {
		amount = after.PaidAmount.Sub(before)
	}
	event := &models.OrderPaymentEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderPayment, actor.ID, p.now()),
		OrderID:    orderID,
		Amount:     amount,
		PaidAmount: after.PaidAmount,
		FullyPaid:  fullyPaid,
	}
	publishBestEffort(ctx, p.logger, event.EventType, func(ctx context.Context) error {
		return p.events.PublishOrderPayment(ctx, event)
	})

	return loadOrder(ctx, p.repo, orderID)
}
