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

// TransferRequest moves Quantity of a part between two warehouses
type TransferRequest struct {
	PartID          int64 `json:"part_id" binding:"required"`
	FromWarehouseID int64 `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID   int64 `json:"to_warehouse_id" binding:"required"`
	Quantity        int   `json:"quantity"`
}

// TransferResult holds both balances after the move
type TransferResult struct {
	From models.StockEntry `json:"from"`
	To   models.StockEntry `json:"to"`
}

// StockTransferService moves stock between warehouses
type StockTransferService struct {
	repo   store.Repository
	ledger *StockLedger
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewStockTransferService creates a new transfer service
func NewStockTransferService(repo store.Repository, ledger *StockLedger, events EventPublisher) *StockTransferService {
	return &StockTransferService{
		repo:   repo,
		ledger: ledger,
		events: orNoop(events),
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// Transfer decrements the source and increments the destination in one unit of work
func (s *StockTransferService) Transfer(ctx context.Context, actor auth.Actor, req TransferRequest) (*TransferResult, error) {
	ctx, span := util.StartSpan(ctx, "StockTransferService.Transfer")
	defer span.End()

	if err := actor.Authorize(auth.ActionStockTransfer); err != nil {
		return nil, err
	}
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, apperr.Validation("source and destination warehouse must differ")
	}
	if req.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive, got %d", req.Quantity)
	}

	result := &TransferResult{
		From: models.StockEntry{PartID: req.PartID, WarehouseID: req.FromWarehouseID},
		To:   models.StockEntry{PartID: req.PartID, WarehouseID: req.ToWarehouseID},
	}
	err := s.repo.WithinTx(ctx, func(q store.Queries) error {
		if err := requirePartAndWarehouse(ctx, q, req.PartID, req.FromWarehouseID); err != nil {
			return err
		}
		if _, err := q.GetWarehouse(ctx, req.ToWarehouseID); err != nil {
			return err
		}

		moves := []func() error{
			func() error { return s.ledger.Decrement(ctx, q, req.PartID, req.FromWarehouseID, req.Quantity) },
			func() error { return s.ledger.Increment(ctx, q, req.PartID, req.ToWarehouseID, req.Quantity) },
		}
		// rows are written in warehouse order, whichever direction the goods move
		if req.ToWarehouseID < req.FromWarehouseID {
			moves[0], moves[1] = moves[1], moves[0]
		}
		for _, move := range moves {
			if err := move(); err != nil {
				return err
			}
		}

		var err error
		if result.From.Quantity, err = q.GetStockQuantity(ctx, req.PartID, req.FromWarehouseID); err != nil {
			return err
		}
		result.To.Quantity, err = q.GetStockQuantity(ctx, req.PartID, req.ToWarehouseID)
		return err
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.StockTransfersTotal.Inc()
	s.logger.Info("Stock transferred",
		zap.Int64("part_id", req.PartID),
		zap.Int64("from_warehouse_id", req.FromWarehouseID),
		zap.Int64("to_warehouse_id", req.ToWarehouseID),
		zap.Int("quantity", req.Quantity))

	event := &models.StockTransferredEvent{
		BaseEvent:       newBaseEvent(models.EventTypeStockTransferred, actor.ID, s.now()),
		PartID:          req.PartID,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		Quantity:        req.Quantity,
	}
	publishBestEffort(ctx, s.logger, event.EventType, func(ctx context.Context) error {
		return s.events.PublishStockTransferred(ctx, event)
	})

	return result, nil
}
