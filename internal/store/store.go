package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parts-service/internal/apperr"
	"parts-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Queries is the set of reads and writes the core performs. It is satisfied
// both by a Store (autocommit) and by the handle passed into WithinTx.
type Queries interface {
	GetPart(ctx context.Context, id int64) (*models.Part, error)
	GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error)
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetDeliveryMethod(ctx context.Context, id int64) (*models.DeliveryMethod, error)
	GetOrderStatus(ctx context.Context, id int64) (*models.OrderStatus, error)
	GetInitialOrderStatus(ctx context.Context) (*models.OrderStatus, error)
	GetPrice(ctx context.Context, partID, priceTierID int64) (*models.Price, error)

	GetStockQuantity(ctx context.Context, partID, warehouseID int64) (int, error)
	DecrementStock(ctx context.Context, partID, warehouseID int64, quantity int) error
	IncrementStock(ctx context.Context, partID, warehouseID int64, quantity int) error
	CreateStockEntry(ctx context.Context, entry *models.StockEntry) error

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	LockOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, order *models.Order) error
	UpdateOrderPayment(ctx context.Context, orderID int64, paidAmount decimal.Decimal, paidAt *time.Time) error
	UpdateOrderDetails(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id int64) error

	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)

	AppendStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	GetStatusHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error)
}

// Repository adds units of work on top of Queries. Every write made through
// the Queries handed to fn commits together or not at all.
type Repository interface {
	Queries
	WithinTx(ctx context.Context, fn func(q Queries) error) error
}

// Store is the Postgres implementation of Repository
type Store struct {
	*queries
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewStoreFromDB(db), nil
}

// NewStoreFromDB wraps an already opened connection
func NewStoreFromDB(db *sqlx.DB) *Store {
	return &Store{queries: &queries{ext: db}, db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WithinTx runs fn inside a single database transaction
func (s *Store) WithinTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{ext: tx}); err != nil {
		return asLockConflict(err)
	}

	if err := tx.Commit(); err != nil {
		return asLockConflict(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// queries runs statements against either *sqlx.DB or *sqlx.Tx
type queries struct {
	ext sqlx.ExtContext
}

func (q *queries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q.ext, dest, query, args...)
}

func (q *queries) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// asLockConflict reclassifies an aborted transaction as a retryable Conflict
func asLockConflict(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	if pqErr.Code != deadlockDetected && pqErr.Code != serializationFailure {
		return err
	}
	return &apperr.Error{
		Kind:    apperr.KindConflict,
		Message: "concurrent update of the same rows, retry the request",
		Err:     err,
	}
}

var _ Repository = (*Store)(nil)
