package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yashrajoria/shopswift-api/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
)

// Page selects a window of a listing. Limit 0 means everything.
type Page struct {
	Page  int
	Limit int
}

func (p Page) skip() int64 {
	if p.Limit <= 0 || p.Page <= 1 {
		return 0
	}
	return int64((p.Page - 1) * p.Limit)
}

// ProductRepo reads products and adjusts their stock
type ProductRepo interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	// DecrementStock removes qty units only if at least qty are in stock.
	// It returns ErrInsufficientStock when the guard does not hold.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// CartRepo stores one cart per user
type CartRepo interface {
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	FindWithProducts(ctx context.Context, userID string) (*models.CartView, error)
	// Save inserts a new cart or replaces the stored one if its version still
	// matches cart.Version. On success cart.Version is incremented.
	Save(ctx context.Context, cart *models.Cart) error
	// DeleteIfUnchanged removes the user's cart only while it is at version.
	DeleteIfUnchanged(ctx context.Context, userID string, version int64) error
}

type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByUser(ctx context.Context, userID string, page Page) ([]models.Order, int64, error)
	FindAll(ctx context.Context, page Page) ([]models.Order, int64, error)
	// MarkDelivered moves a placed order to delivered. An order that is
	// already delivered is returned as stored.
	MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserRepo resolves display data for order owners
type UserRepo interface {
	FindSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
}

// IdempotencyRepo tracks client supplied keys for order placement
type IdempotencyRepo interface {
	// Reserve claims key. When the key is already taken it returns the order
	// id recorded for it, or "" while the first request is still running.
	Reserve(ctx context.Context, key string) (orderID string, reserved bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

// Transactor runs fn so that its writes commit or roll back together.
// Repositories must be called with the ctx passed to fn.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Atomic reports whether rollback is done by the database. When false
	// the caller is responsible for compensating partial writes.
	Atomic() bool
}
