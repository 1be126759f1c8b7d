// Package repository holds the storage contracts and their MongoDB, Postgres
// and in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = apperr.New(apperr.ErrNotFound, "product not found")
	ErrDuplicateSlug     = apperr.New(apperr.ErrConflict, "product slug already exists")
	ErrInsufficientStock = apperr.New(apperr.ErrInventoryConflict, "insufficient stock")

	ErrCartNotFound    = apperr.New(apperr.ErrNotFound, "cart not found")
	ErrVersionConflict = apperr.New(apperr.ErrConflict, "cart was modified concurrently")

	ErrOrderNotFound  = apperr.New(apperr.ErrNotFound, "order not found")
	ErrDuplicateOrder = apperr.New(apperr.ErrConflict, "order already exists for this idempotency key")
	ErrStatusConflict = apperr.New(apperr.ErrConflict, "order status changed concurrently")

	ErrUserNotFound = apperr.New(apperr.ErrNotFound, "user not found")
	ErrEmailTaken   = apperr.New(apperr.ErrConflict, "email already registered")
)

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
)

type ProductQuery struct {
	Search     string
	Page       int
	Limit      int
	ActiveOnly bool
}

// Normalize applies paging defaults: page 1, limit 12, limit capped at 100.
func (q ProductQuery) Normalize() ProductQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

func (q ProductQuery) Skip() int64 {
	return int64((q.Page - 1) * q.Limit)
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	// ListProducts returns one page, newest first, plus the total match count.
	ListProducts(ctx context.Context, q ProductQuery) ([]*domain.Product, int64, error)
	UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// DecrementStock removes qty from stock only if the product is active and at
	// least qty is available, as one atomic step. Returns ErrInsufficientStock,
	// or ErrProductNotFound for a missing or inactive product.
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
	Ping(ctx context.Context) error
}

type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// SaveCart writes the cart only if the stored version still equals
	// cart.Version (0 means "not stored yet") and bumps cart.Version on success.
	// A lost race returns ErrVersionConflict.
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

type OrderRepository interface {
	// CreateOrder stores the order together with its order.created outbox event.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	// UpdateOrderStatus persists order's status, payment and cancel reason if
	// the stored status still equals from, and appends an order.status_changed event.
	UpdateOrderStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) error
	Ping(ctx context.Context) error
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}
