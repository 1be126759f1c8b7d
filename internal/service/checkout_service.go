package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/lock"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
)

const (
	outcomeSuccess    = "success"
	outcomeReplayed   = "replayed"
	outcomeEmptyCart  = "empty_cart"
	outcomeInProgress = "in_progress"
	outcomeNoStock    = "insufficient_stock"
	outcomeError      = "error"
)

// CheckoutRecorder receives one outcome label per checkout attempt.
type CheckoutRecorder interface {
	RecordCheckout(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCheckout(string) {}

type CheckoutService struct {
	carts    *CartService
	products repository.ProductRepository
	orders   repository.OrderRepository
	locker   lock.Locker
	lockTTL  time.Duration
	recorder CheckoutRecorder
	log      *logger.Logger
	now      func() time.Time
}

func NewCheckoutService(
	carts *CartService,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	locker lock.Locker,
	lockTTL time.Duration,
	recorder CheckoutRecorder,
	log *logger.Logger,
) *CheckoutService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &CheckoutService{
		carts:    carts,
		products: products,
		orders:   orders,
		locker:   locker,
		lockTTL:  lockTTL,
		recorder: recorder,
		log:      log.With("component", "checkout_service"),
		now:      time.Now,
	}
}

// Checkout turns the user's cart into an order and takes the stock for it.
//
// The order is written first with status created. Stock is then taken line by
// line with a conditional decrement; if any line fails, stock already taken is
// put back and the order is cancelled. Only after every line succeeded are the
// checked-out lines removed from the cart.
func (s *CheckoutService) Checkout(ctx context.Context, userID, idempotencyKey string) (*domain.Order, error) {
	log := s.log.WithContext(ctx).With("user_id", userID)

	if idempotencyKey != "" {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, userID, idempotencyKey)
		if err == nil {
			log.Info("duplicate checkout request", "order_id", existing.ID, "status", existing.Status, "idempotency_key", idempotencyKey)
			s.recorder.RecordCheckout(outcomeReplayed)
			return replay(existing)
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			s.recorder.RecordCheckout(outcomeError)
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	release, err := s.locker.Acquire(ctx, "checkout:"+userID, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			s.recorder.RecordCheckout(outcomeInProgress)
			return nil, ErrCheckoutInProgress
		}
		s.recorder.RecordCheckout(outcomeError)
		return nil, err
	}
	defer release()

	order, err := s.checkout(ctx, log, userID, idempotencyKey)
	s.recorder.RecordCheckout(outcomeOf(err))
	return order, err
}

func (s *CheckoutService) checkout(ctx context.Context, log *logger.Logger, userID, idempotencyKey string) (*domain.Order, error) {
	cart, err := s.carts.LoadForCheckout(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	snapshot := cart.Snapshot()
	order := domain.NewOrder(userID, cart.Currency, idempotencyKey, snapshot, s.now().UTC())

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) && idempotencyKey != "" {
			// a concurrent request with the same key won the insert
			existing, err := s.orders.GetOrderByIdempotencyKey(ctx, userID, idempotencyKey)
			if err != nil {
				return nil, err
			}
			return replay(existing)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	log = log.With("order_id", order.ID)

	if err := s.takeStock(ctx, log, order); err != nil {
		return nil, err
	}

	if _, err := s.carts.ConsumeLines(ctx, userID, snapshot); err != nil {
		// the order and the stock movement stand; the cart keeps stale lines
		log.Error("failed to clear checked-out lines from cart", "error", err)
	}

	log.Info("checkout completed", "grand_total", order.Totals.GrandTotal, "lines", len(order.Items))
	return order, nil
}

// replay answers a repeated idempotency key. A key whose checkout was
// cancelled never reports success; the client needs a new key to try again.
func replay(order *domain.Order) (*domain.Order, error) {
	if order.Status == domain.OrderStatusCancelled {
		return nil, &KeyReusedError{OrderID: order.ID.String(), Reason: order.CancelReason}
	}
	return order, nil
}

func outcomeOf(err error) string {
	var stockErr *StockError
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrEmptyCart):
		return outcomeEmptyCart
	case errors.As(err, &stockErr):
		return outcomeNoStock
	case errors.Is(err, ErrIdempotencyKeyUsed):
		return outcomeReplayed
	default:
		return outcomeError
	}
}
