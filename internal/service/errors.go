package service

import (
	"fmt"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/lock"
)

var (
	ErrEmptyCart          = apperr.New(apperr.ErrEmptyCart, "cart is empty, nothing to checkout")
	ErrCheckoutInProgress = lock.ErrLocked
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthenticated, "invalid credentials")
	ErrIdempotencyKeyUsed = apperr.New(apperr.ErrConflict, "idempotency key belongs to a cancelled checkout, retry with a new key")
)

// KeyReusedError is returned when an idempotency key is replayed for a
// checkout that ended cancelled.
type KeyReusedError struct {
	OrderID string
	Reason  string
}

func (e *KeyReusedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v (order %s)", ErrIdempotencyKeyUsed, e.OrderID)
	}
	return fmt.Sprintf("%v (order %s: %s)", ErrIdempotencyKeyUsed, e.OrderID, e.Reason)
}

func (e *KeyReusedError) Unwrap() error { return ErrIdempotencyKeyUsed }

// StockError reports the line that stopped a checkout. The order it names has
// already been cancelled and any stock taken for earlier lines returned.
type StockError struct {
	OrderID   string
	ProductID string
	Err       error
}

func (e *StockError) Error() string {
	return fmt.Sprintf("order %s cancelled: product %s: %v", e.OrderID, e.ProductID, e.Err)
}

func (e *StockError) Unwrap() error { return e.Err }
