package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
)

const compensationTimeout = 5 * time.Second

// takeStock decrements stock for every order line. On the first failure it
// restores the lines already taken and cancels the order.
func (s *CheckoutService) takeStock(ctx context.Context, log *logger.Logger, order *domain.Order) error {
	for i, item := range order.Items {
		err := s.products.DecrementStock(ctx, item.ProductID, item.Qty)
		if err == nil {
			continue
		}

		// compensation must finish even if the request was cancelled
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
		s.restoreStock(cctx, log, order.Items[:i])
		s.cancelOrder(cctx, log, order, fmt.Sprintf("product %s: %v", item.ProductID, err))
		cancel()

		log.Warn("checkout aborted", "product_id", item.ProductID, "qty", item.Qty, "error", err)
		return &StockError{OrderID: order.ID.String(), ProductID: item.ProductID, Err: err}
	}
	return nil
}

func (s *CheckoutService) restoreStock(ctx context.Context, log *logger.Logger, items []domain.OrderItem) {
	for _, item := range items {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Qty); err != nil {
			log.Error("failed to restore stock", "product_id", item.ProductID, "qty", item.Qty, "error", err)
		}
	}
}

func (s *CheckoutService) cancelOrder(ctx context.Context, log *logger.Logger, order *domain.Order, reason string) {
	from := order.Status
	if err := order.TransitionTo(domain.OrderStatusCancelled, s.now().UTC()); err != nil {
		log.Error("cannot cancel order", "status", from, "error", err)
		return
	}
	order.CancelReason = reason
	if err := s.orders.UpdateOrderStatus(ctx, order, from); err != nil {
		log.Error("failed to cancel order", "error", err)
	}
}
