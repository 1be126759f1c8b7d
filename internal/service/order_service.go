package service

import (
	"context"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/google/uuid"
)

type OrderService struct {
	repo repository.OrderRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewOrderService(repo repository.OrderRepository, log *logger.Logger) *OrderService {
	return &OrderService{repo: repo, log: log.With("component", "order_service"), now: time.Now}
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, userID)
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

// GetOrder returns the order if viewerID owns it or the viewer is an admin.
// Other users get ErrOrderNotFound so order ids cannot be probed.
func (s *OrderService) GetOrder(ctx context.Context, rawID, viewerID string, admin bool) (*domain.Order, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, repository.ErrOrderNotFound
	}
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != viewerID && !admin {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus moves an order along the status table. The write only lands if
// the order is still in the status it was read in.
func (s *OrderService) UpdateStatus(ctx context.Context, rawID, rawStatus string) (*domain.Order, error) {
	next, err := domain.ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, repository.ErrOrderNotFound
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if err := order.TransitionTo(next, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateOrderStatus(ctx, order, from); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("order status changed", "order_id", order.ID, "from", from, "to", next)
	return order, nil
}
