package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/auth"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128
)

type Checkouter interface {
	Checkout(ctx context.Context, userID, idempotencyKey string) (*domain.Order, error)
}

type OrderUseCase interface {
	ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	GetOrder(ctx context.Context, rawID, viewerID string, admin bool) (*domain.Order, error)
	UpdateStatus(ctx context.Context, rawID, rawStatus string) (*domain.Order, error)
}

type OrderHandler struct {
	checkout Checkouter
	orders   OrderUseCase
	log      *logger.Logger
}

func NewOrderHandler(checkout Checkouter, orders OrderUseCase, log *logger.Logger) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, log: log}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status" validate:"required"`
}

// Checkout creates an order from the caller's cart. Repeating a request with
// the same Idempotency-Key returns the original order.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if len(key) > maxIdempotencyKey {
		handleServiceError(w, r, h.log, apperr.Validation("%s must be at most %d characters", idempotencyHeader, maxIdempotencyKey))
		return
	}

	order, err := h.checkout.Checkout(r.Context(), s.SubjectID, key)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusCreated, order)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	orders, err := h.orders.ListUserOrders(r.Context(), s.SubjectID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"), s.SubjectID, s.HasRole(domain.RoleAdmin))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, order)
}

func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	orders, err := h.orders.ListAllOrders(r.Context())
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	var req UpdateStatusRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.Status))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.log.WithContext(r.Context()).Info("admin changed order status", "admin_id", s.SubjectID, "order_id", order.ID, "status", order.Status)
	respondJSON(w, h.log, http.StatusOK, order)
}
