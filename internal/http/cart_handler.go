package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/auth"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type CartUseCase interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error)
	UpdateItemQty(ctx context.Context, userID, itemID string, qty int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) (*domain.Cart, error)
}

type CartHandler struct {
	svc CartUseCase
	log *logger.Logger
}

func NewCartHandler(svc CartUseCase, log *logger.Logger) *CartHandler {
	return &CartHandler{svc: svc, log: log}
}

type AddItemRequestDTO struct {
	ProductID string          `json:"productId" validate:"required"`
	Qty       json.RawMessage `json:"qty"`
}

type UpdateQuantityRequestDTO struct {
	Qty json.RawMessage `json:"qty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	cart, err := h.svc.GetCart(r.Context(), s.SubjectID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, cart)
}

// ListItems returns just the cart lines.
func (h *CartHandler) ListItems(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	cart, err := h.svc.GetCart(r.Context(), s.SubjectID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	respondJSON(w, h.log, http.StatusOK, items)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	var req AddItemRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	qty, err := strictQty(req.Qty)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	cart, err := h.svc.AddItem(r.Context(), s.SubjectID, req.ProductID, qty)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusCreated, cart)
}

// UpdateQuantity never rejects a bad qty; it is coerced into 1..999.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	var req UpdateQuantityRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	cart, err := h.svc.UpdateItemQty(r.Context(), s.SubjectID, chi.URLParam(r, "itemId"), lenientQty(req.Qty))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	cart, err := h.svc.RemoveItem(r.Context(), s.SubjectID, chi.URLParam(r, "itemId"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	cart, err := h.svc.ClearCart(r.Context(), s.SubjectID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, cart)
}
