package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/auth"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/service"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type ProductCatalog interface {
	ListProducts(ctx context.Context, q repository.ProductQuery) (*service.ProductPage, error)
	GetPublicProduct(ctx context.Context, slug string) (*domain.Product, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type ProductHandler struct {
	svc ProductCatalog
	log *logger.Logger
}

func NewProductHandler(svc ProductCatalog, log *logger.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, log: log}
}

type CreateProductRequestDTO struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Slug        string         `json:"slug" validate:"max=200"`
	Description string         `json:"description"`
	Price       float64        `json:"price" validate:"gte=0"`
	Stock       int            `json:"stock" validate:"gte=0"`
	IsActive    *bool          `json:"isActive"`
	Categories  []string       `json:"categories"`
	Images      []domain.Image `json:"images"`
}

type UpdateProductRequestDTO struct {
	Title       *string        `json:"title"`
	Slug        *string        `json:"slug"`
	Description *string        `json:"description"`
	Price       *float64       `json:"price"`
	Stock       *int           `json:"stock"`
	IsActive    *bool          `json:"isActive"`
	Categories  []string       `json:"categories"`
	Images      []domain.Image `json:"images"`
}

// List serves the public catalog: active products only.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// ListAll is the admin view and includes inactive products.
func (h *ProductHandler) ListAll(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	h.list(w, r, false)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	page, err := h.svc.ListProducts(r.Context(), repository.ProductQuery{
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		Page:       queryInt(r, "page"),
		Limit:      queryInt(r, "limit"),
		ActiveOnly: activeOnly,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, page)
}

func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPublicProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	var req CreateProductRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	p, err := h.svc.CreateProduct(r.Context(), service.ProductInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		IsActive:    req.IsActive,
		Categories:  req.Categories,
		Images:      req.Images,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.log.WithContext(r.Context()).Info("admin created product", "admin_id", s.SubjectID, "product_id", p.ID)
	respondJSON(w, h.log, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	var req UpdateProductRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	p, err := h.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), domain.ProductUpdate{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		IsActive:    req.IsActive,
		Categories:  req.Categories,
		Images:      req.Images,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	if err := h.svc.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, map[string]bool{"ok": true})
}
