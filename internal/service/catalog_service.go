package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/google/uuid"
)

type ProductInput struct {
	Title       string
	Slug        string
	Description string
	Price       float64
	Stock       int
	IsActive    *bool
	Categories  []string
	Images      []domain.Image
}

type ProductPage struct {
	Data  []*domain.Product `json:"data"`
	Page  int               `json:"page"`
	Total int64             `json:"total"`
	Pages int               `json:"pages"`
}

type CatalogService struct {
	repo repository.ProductRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewCatalogService(repo repository.ProductRepository, log *logger.Logger) *CatalogService {
	return &CatalogService{repo: repo, log: log.With("component", "catalog_service"), now: time.Now}
}

// CreateProduct stores a new product. The slug is derived from the title when
// not given; products are active unless stated otherwise.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	slug := domain.Slugify(in.Slug)
	if slug == "" {
		slug = domain.Slugify(in.Title)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := s.now().UTC()
	p := &domain.Product{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Slug:        slug,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		IsActive:    active,
		Categories:  in.Categories,
		Images:      in.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("product created", "product_id", p.ID, "slug", p.Slug)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	if upd.IsEmpty() {
		return nil, apperr.Validation("no fields to update")
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, apperr.Validation("title must not be empty")
	}
	if upd.Slug != nil {
		slug := domain.Slugify(*upd.Slug)
		if slug == "" {
			return nil, apperr.Validation("slug must contain letters or digits")
		}
		upd.Slug = &slug
	}
	if upd.Price != nil && *upd.Price < 0 {
		return nil, apperr.Validation("price must not be negative")
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return nil, apperr.Validation("stock must not be negative")
	}
	return s.repo.UpdateProduct(ctx, id, upd)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.WithContext(ctx).Info("product deleted", "product_id", id)
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

// GetPublicProduct looks a product up by slug; inactive products are hidden.
func (s *CatalogService) GetPublicProduct(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, q repository.ProductQuery) (*ProductPage, error) {
	q = q.Normalize()
	items, total, err := s.repo.ListProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ProductPage{
		Data:  items,
		Page:  q.Page,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(q.Limit))),
	}, nil
}
