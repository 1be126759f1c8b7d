package domain

import (
	"strings"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
)

type Image struct {
	URL string `bson:"url" json:"url" yaml:"url"`
	Alt string `bson:"alt,omitempty" json:"alt,omitempty" yaml:"alt,omitempty"`
}

type Product struct {
	ID          string    `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Slug        string    `bson:"slug" json:"slug"`
	Description string    `bson:"description" json:"description"`
	Price       float64   `bson:"price" json:"price"`
	Stock       int       `bson:"stock" json:"stock"`
	IsActive    bool      `bson:"is_active" json:"isActive"`
	Categories  []string  `bson:"categories" json:"categories"`
	Images      []Image   `bson:"images" json:"images"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// Validate checks the invariants a stored product must always satisfy.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return apperr.Validation("title is required")
	case p.Slug == "":
		return apperr.Validation("slug is required")
	case p.Price < 0:
		return apperr.Validation("price must not be negative")
	case p.Stock < 0:
		return apperr.Validation("stock must not be negative")
	}
	return nil
}

// ProductUpdate is a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Title       *string
	Slug        *string
	Description *string
	Price       *float64
	Stock       *int
	IsActive    *bool
	Categories  []string
	Images      []Image
}

func (u ProductUpdate) IsEmpty() bool {
	return u.Title == nil && u.Slug == nil && u.Description == nil && u.Price == nil &&
		u.Stock == nil && u.IsActive == nil && u.Categories == nil && u.Images == nil
}

// Apply copies the set fields onto p.
func (u ProductUpdate) Apply(p *Product) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Slug != nil {
		p.Slug = *u.Slug
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.Categories != nil {
		p.Categories = append([]string(nil), u.Categories...)
	}
	if u.Images != nil {
		p.Images = append([]Image(nil), u.Images...)
	}
}

// Clone returns a deep copy so callers never share slices with a store.
func (p *Product) Clone() *Product {
	c := *p
	c.Categories = append([]string(nil), p.Categories...)
	c.Images = append([]Image(nil), p.Images...)
	return &c
}
