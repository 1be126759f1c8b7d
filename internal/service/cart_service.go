package service

import (
	"context"
	"errors"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/cache"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// maxCartAttempts bounds the optimistic load-mutate-save loop.
const maxCartAttempts = 5

// cartLoadTimeout bounds a shared GetCart load, which outlives the caller that
// started it.
const cartLoadTimeout = 5 * time.Second

type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	log      *logger.Logger
	sfg      singleflight.Group // Prevents cache stampede
	now      func() time.Time
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository, cache cache.CartCache, log *logger.Logger) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cache,
		log:      log.With("component", "cart_service"),
		now:      time.Now,
	}
}

// GetCart returns the user's cart, or an empty unsaved cart if none exists.
//
// Concurrent calls for one user share a single load. The load does not take
// the cancellation of whichever caller started it; a caller whose own context
// ends stops waiting and gets its context error.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	ch := s.sfg.DoChan(userID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cartLoadTimeout)
		defer cancel()

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithContext(ctx).Warn("cache get error", "user_id", userID, "error", err)
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(userID, s.now()), nil
		}
		if err != nil {
			return nil, err
		}

		go func(c *domain.Cart) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, userID, c); err != nil {
				s.log.Warn("cache set error", "user_id", userID, "error", err)
			}
		}(cart.Clone())

		return cart, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Cart).Clone(), nil
	}
}

// AddItem adds qty of an active product, merging into an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	if qty < 1 || qty > domain.MaxLineQty {
		return nil, apperr.Validation("qty must be between 1 and %d", domain.MaxLineQty)
	}
	if productID == "" {
		return nil, apperr.Validation("productId is required")
	}

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, repository.ErrProductNotFound
	}

	return s.mutate(ctx, userID, true, func(c *domain.Cart) error {
		c.AddLine(product, qty, s.now())
		return nil
	})
}

// UpdateItemQty sets a line's quantity. Values below 1 are clamped to 1.
func (s *CartService) UpdateItemQty(ctx context.Context, userID, itemID string, qty int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, false, func(c *domain.Cart) error {
		return c.SetQty(itemID, qty, s.now())
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, false, func(c *domain.Cart) error {
		return c.RemoveLine(itemID, s.now())
	})
}

// ClearCart empties the cart. A user without a cart gets an empty one back.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.mutate(ctx, userID, false, func(c *domain.Cart) error {
		c.Clear(s.now())
		return nil
	})
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(userID, s.now()), nil
	}
	return cart, err
}

// LoadForCheckout reads the cart straight from the repository, bypassing the cache.
func (s *CartService) LoadForCheckout(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.repo.GetCart(ctx, userID)
}

// ConsumeLines removes a checked-out snapshot from the cart, leaving anything
// added after the snapshot in place.
func (s *CartService) ConsumeLines(ctx context.Context, userID string, lines []domain.CartItem) (*domain.Cart, error) {
	return s.mutate(ctx, userID, false, func(c *domain.Cart) error {
		c.Consume(lines, s.now())
		return nil
	})
}

func (s *CartService) mutate(ctx context.Context, userID string, create bool, fn func(*domain.Cart) error) (*domain.Cart, error) {
	for attempt := 1; attempt <= maxCartAttempts; attempt++ {
		cart, err := s.repo.GetCart(ctx, userID)
		switch {
		case errors.Is(err, repository.ErrCartNotFound) && create:
			cart = domain.NewCart(userID, s.now())
		case err != nil:
			return nil, err
		}

		if err := fn(cart); err != nil {
			return nil, err
		}
		cart.Recalculate()

		err = s.repo.SaveCart(ctx, cart)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.log.WithContext(ctx).Debug("cart version conflict, retrying", "user_id", userID, "attempt", attempt)
			continue
		}
		if err != nil {
			s.log.WithContext(ctx).Error("repo save cart error", "user_id", userID, "error", err)
			return nil, err
		}

		refreshCache(s, cart)
		return cart, nil
	}
	return nil, repository.ErrVersionConflict
}

// refreshCache writes the just-saved cart through to the cache. If that fails
// the entry is dropped so readers fall back to the repository.
func refreshCache(s *CartService, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, cart.UserID, cart); err == nil {
		return
	}
	if err := s.cache.Delete(ctx, cart.UserID); err != nil {
		s.log.Warn("cache invalidate error", "user_id", cart.UserID, "error", err)
	}
}
