package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	svc      *CartService
	carts    *conflictingCartRepo
	products *repository.MemoryProductStore
	cache    *mockCache
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	f := &cartFixture{
		carts:    &conflictingCartRepo{MemoryCartStore: repository.NewMemoryCartStore()},
		products: repository.NewMemoryProductStore(),
		cache:    newMockCache(),
	}
	f.svc = NewCartService(f.carts, f.products, f.cache, logger.NewNop())
	return f
}

func (f *cartFixture) product(t *testing.T, slug string, price float64, stock int, active bool) *domain.Product {
	t.Helper()
	p := &domain.Product{Title: slug, Slug: slug, Price: price, Stock: stock, IsActive: active}
	require.NoError(t, f.products.CreateProduct(context.Background(), p))
	return p
}

func TestCartService_GetCart_NoCartReturnsEmpty(t *testing.T) {
	f := newCartFixture(t)

	cart, err := f.svc.GetCart(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", cart.UserID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, domain.DefaultCurrency, cart.Currency)
	assert.Zero(t, cart.Totals.GrandTotal)

	_, err = f.carts.MemoryCartStore.GetCart(context.Background(), "user-1")
	assert.ErrorIs(t, err, repository.ErrCartNotFound, "reading must not persist a cart")
}

func TestCartService_GetCart_ServesFromCacheAfterFill(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", 10, 5, true)
	_, err := f.svc.AddItem(ctx, "user-1", p.ID, 1)
	require.NoError(t, err)
	f.cache.Delete(ctx, "user-1")

	first, err := f.svc.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, first.Items, 1)

	require.Eventually(t, func() bool {
		return f.cache.cached("user-1") != nil
	}, time.Second, 10*time.Millisecond)

	f.carts.m.Lock()
	getsBefore := f.carts.gets
	f.carts.m.Unlock()

	second, err := f.svc.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.Items, second.Items)

	f.carts.m.Lock()
	assert.Equal(t, getsBefore, f.carts.gets)
	f.carts.m.Unlock()
}

func TestCartService_GetCart_CacheErrorFallsBackToRepo(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", 10, 5, true)
	_, err := f.svc.AddItem(ctx, "user-1", p.ID, 3)
	require.NoError(t, err)
	f.cache.getErr = errors.New("redis down")

	cart, err := f.svc.GetCart(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Qty)
}

func TestCartService_GetCart_SharedLoadSurvivesCancelledCaller(t *testing.T) {
	repo := newBlockingCartRepo()
	svc := NewCartService(repo, repository.NewMemoryProductStore(), newMockCache(), logger.NewNop())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetCart(firstCtx, "user-1")
		firstErr <- err
	}()
	<-repo.entered

	type result struct {
		cart *domain.Cart
		err  error
	}
	second := make(chan result, 1)
	go func() {
		cart, err := svc.GetCart(context.Background(), "user-1")
		second <- result{cart, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(repo.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "user-1", res.cart.UserID)
	assert.Empty(t, res.cart.Items)
	assert.Equal(t, 1, repo.loads(), "both callers shared one load")
}

func TestCartService_AddItem(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", 100, 5, true)

	cart, err := f.svc.AddItem(ctx, "user-1", p.ID, 2)

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "mug", cart.Items[0].TitleSnapshot)
	assert.Equal(t, 100.0, cart.Items[0].PriceSnapshot)
	assert.Equal(t, 200.0, cart.Totals.Subtotal)
	assert.Equal(t, 200.0, cart.Totals.GrandTotal)
	assert.EqualValues(t, 1, cart.Version)

	cached := f.cache.cached("user-1")
	require.NotNil(t, cached, "mutation writes through to the cache")
	assert.EqualValues(t, 1, cached.Version)

	cart, err = f.svc.AddItem(ctx, "user-1", p.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Qty)
	assert.Equal(t, 300.0, cart.Totals.Subtotal)
}

func TestCartService_AddItem_Rejects(t *testing.T) {
	f := newCartFixture(t)
	active := f.product(t, "mug", 10, 5, true)
	inactive := f.product(t, "old-mug", 10, 5, false)

	tests := []struct {
		name      string
		productID string
		qty       int
		want      error
	}{
		{name: "zero qty", productID: active.ID, qty: 0, want: apperr.ErrValidation},
		{name: "negative qty", productID: active.ID, qty: -2, want: apperr.ErrValidation},
		{name: "missing product id", productID: "", qty: 1, want: apperr.ErrValidation},
		{name: "unknown product", productID: "nope", qty: 1, want: apperr.ErrNotFound},
		{name: "inactive product", productID: inactive.ID, qty: 1, want: apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := f.svc.AddItem(context.Background(), "user-1", tt.productID, tt.qty)
			assert.Nil(t, cart)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCartService_UpdateItemQty(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", 2.5, 5, true)
	cart, err := f.svc.AddItem(ctx, "user-1", p.ID, 2)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = f.svc.UpdateItemQty(ctx, "user-1", itemID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Qty)
	assert.Equal(t, 2.5, cart.Totals.Subtotal)

	cart, err = f.svc.UpdateItemQty(ctx, "user-1", itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cart.Totals.Subtotal)

	_, err = f.svc.UpdateItemQty(ctx, "user-1", "missing", 4)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = f.svc.UpdateItemQty(ctx, "user-2", itemID, 4)
	assert.ErrorIs(t, err, repository.ErrCartNotFound)
}

func TestCartService_RemoveItemAndClear(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	a := f.product(t, "mug", 10, 5, true)
	b := f.product(t, "cup", 5, 5, true)
	_, err := f.svc.AddItem(ctx, "user-1", a.ID, 1)
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, "user-1", b.ID, 2)
	require.NoError(t, err)

	cart, err = f.svc.RemoveItem(ctx, "user-1", cart.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 10.0, cart.Totals.Subtotal)

	_, err = f.svc.RemoveItem(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cart, err = f.svc.ClearCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Totals.GrandTotal)

	cart, err = f.svc.ClearCart(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_RetriesOnVersionConflict(t *testing.T) {
	f := newCartFixture(t)
	p := f.product(t, "mug", 10, 5, true)
	f.carts.conflicts = 2

	cart, err := f.svc.AddItem(context.Background(), "user-1", p.ID, 1)

	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Qty)
	assert.Equal(t, 3, f.carts.saves)
}

func TestCartService_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newCartFixture(t)
	p := f.product(t, "mug", 10, 5, true)
	f.carts.conflicts = maxCartAttempts

	_, err := f.svc.AddItem(context.Background(), "user-1", p.ID, 1)

	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCartService_ConcurrentAddsLoseNothing(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", 1, 100, true)
	// keep contention within the retry budget
	const writers = 4

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.AddItem(ctx, "user-1", p.ID, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		require.ErrorIs(t, err, repository.ErrVersionConflict)
		failed++
	}

	cart, err := f.carts.MemoryCartStore.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, writers-failed, cart.Items[0].Qty)
}

func TestCartService_CacheSetFailureDropsEntry(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", 10, 5, true)
	f.cache.err = errors.New("redis down")

	_, err := f.svc.AddItem(ctx, "user-1", p.ID, 1)

	require.NoError(t, err)
	sets, deletes := f.cache.counts()
	assert.Equal(t, 1, sets)
	assert.Equal(t, 1, deletes)
}

func TestCartService_ConsumeLinesKeepsLaterActivity(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	a := f.product(t, "mug", 10, 5, true)
	b := f.product(t, "cup", 1, 5, true)
	cart, err := f.svc.AddItem(ctx, "user-1", a.ID, 2)
	require.NoError(t, err)
	snapshot := cart.Snapshot()

	_, err = f.svc.AddItem(ctx, "user-1", b.ID, 3)
	require.NoError(t, err)

	cart, err = f.svc.ConsumeLines(ctx, "user-1", snapshot)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ID, cart.Items[0].ProductID)
	assert.Equal(t, 3.0, cart.Totals.Subtotal)
}
