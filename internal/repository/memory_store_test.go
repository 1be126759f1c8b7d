package repository

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func seedProduct(t *testing.T, store *MemoryProductStore, slug string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{Title: slug, Slug: slug, Price: 100, Stock: stock, IsActive: true}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func TestMemoryProductStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProductStore()
	p := seedProduct(t, store, "blue-shirt", 5)

	assert.NotEmpty(t, p.ID)

	byID, err := store.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "blue-shirt", byID.Slug)

	bySlug, err := store.GetProductBySlug(ctx, "blue-shirt")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySlug.ID)

	_, err = store.GetProductBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)

	err = store.CreateProduct(ctx, &domain.Product{Title: "dup", Slug: "blue-shirt"})
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestMemoryProductStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProductStore()
	p := seedProduct(t, store, "shirt", 5)

	got, err := store.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	got.Stock = 1000

	again, err := store.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, again.Stock)
}

func TestMemoryProductStore_ListProducts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProductStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"Red Mug", "Blue Mug", "Green Shirt", "Hidden Mug"} {
		p := &domain.Product{
			Title:     title,
			Slug:      domain.Slugify(title),
			IsActive:  title != "Hidden Mug",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.CreateProduct(ctx, p))
	}

	t.Run("active only newest first", func(t *testing.T) {
		items, total, err := store.ListProducts(ctx, ProductQuery{ActiveOnly: true})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, items, 3)
		assert.Equal(t, "Green Shirt", items[0].Title)
		assert.Equal(t, "Red Mug", items[2].Title)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		items, total, err := store.ListProducts(ctx, ProductQuery{Search: "mug", ActiveOnly: true})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, items, 2)
	})

	t.Run("admin listing includes inactive", func(t *testing.T) {
		_, total, err := store.ListProducts(ctx, ProductQuery{Search: "MUG"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})

	t.Run("pagination", func(t *testing.T) {
		items, total, err := store.ListProducts(ctx, ProductQuery{Page: 2, Limit: 2, ActiveOnly: true})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, items, 1)
		assert.Equal(t, "Red Mug", items[0].Title)

		items, _, err = store.ListProducts(ctx, ProductQuery{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestMemoryProductStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProductStore()
	p := seedProduct(t, store, "mug", 5)
	seedProduct(t, store, "cup", 5)

	price := 42.5
	updated, err := store.UpdateProduct(ctx, p.ID, domain.ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 42.5, updated.Price)
	assert.Equal(t, "mug", updated.Slug)

	taken := "cup"
	_, err = store.UpdateProduct(ctx, p.ID, domain.ProductUpdate{Slug: &taken})
	assert.ErrorIs(t, err, ErrDuplicateSlug)

	require.NoError(t, store.DeleteProduct(ctx, p.ID))
	assert.ErrorIs(t, store.DeleteProduct(ctx, p.ID), ErrProductNotFound)
	_, err = store.UpdateProduct(ctx, p.ID, domain.ProductUpdate{Price: &price})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryProductStore_DecrementStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProductStore()
	p := seedProduct(t, store, "mug", 5)

	require.NoError(t, store.DecrementStock(ctx, p.ID, 2))
	assert.ErrorIs(t, store.DecrementStock(ctx, p.ID, 4), ErrInsufficientStock)
	assert.ErrorIs(t, store.DecrementStock(ctx, "missing", 1), ErrProductNotFound)

	got, _ := store.GetProductByID(ctx, p.ID)
	assert.Equal(t, 3, got.Stock)

	require.NoError(t, store.IncrementStock(ctx, p.ID, 2))
	got, _ = store.GetProductByID(ctx, p.ID)
	assert.Equal(t, 5, got.Stock)
}

func TestMemoryProductStore_DecrementStockInactive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProductStore()
	p := seedProduct(t, store, "mug", 5)

	inactive := false
	_, err := store.UpdateProduct(ctx, p.ID, domain.ProductUpdate{IsActive: &inactive})
	require.NoError(t, err)

	assert.ErrorIs(t, store.DecrementStock(ctx, p.ID, 1), ErrProductNotFound)
	got, _ := store.GetProductByID(ctx, p.ID)
	assert.Equal(t, 5, got.Stock)
}

func TestMemoryProductStore_ConcurrentDecrementNeverOversells(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProductStore()
	p := seedProduct(t, store, "mug", 10)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.DecrementStock(ctx, p.ID, 3) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	got, _ := store.GetProductByID(ctx, p.ID)
	assert.Equal(t, int32(3), ok.Load())
	assert.Equal(t, 1, got.Stock)
}

func TestMemoryProductStore_StockNeverNegativeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := NewMemoryProductStore()
		initial := rapid.IntRange(0, 50).Draw(t, "stock")
		p := &domain.Product{Title: "p", Slug: "p", Stock: initial, IsActive: true}
		if err := store.CreateProduct(ctx, p); err != nil {
			t.Fatal(err)
		}

		expected := initial
		ops := rapid.SliceOfN(rapid.IntRange(-10, 10), 1, 60).Draw(t, "ops")
		for _, op := range ops {
			if op >= 0 {
				err := store.DecrementStock(ctx, p.ID, op)
				if op <= expected {
					if err != nil {
						t.Fatalf("decrement %d with %d left: %v", op, expected, err)
					}
					expected -= op
				} else if err == nil {
					t.Fatalf("decrement %d succeeded with only %d left", op, expected)
				}
			} else {
				if err := store.IncrementStock(ctx, p.ID, -op); err != nil {
					t.Fatal(err)
				}
				expected -= op
			}
		}

		got, _ := store.GetProductByID(ctx, p.ID)
		if got.Stock != expected || got.Stock < 0 {
			t.Fatalf("stock %d, want %d", got.Stock, expected)
		}
	})
}

func TestMemoryCartStore_VersionedSave(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCartStore()

	_, err := store.GetCart(ctx, "user-1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	cart := domain.NewCart("user-1", time.Now())
	require.NoError(t, store.SaveCart(ctx, cart))
	assert.EqualValues(t, 1, cart.Version)

	// a second writer that also started from "no cart" loses
	assert.ErrorIs(t, store.SaveCart(ctx, domain.NewCart("user-1", time.Now())), ErrVersionConflict)

	a, _ := store.GetCart(ctx, "user-1")
	b, _ := store.GetCart(ctx, "user-1")
	a.Currency = "USD"
	require.NoError(t, store.SaveCart(ctx, a))
	assert.ErrorIs(t, store.SaveCart(ctx, b), ErrVersionConflict)

	got, _ := store.GetCart(ctx, "user-1")
	assert.Equal(t, "USD", got.Currency)
	assert.EqualValues(t, 2, got.Version)
}

func TestMemoryOrderStore_CreateAndIdempotency(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOrderStore()
	order := domain.NewOrder("user-1", "INR", "key-1", []domain.CartItem{{ID: "l1", ProductID: "p1", PriceSnapshot: 10, Qty: 2}}, time.Now())

	require.NoError(t, store.CreateOrder(ctx, order))

	got, err := store.GetOrderByIdempotencyKey(ctx, "user-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = store.GetOrderByIdempotencyKey(ctx, "user-2", "key-1")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	dup := domain.NewOrder("user-1", "INR", "key-1", nil, time.Now())
	assert.ErrorIs(t, store.CreateOrder(ctx, dup), ErrDuplicateOrder)

	events, err := store.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOrderCreated, events[0].EventType)
	assert.Equal(t, order.ID.String(), events[0].AggregateID)

	var ev domain.OrderEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &ev))
	assert.Equal(t, 20.0, ev.GrandTotal)
	assert.Len(t, ev.Items, 1)
}

func TestMemoryOrderStore_UpdateOrderStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOrderStore()
	order := domain.NewOrder("user-1", "INR", "", nil, time.Now())
	require.NoError(t, store.CreateOrder(ctx, order))

	paid := order.Clone()
	require.NoError(t, paid.TransitionTo(domain.OrderStatusPaid, time.Now()))
	require.NoError(t, store.UpdateOrderStatus(ctx, paid, domain.OrderStatusCreated))

	cancelled := order.Clone()
	require.NoError(t, cancelled.TransitionTo(domain.OrderStatusCancelled, time.Now()))
	assert.ErrorIs(t, store.UpdateOrderStatus(ctx, cancelled, domain.OrderStatusCreated), ErrStatusConflict)

	got, _ := store.GetOrderByID(ctx, order.ID)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)
	assert.Equal(t, domain.PaymentStatusPaid, got.Payment.Status)

	events, _ := store.GetUnprocessedEvents(ctx, 10)
	require.Len(t, events, 2)
	for _, ev := range events {
		require.NoError(t, store.MarkEventAsProcessed(ctx, ev.ID))
	}
	events, _ = store.GetUnprocessedEvents(ctx, 10)
	assert.Empty(t, events)
}

func TestMemoryOrderStore_ListOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOrderStore()
	base := time.Now()
	for i, user := range []string{"a", "b", "a"} {
		require.NoError(t, store.CreateOrder(ctx, domain.NewOrder(user, "INR", "", nil, base.Add(time.Duration(i)*time.Minute))))
	}

	mine, err := store.ListOrdersByUserID(ctx, "a")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt))

	all, err := store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	u := &domain.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x", Roles: []string{domain.RoleCustomer}}

	require.NoError(t, store.CreateUser(ctx, u))
	assert.ErrorIs(t, store.CreateUser(ctx, &domain.User{Email: "ann@example.com"}), ErrEmailTaken)

	byEmail, err := store.GetUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", byID.Name)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
