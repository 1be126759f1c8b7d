package service

import (
	"context"
	"sync"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/cache"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
)

type mockCache struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	err     error
	getErr  error
	sets    int
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.sets++
	if m.err != nil {
		return m.err
	}
	if cur, ok := m.carts[userID]; ok && cur.Version > cart.Version {
		return nil
	}
	m.carts[userID] = cart.Clone()
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	delete(m.carts, userID)
	return nil
}

func (m *mockCache) cached(userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[userID]
}

func (m *mockCache) counts() (sets, deletes int) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.sets, m.deletes
}

// conflictingCartRepo fails the next `conflicts` saves with a version conflict.
type conflictingCartRepo struct {
	*repository.MemoryCartStore
	m         sync.Mutex
	conflicts int
	saves     int
	gets      int
}

func (r *conflictingCartRepo) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	r.m.Lock()
	r.gets++
	r.m.Unlock()
	return r.MemoryCartStore.GetCart(ctx, userID)
}

func (r *conflictingCartRepo) SaveCart(ctx context.Context, cart *domain.Cart) error {
	r.m.Lock()
	r.saves++
	if r.conflicts > 0 {
		r.conflicts--
		r.m.Unlock()
		return repository.ErrVersionConflict
	}
	r.m.Unlock()
	return r.MemoryCartStore.SaveCart(ctx, cart)
}

// failingCartRepo fails every save with err once armed.
type failingCartRepo struct {
	*repository.MemoryCartStore
	m   sync.Mutex
	err error
}

func (r *failingCartRepo) arm(err error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.err = err
}

func (r *failingCartRepo) SaveCart(ctx context.Context, cart *domain.Cart) error {
	r.m.Lock()
	err := r.err
	r.m.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryCartStore.SaveCart(ctx, cart)
}

// blockingProducts parks DecrementStock until release is closed.
type blockingProducts struct {
	*repository.MemoryProductStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProducts) DecrementStock(ctx context.Context, id string, qty int) error {
	b.entered <- struct{}{}
	<-b.release
	return b.MemoryProductStore.DecrementStock(ctx, id, qty)
}

type recordingRecorder struct {
	m        sync.Mutex
	outcomes map[string]int
}

func (r *recordingRecorder) RecordCheckout(outcome string) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[outcome]++
}

func (r *recordingRecorder) count(outcome string) int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.outcomes[outcome]
}

type stubTokens struct{}

func (stubTokens) Issue(subjectID string, roles []string) (string, time.Time, error) {
	return "token-for-" + subjectID, time.Unix(1_700_000_000, 0), nil
}

// blockingCartRepo parks GetCart until release is closed or the call's
// context ends.
type blockingCartRepo struct {
	*repository.MemoryCartStore
	entered chan struct{}
	release chan struct{}
	m       sync.Mutex
	gets    int
}

func newBlockingCartRepo() *blockingCartRepo {
	return &blockingCartRepo{
		MemoryCartStore: repository.NewMemoryCartStore(),
		entered:         make(chan struct{}, 10),
		release:         make(chan struct{}),
	}
}

func (b *blockingCartRepo) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	b.m.Lock()
	b.gets++
	b.m.Unlock()
	b.entered <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.MemoryCartStore.GetCart(ctx, userID)
}

func (b *blockingCartRepo) loads() int {
	b.m.Lock()
	defer b.m.Unlock()
	return b.gets
}
