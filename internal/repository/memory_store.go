package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/google/uuid"
)

// The memory stores back STORAGE=memory and the service tests. Each one owns
// its own lock, so a product's stock and a user's cart are independent units.
// Values are cloned on the way in and out so callers never share slices with
// the store.

// MemoryProductStore implements ProductRepository.
type MemoryProductStore struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{products: make(map[string]*domain.Product)}
}

func (s *MemoryProductStore) CreateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slugTaken(p.Slug, "") {
		return ErrDuplicateSlug
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = p.Clone()
	return nil
}

func (s *MemoryProductStore) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryProductStore) GetProductBySlug(_ context.Context, slug string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Slug == slug {
			return p.Clone(), nil
		}
	}
	return nil, ErrProductNotFound
}

func (s *MemoryProductStore) ListProducts(_ context.Context, q ProductQuery) ([]*domain.Product, int64, error) {
	q = q.Normalize()
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	s.mu.RLock()
	matched := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if q.ActiveOnly && !p.IsActive {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		matched = append(matched, p.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := int(q.Skip())
	if start >= len(matched) {
		return []*domain.Product{}, total, nil
	}
	end := min(start+q.Limit, len(matched))
	return matched[start:end], total, nil
}

func (s *MemoryProductStore) UpdateProduct(_ context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	if upd.Slug != nil && s.slugTaken(*upd.Slug, id) {
		return nil, ErrDuplicateSlug
	}
	next := current.Clone()
	upd.Apply(next)
	next.UpdatedAt = time.Now()
	s.products[id] = next
	return next.Clone(), nil
}

func (s *MemoryProductStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryProductStore) DecrementStock(_ context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || !p.IsActive {
		return ErrProductNotFound
	}
	if p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryProductStore) IncrementStock(_ context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += qty
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryProductStore) Ping(context.Context) error { return nil }

// slugTaken must be called with s.mu held.
func (s *MemoryProductStore) slugTaken(slug, exceptID string) bool {
	for id, p := range s.products {
		if p.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

// MemoryCartStore implements CartRepository.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]*domain.Cart)}
}

func (s *MemoryCartStore) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (s *MemoryCartStore) SaveCart(_ context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.carts[cart.UserID]
	switch {
	case !exists && cart.Version != 0:
		return ErrVersionConflict
	case exists && current.Version != cart.Version:
		return ErrVersionConflict
	}

	now := time.Now()
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.Version++
	s.carts[cart.UserID] = cart.Clone()
	return nil
}

// MemoryOrderStore implements OrderRepository and OutboxRepository.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
	// byKey indexes orders by user id + idempotency key.
	byKey  map[string]uuid.UUID
	outbox []*memoryOutboxEvent
	nextID int64
}

type memoryOutboxEvent struct {
	OutboxEvent
	processed bool
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders: make(map[uuid.UUID]*domain.Order),
		byKey:  make(map[string]uuid.UUID),
	}
}

func idempotencyIndex(userID, key string) string {
	return userID + "\x00" + key
}

func (s *MemoryOrderStore) CreateOrder(_ context.Context, order *domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderEvent(domain.EventOrderCreated, order))
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return ErrDuplicateOrder
	}
	if order.IdempotencyKey != "" {
		idx := idempotencyIndex(order.UserID, order.IdempotencyKey)
		if _, ok := s.byKey[idx]; ok {
			return ErrDuplicateOrder
		}
		s.byKey[idx] = order.ID
	}
	s.orders[order.ID] = order.Clone()
	s.appendEvent(order.ID.String(), domain.EventOrderCreated, payload)
	return nil
}

func (s *MemoryOrderStore) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (s *MemoryOrderStore) GetOrderByIdempotencyKey(_ context.Context, userID, key string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[idempotencyIndex(userID, key)]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.orders[id].Clone(), nil
}

func (s *MemoryOrderStore) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	return s.list(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (s *MemoryOrderStore) ListOrders(context.Context) ([]*domain.Order, error) {
	return s.list(func(*domain.Order) bool { return true }), nil
}

func (s *MemoryOrderStore) list(keep func(*domain.Order) bool) []*domain.Order {
	s.mu.RLock()
	out := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryOrderStore) UpdateOrderStatus(_ context.Context, order *domain.Order, from domain.OrderStatus) error {
	payload, err := json.Marshal(domain.NewOrderEvent(domain.EventOrderStatusChanged, order))
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[order.ID]
	if !ok {
		return ErrOrderNotFound
	}
	if current.Status != from {
		return ErrStatusConflict
	}
	current.Status = order.Status
	current.Payment = order.Payment
	current.CancelReason = order.CancelReason
	current.UpdatedAt = order.UpdatedAt
	s.appendEvent(order.ID.String(), domain.EventOrderStatusChanged, payload)
	return nil
}

func (s *MemoryOrderStore) Ping(context.Context) error { return nil }

// appendEvent must be called with s.mu held.
func (s *MemoryOrderStore) appendEvent(aggregateID, eventType string, payload []byte) {
	s.nextID++
	s.outbox = append(s.outbox, &memoryOutboxEvent{OutboxEvent: OutboxEvent{
		ID:          s.nextID,
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}})
}

func (s *MemoryOrderStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*OutboxEvent, 0, limit)
	for _, ev := range s.outbox {
		if len(out) == limit {
			break
		}
		if !ev.processed {
			cp := ev.OutboxEvent
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryOrderStore) MarkEventAsProcessed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.outbox[:0]
	for _, ev := range s.outbox {
		if ev.ID == id {
			ev.processed = true
		}
		// processed events are dropped so the log does not grow without bound
		if !ev.processed {
			kept = append(kept, ev)
		}
	}
	s.outbox = kept
	return nil
}

// MemoryUserStore implements UserRepository.
type MemoryUserStore struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	cp.Addresses = append([]domain.Address(nil), u.Addresses...)
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryUserStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryUserStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
