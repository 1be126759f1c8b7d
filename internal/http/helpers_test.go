package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/auth"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/cache"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/lock"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/service"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/metrics"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-for-handlers"

type testEnv struct {
	handler  http.Handler
	products *repository.MemoryProductStore
	users    *repository.MemoryUserStore
	orders   *repository.MemoryOrderStore
	tokens   *auth.Manager
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()
	log := logger.NewNop()
	env := &testEnv{
		products: repository.NewMemoryProductStore(),
		users:    repository.NewMemoryUserStore(),
		orders:   repository.NewMemoryOrderStore(),
		tokens:   auth.NewManager(testSecret, time.Hour),
		metrics:  metrics.New(),
	}
	carts := service.NewCartService(repository.NewMemoryCartStore(), env.products, cache.NopCache{}, log)
	env.handler = NewRouter(cfg, Services{
		Auth:     service.NewAuthService(env.users, env.tokens, log),
		Catalog:  service.NewCatalogService(env.products, log),
		Carts:    carts,
		Checkout: service.NewCheckoutService(carts, env.products, env.orders, lock.NewMemoryLocker(), time.Minute, env.metrics, log),
		Orders:   service.NewOrderService(env.orders, log),
		Sessions: env.tokens,
	}, log, env.metrics)
	return env
}

// tokenFor issues a token without going through /auth/login.
func (e *testEnv) tokenFor(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{domain.RoleCustomer}
	}
	token, _, err := e.tokens.Issue(userID, roles)
	require.NoError(t, err)
	return token
}

func (e *testEnv) adminToken(t *testing.T) string {
	return e.tokenFor(t, "admin-1", domain.RoleAdmin, domain.RoleCustomer)
}

func (e *testEnv) seedProduct(t *testing.T, slug string, price float64, stock int, active bool) *domain.Product {
	t.Helper()
	p := &domain.Product{Title: slug, Slug: slug, Price: price, Stock: stock, IsActive: active}
	require.NoError(t, e.products.CreateProduct(context.Background(), p))
	return p
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
