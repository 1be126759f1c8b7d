package http

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/auth"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// requestLogger writes one access log line per request and feeds the request
// metrics. The route label is the chi pattern so ids do not blow up cardinality.
func requestLogger(log *logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if m != nil {
				m.ObserveRequest(route, r.Method, status, elapsed)
			}
			log.WithContext(r.Context()).Info("http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func newIPRateLimiter(perMinute int) *ipRateLimiter {
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > time.Minute {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.visitors, key)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// rateLimit rejects clients that exceed perMinute requests. A non-positive
// limit disables it.
func rateLimit(perMinute int, log *logger.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newIPRateLimiter(perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				handleServiceError(w, r, log, apperr.New(apperr.ErrRateLimited, "too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SessionVerifier turns an Authorization header into a session.
type SessionVerifier interface {
	VerifyHeader(header string) (*auth.Session, error)
}

type authedHandlerFunc func(w http.ResponseWriter, r *http.Request, s *auth.Session)

type guard struct {
	sessions SessionVerifier
	log      *logger.Logger
}

// authed verifies the bearer token and hands the session to fn.
func (g guard) authed(fn authedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := g.sessions.VerifyHeader(r.Header.Get("Authorization"))
		if err != nil {
			handleServiceError(w, r, g.log, err)
			return
		}
		fn(w, r, session)
	}
}

// role is authed plus a role check.
func (g guard) role(role string, fn authedHandlerFunc) http.HandlerFunc {
	return g.authed(func(w http.ResponseWriter, r *http.Request, s *auth.Session) {
		if err := s.Require(role); err != nil {
			handleServiceError(w, r, g.log, err)
			return
		}
		fn(w, r, s)
	})
}
