// Package grpc exposes the standard gRPC health service, fed by periodic pings
// of the backing stores.
package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// OverallService is the empty service name clients use for whole-server health.
const OverallService = ""

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthReporter struct {
	server   *health.Server
	checks   map[string]Pinger
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger

	mu   sync.Mutex
	last map[string]bool
}

func NewHealthReporter(checks map[string]Pinger, interval time.Duration, log *logger.Logger) *HealthReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	h := &HealthReporter{
		server:   health.NewServer(),
		checks:   checks,
		interval: interval,
		timeout:  2 * time.Second,
		log:      log.With("component", "health"),
		last:     make(map[string]bool),
	}
	h.server.SetServingStatus(OverallService, healthpb.HealthCheckResponse_NOT_SERVING)
	for name := range checks {
		h.server.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return h
}

// NewServer returns a gRPC server carrying the health service and reflection.
func (h *HealthReporter) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.server)
	reflection.Register(s)
	return s
}

// Run checks immediately, then every interval until ctx is done. On exit every
// service is reported NOT_SERVING so load balancers drain the instance.
func (h *HealthReporter) Run(ctx context.Context) {
	h.CheckOnce(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.CheckOnce(ctx)
		case <-ctx.Done():
			h.server.Shutdown()
			return
		}
	}
}

// CheckOnce pings every dependency and publishes the result. The overall
// status is SERVING only when every check passed.
func (h *HealthReporter) CheckOnce(ctx context.Context) {
	allOK := true
	for name, p := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := p.Ping(cctx)
		cancel()

		ok := err == nil
		allOK = allOK && ok
		h.report(name, ok, err)
	}
	h.report(OverallService, allOK, nil)
}

func (h *HealthReporter) report(name string, ok bool, err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus(name, status)

	h.mu.Lock()
	prev, seen := h.last[name]
	h.last[name] = ok
	h.mu.Unlock()
	if seen && prev == ok {
		return
	}
	if name == OverallService {
		name = "overall"
	}
	if ok {
		h.log.Info("dependency healthy", "check", name)
	} else {
		h.log.Warn("dependency unhealthy", "check", name, "error", err)
	}
}
