// Package circuitbreaker builds gobreaker breakers with the settings shared by
// every outbound dependency.
package circuitbreaker

import (
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/sony/gobreaker/v2"
)

type Settings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a probe.
	OpenTimeout time.Duration
	// HalfOpenRequests is how many probes are let through while half-open.
	HalfOpenRequests uint32
}

func DefaultSettings() Settings {
	return Settings{
		ConsecutiveFailures: 5,
		OpenTimeout:         10 * time.Second,
		HalfOpenRequests:    1,
	}
}

func New[T any](name string, s Settings, log *logger.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
