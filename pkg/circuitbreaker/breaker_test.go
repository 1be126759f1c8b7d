package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := New[struct{}]("kafka", Settings{ConsecutiveFailures: 3, OpenTimeout: time.Hour, HalfOpenRequests: 1}, logger.NewNop())
	boom := errors.New("broker down")

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (struct{}, error) { return struct{}{}, boom })
		require.ErrorIs(t, err, boom)
	}

	calls := 0
	_, err := cb.Execute(func() (struct{}, error) {
		calls++
		return struct{}{}, nil
	})

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Zero(t, calls)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := New[int]("kafka", Settings{ConsecutiveFailures: 1, OpenTimeout: 20 * time.Millisecond, HalfOpenRequests: 1}, logger.NewNop())

	_, err := cb.Execute(func() (int, error) { return 0, errors.New("fail") })
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, cb.State())

	require.Eventually(t, func() bool {
		v, err := cb.Execute(func() (int, error) { return 7, nil })
		return err == nil && v == 7
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
