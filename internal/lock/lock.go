// Package lock provides short-lived in-flight markers used to reject a second
// checkout for the same user while one is still running.
package lock

import (
	"context"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
)

var ErrLocked = apperr.New(apperr.ErrConflict, "checkout already in progress")

type Locker interface {
	// Acquire takes key for at most ttl. It returns ErrLocked when the key is
	// held. release is safe to call more than once and never frees a marker
	// that expired and was taken by someone else.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
