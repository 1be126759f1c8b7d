package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     uint64
	expiresAt time.Time
}

// MemoryLocker is the single-process Locker used when Redis is not configured.
type MemoryLocker struct {
	mu      sync.Mutex
	held    map[string]memoryEntry
	counter uint64
	now     func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryEntry), now: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expiresAt) {
		return nil, ErrLocked
	}
	l.counter++
	token := l.counter
	l.held[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
	}, nil
}
