package conversation

import (
	"context"
	"sync"
)

// Lane serialises work per key. At most one function runs per key at a time
// and waiters are admitted in arrival order. Different keys never block each other.
type Lane struct {
	mu   sync.Mutex
	keys map[int64]*laneSlot
}

type laneSlot struct {
	waiters []chan struct{}
}

func NewLane() *Lane {
	return &Lane{keys: make(map[int64]*laneSlot)}
}

// Do runs fn while holding key's lane. It returns ctx.Err() without running fn
// if ctx ends while waiting.
func (l *Lane) Do(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	if err := l.acquire(ctx, key); err != nil {
		return err
	}
	defer l.release(key)
	return fn(ctx)
}

func (l *Lane) acquire(ctx context.Context, key int64) error {
	l.mu.Lock()
	slot, busy := l.keys[key]
	if !busy {
		l.keys[key] = &laneSlot{}
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	slot.waiters = append(slot.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range slot.waiters {
			if w == ch {
				slot.waiters = append(slot.waiters[:i], slot.waiters[i+1:]...)
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		l.mu.Unlock()
		// ownership was handed over concurrently; pass it on
		l.release(key)
		return ctx.Err()
	}
}

func (l *Lane) release(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.keys[key]
	if !ok {
		return
	}
	if len(slot.waiters) == 0 {
		delete(l.keys, key)
		return
	}
	next := slot.waiters[0]
	slot.waiters = slot.waiters[1:]
	close(next)
}

// Held returns the number of keys currently owned.
func (l *Lane) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
