//go:build !integration

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func (l *Lane) waiting(key int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.keys[key]; ok {
		return len(s.waiters)
	}
	return 0
}

func TestLaneIsFIFOPerKey(t *testing.T) {
	l := NewLane()
	ctx := context.Background()

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = l.Do(ctx, 1, func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Do(ctx, 1, func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
		waitFor(t, func() bool { return l.waiting(1) == i+1 })
	}

	close(release)
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("out of order: %v", order)
		}
	}
	if l.Held() != 0 {
		t.Fatalf("lane not released: %d keys held", l.Held())
	}
}

func TestLaneKeysAreIndependent(t *testing.T) {
	l := NewLane()
	ctx := context.Background()

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = l.Do(ctx, 1, func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	done := make(chan struct{})
	go func() {
		_ = l.Do(ctx, 2, func(context.Context) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key 2 blocked by key 1")
	}
}

func TestLaneCancelledWaiterDoesNotRun(t *testing.T) {
	l := NewLane()

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = l.Do(context.Background(), 1, func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	ran := false
	go func() {
		errc <- l.Do(ctx, 1, func(context.Context) error { ran = true; return nil })
	}()
	waitFor(t, func() bool { return l.waiting(1) == 1 })
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ran {
		t.Fatal("cancelled waiter ran")
	}
	if l.waiting(1) != 0 {
		t.Fatal("cancelled waiter left in queue")
	}

	close(release)
	waitFor(t, func() bool { return l.Held() == 0 })
	if err := l.Do(context.Background(), 1, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("lane unusable after cancel: %v", err)
	}
}
