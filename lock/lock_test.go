package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/recur/lock"
)

func TestLocalSerializesKey(t *testing.T) {
	l := lock.NewLocal()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "offering:1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most one holder, saw %d", maxInside)
	}
	if l.Held() != 0 {
		t.Errorf("expected all slots released, %d remain", l.Held())
	}
}

func TestLocalIndependentKeys(t *testing.T) {
	l := lock.NewLocal()
	ctx := context.Background()

	r1, err := l.Lock(ctx, "offering:1")
	if err != nil {
		t.Fatalf("lock 1: %v", err)
	}
	defer r1()

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	r2, err := l.Lock(ctx2, "offering:2")
	if err != nil {
		t.Fatalf("lock 2 should not wait on lock 1: %v", err)
	}
	r2()
}

func TestLocalHonoursContext(t *testing.T) {
	l := lock.NewLocal()
	release, err := l.Lock(context.Background(), "offering:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := l.Lock(ctx, "offering:1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLocalReleaseIdempotent(t *testing.T) {
	l := lock.NewLocal()
	release, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	release()
	release()

	if l.Held() != 0 {
		t.Errorf("expected no held slots, got %d", l.Held())
	}
}
