package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingActor does an unsynchronized read-modify-write; correctness
// depends entirely on the runtime's per-key serialization.
type countingActor struct {
	count int
}

func (a *countingActor) Receive(ctx context.Context, inv Invocation) (any, error) {
	switch inv.Op {
	case "incr":
		v := a.count
		time.Sleep(time.Millisecond)
		a.count = v + 1
		return a.count, nil
	case "get":
		return a.count, nil
	}
	return nil, errors.New("unknown op")
}

func newTestRuntime(t *testing.T, factory Factory, opts ...Option) *Runtime {
	t.Helper()
	rt := New(factory, opts...)
	t.Cleanup(rt.Close)
	return rt
}

func TestDispatchSerializesPerKey(t *testing.T) {
	rt := newTestRuntime(t, func(key string) Actor { return &countingActor{} })

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rt.Dispatch(context.Background(), "k", Invocation{Op: "incr"}); err != nil {
				t.Errorf("dispatch: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := rt.Dispatch(context.Background(), "k", Invocation{Op: "get"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.(int) != n {
		t.Errorf("expected %d after %d serialized increments, got %d", n, n, got)
	}
}

func TestDispatchOrdering(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	rt := newTestRuntime(t, func(key string) Actor {
		return actorFunc(func(ctx context.Context, inv Invocation) (any, error) {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			seen = append(seen, inv.Op)
			mu.Unlock()
			return nil, nil
		})
	})

	var wg sync.WaitGroup
	for _, op := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(op string) {
			defer wg.Done()
			rt.Dispatch(context.Background(), "k", Invocation{Op: op})
		}(op)
		// Stagger sends so arrival order is deterministic.
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[0] != "a" || seen[1] != "b" || seen[2] != "c" {
		t.Errorf("expected arrival order a,b,c, got %v", seen)
	}
}

func TestDifferentKeysRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	var inFlight atomic.Int32
	rt := newTestRuntime(t, func(key string) Actor {
		return actorFunc(func(ctx context.Context, inv Invocation) (any, error) {
			inFlight.Add(1)
			<-release
			return nil, nil
		})
	})

	var wg sync.WaitGroup
	for _, key := range []string{"k1", "k2"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			rt.Dispatch(context.Background(), key, Invocation{})
		}(key)
	}

	deadline := time.After(2 * time.Second)
	for inFlight.Load() != 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 keys in flight concurrently, got %d", inFlight.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(release)
	wg.Wait()
}

func TestCallerTimeoutDoesNotCancelWork(t *testing.T) {
	done := make(chan struct{})
	rt := newTestRuntime(t, func(key string) Actor {
		return actorFunc(func(ctx context.Context, inv Invocation) (any, error) {
			time.Sleep(50 * time.Millisecond)
			// The detached context must not be cancelled by the caller's timeout.
			if ctx.Err() != nil {
				t.Errorf("worker context cancelled: %v", ctx.Err())
			}
			close(done)
			return "late", nil
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := rt.Dispatch(ctx, "k", Invocation{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned invocation never completed")
	}
}

func TestIdleActorIsReclaimedAndRecreated(t *testing.T) {
	var created atomic.Int32
	rt := newTestRuntime(t, func(key string) Actor {
		created.Add(1)
		return &countingActor{}
	}, WithIdleTTL(20*time.Millisecond))

	rt.Dispatch(context.Background(), "k", Invocation{Op: "incr"})

	deadline := time.After(2 * time.Second)
	for {
		rt.mu.Lock()
		_, alive := rt.actors["k"]
		rt.mu.Unlock()
		if !alive {
			break
		}
		select {
		case <-deadline:
			t.Fatal("idle actor was never reclaimed")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	if _, err := rt.Dispatch(context.Background(), "k", Invocation{Op: "incr"}); err != nil {
		t.Fatalf("dispatch after reclaim: %v", err)
	}
	if created.Load() != 2 {
		t.Errorf("expected factory called twice, got %d", created.Load())
	}
}

func TestDispatchAfterClose(t *testing.T) {
	rt := New(func(key string) Actor { return &countingActor{} })
	rt.Close()
	if _, err := rt.Dispatch(context.Background(), "k", Invocation{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestActorPanicIsRecovered(t *testing.T) {
	rt := newTestRuntime(t, func(key string) Actor {
		return actorFunc(func(ctx context.Context, inv Invocation) (any, error) {
			if inv.Op == "boom" {
				panic("kaput")
			}
			return "ok", nil
		})
	})

	if _, err := rt.Dispatch(context.Background(), "k", Invocation{Op: "boom"}); err == nil {
		t.Fatal("expected error from panicking actor")
	}
	// The mailbox stays usable after a panic.
	got, err := rt.Dispatch(context.Background(), "k", Invocation{Op: "ok"})
	if err != nil || got != "ok" {
		t.Errorf("expected recovery, got %v %v", got, err)
	}
}

type actorFunc func(ctx context.Context, inv Invocation) (any, error)

func (f actorFunc) Receive(ctx context.Context, inv Invocation) (any, error) {
	return f(ctx, inv)
}
