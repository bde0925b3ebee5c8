// Package actor provides a per-key isolated execution runtime.
//
// Every key owns at most one live mailbox goroutine. All invocations for a
// key execute one at a time, in arrival order, so read-modify-write against
// durable state needs no locking. Invocations against different keys run
// fully independently.
package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"studyhall/internal/logging"
)

const (
	defaultIdleTTL      = 5 * time.Minute
	defaultMailboxDepth = 64
)

// ErrClosed is returned by Dispatch after the runtime has shut down.
var ErrClosed = errors.New("actor runtime closed")

// Invocation names one operation against an actor, with its payload.
type Invocation struct {
	Op      string
	Payload any
}

// Actor handles invocations for exactly one key. Receive is never called
// concurrently for the same key.
type Actor interface {
	Receive(ctx context.Context, inv Invocation) (any, error)
}

// Factory creates the actor for a key on first reference.
type Factory func(key string) Actor

// Option customizes the runtime.
type Option func(*Runtime)

// WithIdleTTL overrides how long an idle actor handle is kept before its
// goroutine is reclaimed. State is durable; a reclaimed handle is re-created
// lazily on next dispatch.
func WithIdleTTL(ttl time.Duration) Option {
	return func(r *Runtime) {
		if ttl > 0 {
			r.idleTTL = ttl
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runtime routes invocations to per-key mailbox goroutines.
type Runtime struct {
	factory Factory
	logger  *slog.Logger
	idleTTL time.Duration

	mu     sync.Mutex
	actors map[string]*mailbox
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

type call struct {
	ctx   context.Context
	inv   Invocation
	reply chan result
}

type result struct {
	value any
	err   error
}

type mailbox struct {
	actor Actor
	ch    chan call

	// Guarded by Runtime.mu. pending counts enqueued-but-unfinished calls;
	// a mailbox is only evicted when pending is zero, which also means its
	// channel is empty.
	pending   int
	idleSince time.Time
}

// New constructs a runtime that builds actors with the given factory.
func New(factory Factory, opts ...Option) *Runtime {
	r := &Runtime{
		factory: factory,
		logger:  logging.NewNop(),
		idleTTL: defaultIdleTTL,
		actors:  make(map[string]*mailbox),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.wg.Add(1)
	go r.reapLoop()
	return r
}

// Dispatch routes one invocation to the actor owning key, creating it on
// first reference, and waits for the result. When ctx expires before the
// actor finishes, Dispatch returns the context error but the invocation
// still runs to completion and may persist state; a later dispatch against
// the same key observes whatever it committed.
func (r *Runtime) Dispatch(ctx context.Context, key string, inv Invocation) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	mb, ok := r.actors[key]
	if !ok {
		mb = &mailbox{
			actor:     r.factory(key),
			ch:        make(chan call, defaultMailboxDepth),
			idleSince: time.Now(),
		}
		r.actors[key] = mb
		r.wg.Add(1)
		go r.run(key, mb)
		r.logger.Debug("actor created", logging.FieldActorKey, key)
	}
	mb.pending++
	r.mu.Unlock()

	c := call{ctx: ctx, inv: inv, reply: make(chan result, 1)}
	select {
	case mb.ch <- c:
	case <-ctx.Done():
		r.release(mb)
		return nil, ctx.Err()
	}

	select {
	case res := <-c.reply:
		return res.value, res.err
	case <-ctx.Done():
		// The worker will still finish the call and decrement pending;
		// the buffered reply channel keeps it from blocking.
		return nil, ctx.Err()
	}
}

// Close rejects new dispatches, drains in-flight work and stops all
// mailbox goroutines.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	for {
		r.mu.Lock()
		for key, mb := range r.actors {
			if mb.pending == 0 {
				delete(r.actors, key)
				close(mb.ch)
			}
		}
		remaining := len(r.actors)
		r.mu.Unlock()
		if remaining == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.wg.Wait()
}

func (r *Runtime) run(key string, mb *mailbox) {
	defer r.wg.Done()
	for c := range mb.ch {
		// Detach cancellation: a caller that gave up cannot abort work that
		// may already be mid-write. Context values (correlation id) survive.
		res := r.invoke(context.WithoutCancel(c.ctx), mb.actor, c.inv)
		c.reply <- res
		r.release(mb)
	}
}

func (r *Runtime) invoke(ctx context.Context, a Actor, inv Invocation) (res result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = result{err: fmt.Errorf("actor panic: %v", rec)}
		}
	}()
	value, err := a.Receive(ctx, inv)
	return result{value: value, err: err}
}

func (r *Runtime) release(mb *mailbox) {
	r.mu.Lock()
	mb.pending--
	mb.idleSince = time.Now()
	r.mu.Unlock()
}

func (r *Runtime) reapLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.reap(time.Now())
		}
	}
}

func (r *Runtime) reap(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for key, mb := range r.actors {
		if mb.pending == 0 && now.Sub(mb.idleSince) >= r.idleTTL {
			delete(r.actors, key)
			close(mb.ch)
			r.logger.Debug("actor reclaimed", logging.FieldActorKey, key)
		}
	}
}
