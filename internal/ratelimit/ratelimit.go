// Package ratelimit implements fixed-window request limiting, one actor per
// rate-limit key.
//
// Check and increment are folded into a single actor invocation so the
// classic check-then-act race cannot occur: the runtime serializes every
// read-modify-write against a key's windows.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"studyhall/internal/actor"
	"studyhall/internal/logging"
	"studyhall/internal/model"
	"studyhall/internal/store"
)

const (
	opCheckIncrement = "check_increment"
	opCheck          = "check"
	opReset          = "reset"
	opResetAll       = "reset_all"
)

// failOpenLimit is the sentinel limit reported when an endpoint has no
// configured policy. Missing configuration must never block traffic.
const failOpenLimit = math.MaxInt32

// Option customizes the service.
type Option func(*Service)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service fronts the per-key rate limiter actors.
type Service struct {
	rt       *actor.Runtime
	policies map[string]model.RateLimitPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the limiter over the given store. Policies are fixed
// for the process lifetime.
func NewService(st store.Store, policies map[string]model.RateLimitPolicy, opts ...Option) *Service {
	s := &Service{
		policies: policies,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rt = actor.New(func(key string) actor.Actor {
		return &bucket{
			key:      key,
			store:    st,
			policies: s.policies,
			now:      s.now,
			logger:   s.logger,
		}
	}, actor.WithLogger(s.logger))
	return s
}

// CheckAndIncrement consumes one request slot for (key, endpoint) and
// returns the decision. A denied request never increments the counter.
func (s *Service) CheckAndIncrement(ctx context.Context, key, endpoint string) (model.Decision, error) {
	return s.dispatch(ctx, key, actor.Invocation{Op: opCheckIncrement, Payload: endpoint})
}

// Check previews the decision for (key, endpoint) without mutating state.
func (s *Service) Check(ctx context.Context, key, endpoint string) (model.Decision, error) {
	return s.dispatch(ctx, key, actor.Invocation{Op: opCheck, Payload: endpoint})
}

// Reset deletes the stored window for one endpoint.
func (s *Service) Reset(ctx context.Context, key, endpoint string) error {
	_, err := s.rt.Dispatch(ctx, key, actor.Invocation{Op: opReset, Payload: endpoint})
	return err
}

// ResetAll deletes every stored window for the key.
func (s *Service) ResetAll(ctx context.Context, key string) error {
	_, err := s.rt.Dispatch(ctx, key, actor.Invocation{Op: opResetAll})
	return err
}

// Close shuts down the underlying actor runtime.
func (s *Service) Close() {
	s.rt.Close()
}

func (s *Service) dispatch(ctx context.Context, key string, inv actor.Invocation) (model.Decision, error) {
	res, err := s.rt.Dispatch(ctx, key, inv)
	if err != nil {
		return model.Decision{}, err
	}
	return res.(model.Decision), nil
}

// bucket owns the fixed windows for one rate-limit key.
type bucket struct {
	key      string
	store    store.Store
	policies map[string]model.RateLimitPolicy
	now      func() time.Time
	logger   *slog.Logger
}

func (b *bucket) Receive(ctx context.Context, inv actor.Invocation) (any, error) {
	endpoint, _ := inv.Payload.(string)
	switch inv.Op {
	case opCheckIncrement:
		return b.check(ctx, endpoint, true)
	case opCheck:
		return b.check(ctx, endpoint, false)
	case opReset:
		return nil, b.store.DeleteWindow(ctx, b.key, endpoint)
	case opResetAll:
		return nil, b.store.DeleteWindows(ctx, b.key)
	default:
		return nil, fmt.Errorf("ratelimit: unknown op %q", inv.Op)
	}
}

func (b *bucket) check(ctx context.Context, endpoint string, increment bool) (model.Decision, error) {
	policy, ok := b.policies[endpoint]
	if !ok {
		b.logger.Warn("no rate-limit policy for endpoint, failing open",
			logging.FieldComponent, "ratelimit",
			logging.FieldActorKey, b.key,
			logging.FieldEndpoint, endpoint)
		return model.Decision{
			Allowed:   true,
			Limit:     failOpenLimit,
			Remaining: failOpenLimit,
		}, nil
	}

	now := b.now()
	w, err := b.store.GetWindow(ctx, b.key, endpoint)
	if err != nil {
		return model.Decision{}, err
	}
	if w == nil || w.Expired(now) {
		w = &model.RateLimitWindow{
			Count:         0,
			WindowStartMS: now.UnixMilli(),
			WindowSeconds: policy.WindowSeconds,
		}
		if increment {
			if err := b.store.PutWindow(ctx, b.key, endpoint, *w); err != nil {
				return model.Decision{}, err
			}
		}
	}

	resetAt := w.ResetAtMS()
	if w.Count >= policy.MaxRequests {
		retryAfter := int((resetAt - now.UnixMilli() + 999) / 1000)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return model.Decision{
			Allowed:    false,
			Limit:      policy.MaxRequests,
			Remaining:  0,
			ResetAtMS:  resetAt,
			RetryAfter: retryAfter,
		}, nil
	}

	if increment {
		w.Count++
		if err := b.store.PutWindow(ctx, b.key, endpoint, *w); err != nil {
			return model.Decision{}, err
		}
	}
	return model.Decision{
		Allowed:   true,
		Limit:     policy.MaxRequests,
		Remaining: policy.MaxRequests - w.Count,
		ResetAtMS: resetAt,
	}, nil
}
