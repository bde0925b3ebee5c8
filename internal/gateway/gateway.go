// Package gateway resolves inbound operations to actor keys, enforces rate
// limits and timeouts, and relays actor responses.
//
// Failure policy is asymmetric on purpose: a broken rate limiter fails open
// (availability over strict enforcement), while lecture-actor failures fail
// closed and surface to the caller.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"studyhall/internal/fault"
	"studyhall/internal/lecture"
	"studyhall/internal/logging"
	"studyhall/internal/model"
	"studyhall/internal/ratelimit"
)

// Endpoint names used for rate limiting.
const (
	EndpointUpload    = "upload"
	EndpointChat      = "chat"
	EndpointSummarize = "summarize"
	EndpointExtract   = "extract"
	EndpointRawText   = "raw_text"
)

const defaultDispatchTimeout = 30 * time.Second

// UserRateKey namespaces a user id as a rate-limit actor key. User- and
// IP-scoped identifiers get distinct prefixes so they can never collide.
func UserRateKey(userID string) string { return "user:" + userID }

// IPRateKey namespaces a remote address as a rate-limit actor key.
func IPRateKey(addr string) string { return "ip:" + addr }

// RateLimitedError is returned for denied requests, carrying retry metadata.
type RateLimitedError struct {
	Endpoint string
	Decision model.Decision
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: %s: limit %d, retry after %ds",
		fault.ErrRateLimited.Error(), e.Endpoint, e.Decision.Limit, e.Decision.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return fault.ErrRateLimited }

// Option customizes the gateway.
type Option func(*Gateway)

// WithTimeout overrides the per-operation dispatch timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Gateway is the dispatch front for all actor operations.
type Gateway struct {
	auth     Authenticator
	authz    Authorizer
	limiter  *ratelimit.Service
	lectures *lecture.Service
	timeout  time.Duration
	logger   *slog.Logger
}

// New wires the gateway to its collaborators.
func New(auth Authenticator, authz Authorizer, limiter *ratelimit.Service, lectures *lecture.Service, opts ...Option) *Gateway {
	g := &Gateway{
		auth:     auth,
		authz:    authz,
		limiter:  limiter,
		lectures: lectures,
		timeout:  defaultDispatchTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Upload stores raw lecture text under a fresh key and returns that key.
func (g *Gateway) Upload(ctx context.Context, req Request, rawText string) (string, error) {
	userID, err := g.admit(ctx, req, EndpointUpload, "")
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.lectures.StoreLecture(ctx, key, rawText); err != nil {
		return "", err
	}
	g.logger.Info("lecture stored",
		logging.FieldComponent, "gateway",
		logging.FieldActorKey, key,
		"user_id", userID,
		"text_len", len(rawText))
	return key, nil
}

// Chat relays one chat turn to the lecture actor.
func (g *Gateway) Chat(ctx context.Context, req Request, lectureKey, message string) (string, error) {
	if _, err := g.admit(ctx, req, EndpointChat, lectureKey); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.lectures.Chat(ctx, lectureKey, message)
}

// Summarize runs the summarization pipeline for a lecture.
func (g *Gateway) Summarize(ctx context.Context, req Request, lectureKey string) (string, error) {
	if _, err := g.admit(ctx, req, EndpointSummarize, lectureKey); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.lectures.Summarize(ctx, lectureKey)
}

// Extract runs the concept-extraction pipeline for a lecture.
func (g *Gateway) Extract(ctx context.Context, req Request, lectureKey string) (string, error) {
	if _, err := g.admit(ctx, req, EndpointExtract, lectureKey); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.lectures.Extract(ctx, lectureKey)
}

// RawText returns a lecture's stored text.
func (g *Gateway) RawText(ctx context.Context, req Request, lectureKey string) (string, error) {
	if _, err := g.admit(ctx, req, EndpointRawText, lectureKey); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.lectures.RawText(ctx, lectureKey)
}

// LimitStatus previews the caller's rate-limit state for an endpoint
// without consuming a slot.
func (g *Gateway) LimitStatus(ctx context.Context, req Request, endpoint string) (model.Decision, error) {
	userID, err := g.auth.Authenticate(ctx, req)
	if err != nil {
		return model.Decision{}, err
	}
	return g.limiter.Check(ctx, g.rateKey(userID, req), endpoint)
}

// ResetLimits clears every stored window for the caller's rate key.
func (g *Gateway) ResetLimits(ctx context.Context, req Request) error {
	userID, err := g.auth.Authenticate(ctx, req)
	if err != nil {
		return err
	}
	return g.limiter.ResetAll(ctx, g.rateKey(userID, req))
}

// admit authenticates, authorizes ownership when a lecture key is involved,
// and spends one rate-limit slot. Limiter outages fail open; denials return
// a RateLimitedError.
func (g *Gateway) admit(ctx context.Context, req Request, endpoint, lectureKey string) (string, error) {
	correlationID := uuid.NewString()

	userID, err := g.auth.Authenticate(ctx, req)
	if err != nil {
		return "", err
	}
	if lectureKey != "" {
		owned, err := g.authz.AuthorizeOwnership(ctx, userID, lectureKey)
		if err != nil {
			return "", fault.Wrap(fault.ErrForbidden, "gateway", "authorize", lectureKey, err)
		}
		if !owned {
			return "", fault.Wrap(fault.ErrForbidden, "gateway", "authorize", lectureKey, nil)
		}
	}

	rateKey := g.rateKey(userID, req)
	decision, err := g.limiter.CheckAndIncrement(ctx, rateKey, endpoint)
	if err != nil {
		// Fail open: an internal limiter outage must not block all traffic.
		g.logger.Warn("rate limiter unavailable, failing open",
			logging.FieldComponent, "gateway",
			logging.FieldEndpoint, endpoint,
			logging.FieldActorKey, rateKey,
			logging.FieldCorrelationID, correlationID,
			logging.Error(err))
		return userID, nil
	}
	if !decision.Allowed {
		g.logger.Info("request rate limited",
			logging.FieldComponent, "gateway",
			logging.FieldEndpoint, endpoint,
			logging.FieldActorKey, rateKey,
			logging.FieldCorrelationID, correlationID,
			"retry_after", decision.RetryAfter)
		return "", &RateLimitedError{Endpoint: endpoint, Decision: decision}
	}
	return userID, nil
}

func (g *Gateway) rateKey(userID string, req Request) string {
	if userID == "" {
		return IPRateKey(req.RemoteIP)
	}
	return UserRateKey(userID)
}
