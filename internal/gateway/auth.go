package gateway

import (
	"context"

	"studyhall/internal/fault"
)

// Request carries the caller identity material the gateway needs to resolve
// an actor key. Wire framing (HTTP, CORS, cookies) stays outside this core.
type Request struct {
	Token    string
	RemoteIP string
}

// Authenticator resolves a request to a user id. An empty user id with a
// nil error means an anonymous caller that is allowed through; such callers
// are rate-limited by IP instead of by user.
type Authenticator interface {
	Authenticate(ctx context.Context, req Request) (string, error)
}

// Authorizer answers whether a user owns a lecture key. The ownership
// records themselves live in the external session/DB layer.
type Authorizer interface {
	AuthorizeOwnership(ctx context.Context, userID, lectureKey string) (bool, error)
}

// StaticAuth is a fixed token and ownership table, for the CLI and tests.
type StaticAuth struct {
	Users     map[string]string          // token -> user id
	Ownership map[string]map[string]bool // user id -> owned lecture keys
	AllowAll  bool                       // skip ownership checks entirely
}

// Local returns an auth that maps every request to one user owning
// everything, for single-user CLI use.
func Local(userID string) *StaticAuth {
	return &StaticAuth{
		Users:    map[string]string{"": userID},
		AllowAll: true,
	}
}

func (a *StaticAuth) Authenticate(ctx context.Context, req Request) (string, error) {
	userID, ok := a.Users[req.Token]
	if !ok {
		return "", fault.Wrap(fault.ErrForbidden, "gateway", "authenticate", "unknown token", nil)
	}
	return userID, nil
}

func (a *StaticAuth) AuthorizeOwnership(ctx context.Context, userID, lectureKey string) (bool, error) {
	if a.AllowAll {
		return true, nil
	}
	return a.Ownership[userID][lectureKey], nil
}

// Grant records ownership of a lecture key, as the external layer would on
// upload.
func (a *StaticAuth) Grant(userID, lectureKey string) {
	if a.Ownership == nil {
		a.Ownership = make(map[string]map[string]bool)
	}
	if a.Ownership[userID] == nil {
		a.Ownership[userID] = make(map[string]bool)
	}
	a.Ownership[userID][lectureKey] = true
}
