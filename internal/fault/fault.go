// Package fault defines the error taxonomy shared by all components.
//
// Sentinel errors tag failures for classification at the gateway boundary:
// rate-limit denials carry retry metadata, storage and inference failures
// surface to the caller, configuration gaps fail open at the call site.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks a missing or invalid static configuration value.
	ErrConfiguration = errors.New("configuration error")
	// ErrRateLimited marks a request denied by the rate limiter.
	ErrRateLimited = errors.New("rate limited")
	// ErrStorage marks a durable-state read or write failure.
	ErrStorage = errors.New("storage unavailable")
	// ErrInference marks a failed or timed-out inference call.
	ErrInference = errors.New("inference error")
	// ErrNotFound marks an operation against an uninitialized key.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks a failed ownership check.
	ErrForbidden = errors.New("forbidden")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrStorage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short string classification for an error, for logging and
// status mapping. Unrecognized errors classify as "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
