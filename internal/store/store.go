// Package store provides the durable actor-state interface and SQLite implementation.
package store

import (
	"context"

	"studyhall/internal/model"
)

// Store defines durable per-key state access. One lecture key owns a raw
// text plus an append-only message history; one rate-limit key owns a
// mapping of endpoint name to fixed window. Callers are expected to hold
// the actor runtime's per-key serialization while doing read-modify-write
// sequences; the store itself does not lock across calls.
type Store interface {
	// PutLecture sets the raw text for a lecture key, creating the record
	// if needed. Overwrites any previous text.
	PutLecture(ctx context.Context, key, rawText string) error

	// GetLecture returns the full record (raw text + ordered history).
	// Returns a fault.ErrNotFound error when the key was never initialized.
	GetLecture(ctx context.Context, key string) (*model.LectureRecord, error)

	// GetRawText returns the stored raw text for a lecture key.
	// Returns a fault.ErrNotFound error when the key was never initialized.
	GetRawText(ctx context.Context, key string) (string, error)

	// AppendMessage appends one message to the key's history and returns it
	// with its assigned sequence number. The history is independent of the
	// lecture row: messages may exist before PutLecture.
	AppendMessage(ctx context.Context, key, role, content string) (model.ChatMessage, error)

	// History returns the key's messages in insertion order.
	History(ctx context.Context, key string) ([]model.ChatMessage, error)

	// GetWindow loads the fixed window for a (key, endpoint) pair.
	// Returns (nil, nil) when no window is stored.
	GetWindow(ctx context.Context, key, endpoint string) (*model.RateLimitWindow, error)

	// PutWindow stores (upserts) the fixed window for a (key, endpoint) pair.
	PutWindow(ctx context.Context, key, endpoint string, w model.RateLimitWindow) error

	// DeleteWindow removes the stored window for one endpoint.
	DeleteWindow(ctx context.Context, key, endpoint string) error

	// DeleteWindows removes all stored windows for the key.
	DeleteWindows(ctx context.Context, key string) error

	// Close closes the store.
	Close() error
}
