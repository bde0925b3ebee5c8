// Package model defines the core domain data types.
package model

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn in a lecture's conversation history.
// Seq is a per-lecture monotonic counter; insertion order is
// conversational order.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// LectureRecord is the full durable state owned by one lecture key.
type LectureRecord struct {
	Key       string        `json:"key"`
	RawText   string        `json:"raw_text"`
	History   []ChatMessage `json:"history"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ValidRoles are the allowed chat message roles.
var ValidRoles = map[string]bool{
	RoleUser:      true,
	RoleAssistant: true,
}
