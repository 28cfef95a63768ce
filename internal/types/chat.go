package types

import "time"

// Chat roles
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// ChatMessage is one entry in an append-only chat log.
type ChatMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	ErrorKind string    `json:"error_kind,omitempty"` // set when an AI message reports a relay failure
	CreatedAt time.Time `json:"created_at"`
}

// IsError reports whether the message carries a relay failure.
func (m ChatMessage) IsError() bool {
	return m.ErrorKind != ""
}
