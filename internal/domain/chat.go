package domain

import (
	"time"
)

// Message roles. These match the wire roles used by the chat route and
// the upstream language-model API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is a single message in a conversation. Messages are never
// mutated after creation; they are appended, cached, and aged out.
type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
