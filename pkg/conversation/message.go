package conversation

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// NormalizeRole maps any unrecognized role value coming from a backend onto
// RoleUser, so the state never carries roles the entity model doesn't know.
func NormalizeRole(s string) Role {
	if Role(s) == RoleAssistant {
		return RoleAssistant
	}
	return RoleUser
}

// Message is one turn in a conversation. A message is immutable once
// Streaming is false; the content of a streaming assistant message is
// replaced on every fragment until the stream completes.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Streaming bool      `json:"isStreaming,omitempty"`
}

type MessageOption func(*Message)

func WithID(id string) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.CreatedAt = t
	}
}

func WithStreaming(streaming bool) MessageOption {
	return func(m *Message) {
		m.Streaming = streaming
	}
}

func NewMessage(role Role, content string, options ...MessageOption) *Message {
	ret := &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
