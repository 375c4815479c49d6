package api

import (
	"time"

	"github.com/go-go-golems/parlato/pkg/conversation"
)

// Wire representation of the backend hierarchy. The backend delivers
// workspaces and projects most recent first; mapping preserves that order.

type apiMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type apiProject struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Messages []apiMessage `json:"messages"`
}

type apiWorkspace struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Projects    []apiProject `json:"projects"`
}

func (m apiMessage) toMessage() *conversation.Message {
	createdAt, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}
	return &conversation.Message{
		ID:        m.ID,
		Role:      conversation.NormalizeRole(m.Role),
		Content:   m.Content,
		CreatedAt: createdAt,
	}
}

func (p apiProject) toChat() *conversation.Chat {
	messages := make([]*conversation.Message, 0, len(p.Messages))
	for _, m := range p.Messages {
		messages = append(messages, m.toMessage())
	}
	return &conversation.Chat{
		ID:       p.ID,
		Title:    p.Name,
		Messages: messages,
	}
}

func (w apiWorkspace) toWorkspace() *conversation.Workspace {
	chats := make([]*conversation.Chat, 0, len(w.Projects))
	for _, p := range w.Projects {
		chats = append(chats, p.toChat())
	}
	return &conversation.Workspace{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Chats:       chats,
	}
}
