package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleAssistant, NormalizeRole("assistant"))
	assert.Equal(t, RoleUser, NormalizeRole("user"))
	assert.Equal(t, RoleUser, NormalizeRole("system"))
	assert.Equal(t, RoleUser, NormalizeRole(""))
}

func TestStateCloneIsDeep(t *testing.T) {
	s := NewState()
	w := NewWorkspace("Demo")
	c := NewChat("General")
	c.Messages = append(c.Messages, NewMessage(RoleUser, "hello"))
	w.Chats = []*Chat{c}
	s.Workspaces = []*Workspace{w}
	s.ActiveWorkspaceID = w.ID
	s.ActiveChatID = c.ID

	clone := s.Clone()
	clone.Workspaces[0].Name = "Changed"
	clone.Workspaces[0].Chats[0].Title = "Changed"
	clone.Workspaces[0].Chats[0].Messages[0].Content = "changed"

	assert.Equal(t, "Demo", s.Workspaces[0].Name)
	assert.Equal(t, "General", s.Workspaces[0].Chats[0].Title)
	assert.Equal(t, "hello", s.Workspaces[0].Chats[0].Messages[0].Content)
}

func TestActiveSelectionResolution(t *testing.T) {
	s := NewState()
	assert.Nil(t, s.ActiveWorkspace())
	assert.Nil(t, s.ActiveChat())

	w := NewWorkspace("Demo")
	c := NewChat("General")
	w.Chats = []*Chat{c}
	s.Workspaces = []*Workspace{w}

	s.ActiveWorkspaceID = w.ID
	require.NotNil(t, s.ActiveWorkspace())
	assert.Nil(t, s.ActiveChat())

	s.ActiveChatID = c.ID
	require.NotNil(t, s.ActiveChat())
	assert.Equal(t, "General", s.ActiveChat().Title)

	s.ActiveChatID = "nope"
	assert.Nil(t, s.ActiveChat())
}

func TestStreamingMessageLookup(t *testing.T) {
	s := NewState()
	w := NewWorkspace("Demo")
	c := NewChat("General")
	c.Messages = append(c.Messages,
		NewMessage(RoleUser, "hello"),
		NewMessage(RoleAssistant, "", WithStreaming(true)),
	)
	w.Chats = []*Chat{c}
	s.Workspaces = []*Workspace{w}

	msg, ok := s.StreamingMessage()
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.True(t, c.IsStreaming())

	msg.Streaming = false
	_, ok = s.StreamingMessage()
	assert.False(t, ok)
}
