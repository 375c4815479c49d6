package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parlato/pkg/conversation"
)

func TestListWorkspacesMapsHierarchy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/workspaces", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`[
			{
				"id": "w1",
				"name": "Research",
				"description": "notes",
				"projects": [
					{
						"id": "p1",
						"name": "General",
						"messages": [
							{"id": "m1", "role": "user", "content": "hi", "createdAt": "2026-08-01T10:00:00Z"},
							{"id": "m2", "role": "assistant", "content": "hello", "createdAt": "2026-08-01T10:00:05Z"},
							{"id": "m3", "role": "system", "content": "odd", "createdAt": "not a timestamp"}
						]
					},
					{"id": "p2", "name": "Archive", "messages": []}
				]
			},
			{"id": "w2", "name": "Empty", "description": "", "projects": []}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithToken("secret"))
	workspaces, err := client.ListWorkspaces(context.Background())
	require.NoError(t, err)

	require.Len(t, workspaces, 2)
	w := workspaces[0]
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, "Research", w.Name)
	assert.Equal(t, "notes", w.Description)

	require.Len(t, w.Chats, 2)
	assert.Equal(t, "General", w.Chats[0].Title)
	assert.Equal(t, "Archive", w.Chats[1].Title)

	messages := w.Chats[0].Messages
	require.Len(t, messages, 3)
	assert.Equal(t, conversation.RoleUser, messages[0].Role)
	assert.Equal(t, conversation.RoleAssistant, messages[1].Role)
	// Unknown roles collapse to user, unparsable timestamps to zero.
	assert.Equal(t, conversation.RoleUser, messages[2].Role)
	assert.Equal(t,
		time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		messages[0].CreatedAt.UTC())
	assert.True(t, messages[2].CreatedAt.IsZero())

	assert.Empty(t, workspaces[1].Chats)
}

func TestCreateWorkspaceSendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/workspaces", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Demo", body["name"])
		assert.Equal(t, "a demo", body["description"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "w9", "name": "Demo", "description": "a demo", "projects": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	workspace, err := client.CreateWorkspace(context.Background(), "Demo", "a demo")
	require.NoError(t, err)
	assert.Equal(t, "w9", workspace.ID)
	assert.Equal(t, "Demo", workspace.Name)
	assert.Empty(t, workspace.Chats)
}

func TestCreateChatSendsWorkspaceID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/projects", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "w1", body["workspaceId"])
		assert.Equal(t, "New Conversation", body["name"])

		_, _ = w.Write([]byte(`{"id": "p9", "name": "New Conversation", "messages": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	chat, err := client.CreateChat(context.Background(), "w1", "New Conversation")
	require.NoError(t, err)
	assert.Equal(t, "p9", chat.ID)
	assert.Equal(t, "New Conversation", chat.Title)
}

func TestRenameAndDeleteHitResourcePaths(t *testing.T) {
	type call struct {
		method string
		path   string
	}
	var calls []call

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{method: r.Method, path: r.URL.Path})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()
	require.NoError(t, client.RenameWorkspace(ctx, "w1", "Renamed"))
	require.NoError(t, client.DeleteWorkspace(ctx, "w1"))
	require.NoError(t, client.RenameChat(ctx, "p1", "Renamed"))
	require.NoError(t, client.DeleteChat(ctx, "p1"))

	assert.Equal(t, []call{
		{http.MethodPatch, "/api/workspaces/w1"},
		{http.MethodDelete, "/api/workspaces/w1"},
		{http.MethodPatch, "/api/projects/p1"},
		{http.MethodDelete, "/api/projects/p1"},
	}, calls)
}

func TestNonSuccessStatusIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workspace not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ListWorkspaces(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusNotFound, transportErr.StatusCode)
	assert.Contains(t, transportErr.Message, "workspace not found")
}

func TestUnreachableServerIsTransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	err := client.DeleteChat(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}
