package api

import (
	"context"
	"net/http"

	"github.com/go-go-golems/parlato/pkg/conversation"
)

// Chats live on the backend as "projects" under a workspace.

type createProjectRequest struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
}

func (c *Client) CreateChat(ctx context.Context, workspaceID string, title string) (*conversation.Chat, error) {
	var wire apiProject
	err := c.do(ctx, http.MethodPost, "/api/projects", createProjectRequest{
		WorkspaceID: workspaceID,
		Name:        title,
	}, &wire)
	if err != nil {
		return nil, err
	}
	return wire.toChat(), nil
}

type renameProjectRequest struct {
	Name string `json:"name"`
}

func (c *Client) RenameChat(ctx context.Context, id string, title string) error {
	return c.do(ctx, http.MethodPatch, "/api/projects/"+id, renameProjectRequest{Name: title}, nil)
}

func (c *Client) DeleteChat(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+id, nil, nil)
}
