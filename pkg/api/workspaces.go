package api

import (
	"context"
	"net/http"

	"github.com/go-go-golems/parlato/pkg/conversation"
)

// ListWorkspaces fetches the full workspace -> project -> message tree.
func (c *Client) ListWorkspaces(ctx context.Context) ([]*conversation.Workspace, error) {
	var wire []apiWorkspace
	if err := c.do(ctx, http.MethodGet, "/api/workspaces", nil, &wire); err != nil {
		return nil, err
	}

	ret := make([]*conversation.Workspace, 0, len(wire))
	for _, w := range wire {
		ret = append(ret, w.toWorkspace())
	}
	return ret, nil
}

type createWorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c *Client) CreateWorkspace(ctx context.Context, name string, description string) (*conversation.Workspace, error) {
	var wire apiWorkspace
	err := c.do(ctx, http.MethodPost, "/api/workspaces", createWorkspaceRequest{
		Name:        name,
		Description: description,
	}, &wire)
	if err != nil {
		return nil, err
	}
	return wire.toWorkspace(), nil
}

type renameWorkspaceRequest struct {
	Name string `json:"name"`
}

func (c *Client) RenameWorkspace(ctx context.Context, id string, name string) error {
	return c.do(ctx, http.MethodPatch, "/api/workspaces/"+id, renameWorkspaceRequest{Name: name}, nil)
}

func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/workspaces/"+id, nil, nil)
}
