package conversation

// Package conversation owns the client-side state of a chat workspace
// session: workspaces, chats and messages, the current selection, and the
// incremental rendering of assistant replies.
//
// The Manager interface is the contract presentation layers program against:
// a read surface of derived snapshots and a write surface of mutation
// operations. No operation returns a value the caller must await — every
// result is observed through the next State() read. The manager reconciles
// against either a durable local store or a remote backend; the mode is
// decided once at startup and never re-evaluated.

import "context"

// Mode says where the session's state lives: purely in the durable local
// store, or as a client-side cache of server-owned records.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// StreamPhase tracks the reply production state machine.
type StreamPhase string

const (
	StreamPhaseIdle               StreamPhase = "idle"
	StreamPhaseAwaitingFirstToken StreamPhase = "awaiting-first-token"
	StreamPhaseStreaming          StreamPhase = "streaming"
	StreamPhaseComplete           StreamPhase = "complete"
)

// Backend is the narrow remote interface the manager consumes. It is
// implemented by api.Client; every call fails with a transport error on a
// non-success response, which the manager recovers from by leaving state
// unchanged.
type Backend interface {
	ListWorkspaces(ctx context.Context) ([]*Workspace, error)
	CreateWorkspace(ctx context.Context, name string, description string) (*Workspace, error)
	RenameWorkspace(ctx context.Context, id string, name string) error
	DeleteWorkspace(ctx context.Context, id string) error
	CreateChat(ctx context.Context, workspaceID string, title string) (*Chat, error)
	RenameChat(ctx context.Context, id string, title string) error
	DeleteChat(ctx context.Context, id string) error
}

// Manager defines the interface for high-level conversation state operations.
type Manager interface {
	// Start performs the one-shot mode selection and initial load.
	Start(ctx context.Context) error

	State() *State
	ActiveWorkspace() *Workspace
	ActiveChat() *Chat
	IsStreaming() bool
	IsMutating() bool
	Mode() Mode
	StreamPhase() StreamPhase

	SelectWorkspace(id string)
	SelectChat(id string)
	CreateWorkspace(ctx context.Context, name string)
	RenameWorkspace(ctx context.Context, id string, name string)
	DeleteWorkspace(ctx context.Context, id string)
	CreateChat(ctx context.Context)
	RenameChat(ctx context.Context, id string, title string)
	DeleteChat(ctx context.Context, id string)
	SendMessage(ctx context.Context, content string)
	ToggleSidebar()
	Refresh(ctx context.Context)

	Close()
}
