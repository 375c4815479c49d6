package conversation

import "github.com/google/uuid"

// State is the root of the conversation state. The manager owns exactly one
// State at a time and every mutation produces a fresh snapshot, so consumers
// can rely on pointer identity for change detection and must treat a State
// they read as immutable.
type State struct {
	User              User         `json:"user"`
	Workspaces        []*Workspace `json:"workspaces"`
	ActiveWorkspaceID string       `json:"activeWorkspaceId"`
	ActiveChatID      string       `json:"activeChatId"`
	SidebarCollapsed  bool         `json:"sidebarCollapsed"`
}

func newID() string {
	return uuid.NewString()
}

// NewState returns the well-defined empty state: no user, no workspaces, no
// selection.
func NewState() *State {
	return &State{
		Workspaces: []*Workspace{},
	}
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := &State{
		User:              s.User,
		Workspaces:        make([]*Workspace, 0, len(s.Workspaces)),
		ActiveWorkspaceID: s.ActiveWorkspaceID,
		ActiveChatID:      s.ActiveChatID,
		SidebarCollapsed:  s.SidebarCollapsed,
	}
	for _, w := range s.Workspaces {
		clone.Workspaces = append(clone.Workspaces, w.Clone())
	}
	return clone
}

func (s *State) FindWorkspace(id string) (*Workspace, bool) {
	if s == nil {
		return nil, false
	}
	for _, w := range s.Workspaces {
		if w.ID == id {
			return w, true
		}
	}
	return nil, false
}

// ActiveWorkspace resolves the active workspace, or nil when the selection is
// empty.
func (s *State) ActiveWorkspace() *Workspace {
	if s == nil || s.ActiveWorkspaceID == "" {
		return nil
	}
	w, _ := s.FindWorkspace(s.ActiveWorkspaceID)
	return w
}

// ActiveChat resolves the active chat inside the active workspace, or nil.
func (s *State) ActiveChat() *Chat {
	w := s.ActiveWorkspace()
	if w == nil || s.ActiveChatID == "" {
		return nil
	}
	c, _ := w.FindChat(s.ActiveChatID)
	return c
}

// StreamingMessage returns the single message with Streaming set, if any.
// The state invariant guarantees there is at most one across all chats.
func (s *State) StreamingMessage() (*Message, bool) {
	if s == nil {
		return nil, false
	}
	for _, w := range s.Workspaces {
		for _, c := range w.Chats {
			for _, m := range c.Messages {
				if m.Streaming {
					return m, true
				}
			}
		}
	}
	return nil, false
}
