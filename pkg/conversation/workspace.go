package conversation

// Chat is a single conversation thread. It belongs to exactly one workspace;
// ownership transfer is not supported.
type Chat struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Messages []*Message `json:"messages"`
}

func NewChat(title string) *Chat {
	return &Chat{
		ID:       newID(),
		Title:    title,
		Messages: []*Message{},
	}
}

func (c *Chat) Clone() *Chat {
	if c == nil {
		return nil
	}
	clone := &Chat{
		ID:       c.ID,
		Title:    c.Title,
		Messages: make([]*Message, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		clone.Messages = append(clone.Messages, m.Clone())
	}
	return clone
}

// IsStreaming reports whether any message in the chat is still being
// produced.
func (c *Chat) IsStreaming() bool {
	if c == nil {
		return false
	}
	for _, m := range c.Messages {
		if m.Streaming {
			return true
		}
	}
	return false
}

// Workspace is the top-level grouping owning an ordered set of chats.
// Deleting a workspace destroys all contained chats.
type Workspace struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Chats       []*Chat `json:"chats"`
}

func NewWorkspace(name string) *Workspace {
	return &Workspace{
		ID:    newID(),
		Name:  name,
		Chats: []*Chat{},
	}
}

func (w *Workspace) Clone() *Workspace {
	if w == nil {
		return nil
	}
	clone := &Workspace{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Chats:       make([]*Chat, 0, len(w.Chats)),
	}
	for _, c := range w.Chats {
		clone.Chats = append(clone.Chats, c.Clone())
	}
	return clone
}

func (w *Workspace) FindChat(id string) (*Chat, bool) {
	if w == nil {
		return nil, false
	}
	for _, c := range w.Chats {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// User identifies the session owner as supplied by the identity provider.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
