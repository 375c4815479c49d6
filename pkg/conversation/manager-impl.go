package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlato/pkg/events"
	"github.com/go-go-golems/parlato/pkg/helpers"
	"github.com/go-go-golems/parlato/pkg/steps"
	"github.com/go-go-golems/parlato/pkg/store"
)

const (
	defaultChatTitle = "New Conversation"
	seededChatTitle  = "New Chat"
)

// activeStream is the handle for the single in-flight reply production.
type activeStream struct {
	chatID    string
	messageID string
	cancel    context.CancelFunc
}

type ManagerImpl struct {
	mu    sync.Mutex
	state *State

	mode    Mode
	started bool
	pending int64

	kv      store.KV
	backend Backend
	step    steps.Step
	user    *User

	publisherManager *events.PublisherManager

	phase  StreamPhase
	stream *activeStream
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

// WithKV sets the durable local store used in local-only mode.
func WithKV(kv store.KV) ManagerOption {
	return func(m *ManagerImpl) {
		m.kv = kv
	}
}

// WithBackend enables remote-backed mode when the initial listing succeeds.
func WithBackend(backend Backend) ManagerOption {
	return func(m *ManagerImpl) {
		m.backend = backend
	}
}

// WithStep sets the reply producer driving SendMessage.
func WithStep(step steps.Step) ManagerOption {
	return func(m *ManagerImpl) {
		m.step = step
	}
}

// WithUser sets the session identity. Without one the manager treats the
// session as having no workspaces available remotely and stays local-only.
func WithUser(user *User) ManagerOption {
	return func(m *ManagerImpl) {
		m.user = user
	}
}

func WithPublisherManager(pm *events.PublisherManager) ManagerOption {
	return func(m *ManagerImpl) {
		m.publisherManager = pm
	}
}

// NewManager builds an explicitly owned manager instance. There is no package
// singleton; tests and embedders construct as many independent managers as
// they need.
func NewManager(options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{
		state: NewState(),
		mode:  ModeLocal,
		phase: StreamPhaseIdle,
	}

	for _, option := range options {
		option(ret)
	}

	if ret.kv == nil {
		ret.kv = store.NewInMemoryKV()
	}
	if ret.step == nil {
		ret.step = steps.NewEchoStep()
	}
	if ret.publisherManager == nil {
		ret.publisherManager = events.NewPublisherManager()
	}

	return ret
}

// PublisherManager exposes the event distribution hub so consumers can attach
// watermill publishers for stream lifecycle events.
func (m *ManagerImpl) PublisherManager() *events.PublisherManager {
	return m.publisherManager
}

// Start decides the session mode with exactly one remote listing call. A
// successful listing enters remote-backed mode for the rest of the session;
// a failed one (or no backend, or no identity) enters local-only mode and
// loads the persisted snapshot. The decision is never revisited.
func (m *ManagerImpl) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	m.started = true

	if m.backend == nil || m.user == nil {
		m.enterLocalModeLocked()
		return nil
	}

	workspaces, err := m.backend.ListWorkspaces(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("workspace listing failed, entering local-only mode")
		m.enterLocalModeLocked()
		return nil
	}

	m.mode = ModeRemote
	next := NewState()
	next.User = *m.user
	next.Workspaces = workspaces
	if len(workspaces) > 0 {
		next.ActiveWorkspaceID = workspaces[0].ID
		if len(workspaces[0].Chats) > 0 {
			next.ActiveChatID = workspaces[0].Chats[0].ID
		}
	}
	m.state = next
	log.Debug().Int("workspaces", len(workspaces)).Msg("entered remote-backed mode")
	return nil
}

func (m *ManagerImpl) enterLocalModeLocked() {
	m.mode = ModeLocal
	next := LoadState(m.kv)
	if m.user != nil {
		next.User = *m.user
	}
	normalizeSelection(next)
	m.state = next
	log.Debug().Int("workspaces", len(next.Workspaces)).Msg("entered local-only mode")
}

// normalizeSelection repairs a selection that no longer resolves, which can
// happen when a stale or hand-edited snapshot is loaded.
func normalizeSelection(s *State) {
	w, ok := s.FindWorkspace(s.ActiveWorkspaceID)
	if !ok {
		s.ActiveWorkspaceID = ""
		s.ActiveChatID = ""
		if len(s.Workspaces) > 0 {
			s.ActiveWorkspaceID = s.Workspaces[0].ID
			w = s.Workspaces[0]
		}
	}
	if w == nil {
		s.ActiveChatID = ""
		return
	}
	if _, ok := w.FindChat(s.ActiveChatID); !ok {
		s.ActiveChatID = ""
		if len(w.Chats) > 0 {
			s.ActiveChatID = w.Chats[0].ID
		}
	}
}

func (m *ManagerImpl) State() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ManagerImpl) ActiveWorkspace() *Workspace {
	return m.State().ActiveWorkspace()
}

func (m *ManagerImpl) ActiveChat() *Chat {
	return m.State().ActiveChat()
}

// IsStreaming reports whether a message in the active chat is being produced.
func (m *ManagerImpl) IsStreaming() bool {
	return m.State().ActiveChat().IsStreaming()
}

// IsMutating reports whether any mutation is pending. UIs use it as a busy
// signal to disable destructive actions; it does not block further mutations.
func (m *ManagerImpl) IsMutating() bool {
	return atomic.LoadInt64(&m.pending) > 0
}

func (m *ManagerImpl) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *ManagerImpl) StreamPhase() StreamPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// beginMutation increments the pending counter and returns the paired
// decrement. Callers defer the returned func so the counter is released on
// every exit path.
func (m *ManagerImpl) beginMutation() func() {
	atomic.AddInt64(&m.pending, 1)
	var once sync.Once
	return func() {
		once.Do(func() {
			atomic.AddInt64(&m.pending, -1)
		})
	}
}

// persistLocked snapshots the current state through the persistence adapter.
// Only local-only mode writes; failures are logged and swallowed so a state
// update never blocks on storage.
func (m *ManagerImpl) persistLocked(mode Mode) {
	if mode != ModeLocal {
		return
	}
	if err := SaveState(m.kv, m.state); err != nil {
		log.Error().Err(err).Msg("failed to persist state snapshot")
	}
}

// SelectWorkspace is pure and local: no backend call, selection moves to the
// workspace's first chat (or empty).
func (m *ManagerImpl) SelectWorkspace(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.state.FindWorkspace(id)
	if !ok {
		return
	}

	next := m.state.Clone()
	next.ActiveWorkspaceID = id
	next.ActiveChatID = ""
	if len(w.Chats) > 0 {
		next.ActiveChatID = w.Chats[0].ID
	}
	m.state = next
	m.persistLocked(m.mode)
}

func (m *ManagerImpl) SelectChat(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.state.ActiveWorkspace()
	if w == nil {
		return
	}
	if _, ok := w.FindChat(id); !ok {
		return
	}

	next := m.state.Clone()
	next.ActiveChatID = id
	m.state = next
	m.persistLocked(m.mode)
}

func (m *ManagerImpl) ToggleSidebar() {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Clone()
	next.SidebarCollapsed = !next.SidebarCollapsed
	m.state = next
	m.persistLocked(m.mode)
}

func (m *ManagerImpl) CreateWorkspace(ctx context.Context, name string) {
	end := m.beginMutation()
	defer end()

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Workspace %d", len(m.State().Workspaces)+1)
	}

	mode := m.Mode()
	if mode == ModeLocal {
		m.mu.Lock()
		defer m.mu.Unlock()

		workspace := NewWorkspace(name)
		chat := NewChat(seededChatTitle)
		workspace.Chats = []*Chat{chat}

		next := m.state.Clone()
		next.Workspaces = append([]*Workspace{workspace}, next.Workspaces...)
		next.ActiveWorkspaceID = workspace.ID
		next.ActiveChatID = chat.ID
		m.state = next
		m.persistLocked(mode)
		return
	}

	workspace, err := m.backend.CreateWorkspace(ctx, name, "")
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("failed to create workspace")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Clone()
	next.Workspaces = append([]*Workspace{workspace}, next.Workspaces...)
	next.ActiveWorkspaceID = workspace.ID
	next.ActiveChatID = ""
	if len(workspace.Chats) > 0 {
		next.ActiveChatID = workspace.Chats[0].ID
	}
	m.state = next
}

func (m *ManagerImpl) RenameWorkspace(ctx context.Context, id string, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	end := m.beginMutation()
	defer end()

	mode := m.Mode()
	if mode == ModeRemote {
		if err := m.backend.RenameWorkspace(ctx, id, name); err != nil {
			log.Error().Err(err).Str("workspace_id", id).Msg("failed to rename workspace")
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.FindWorkspace(id); !ok {
		log.Debug().Str("workspace_id", id).Msg("rename of unknown workspace ignored")
		return
	}

	next := m.state.Clone()
	w, _ := next.FindWorkspace(id)
	w.Name = name
	m.state = next
	m.persistLocked(mode)
}

func (m *ManagerImpl) DeleteWorkspace(ctx context.Context, id string) {
	end := m.beginMutation()
	defer end()

	mode := m.Mode()
	if mode == ModeRemote {
		if err := m.backend.DeleteWorkspace(ctx, id); err != nil {
			log.Error().Err(err).Str("workspace_id", id).Msg("failed to delete workspace")
			return
		}
	}

	var interrupted events.Event
	defer func() {
		if interrupted != nil {
			m.publisherManager.PublishBlind(interrupted)
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.FindWorkspace(id); !ok {
		return
	}

	// Deleting the workspace owning the in-flight stream cancels the stream.
	if m.stream != nil {
		if w, _ := m.state.FindWorkspace(id); w != nil {
			if _, ok := w.FindChat(m.stream.chatID); ok {
				interrupted = m.cancelStreamLocked()
			}
		}
	}

	next := m.state.Clone()
	remaining := make([]*Workspace, 0, len(next.Workspaces))
	for _, w := range next.Workspaces {
		if w.ID != id {
			remaining = append(remaining, w)
		}
	}
	next.Workspaces = remaining

	if next.ActiveWorkspaceID == id {
		next.ActiveWorkspaceID = ""
		next.ActiveChatID = ""
		if len(remaining) > 0 {
			next.ActiveWorkspaceID = remaining[0].ID
			if len(remaining[0].Chats) > 0 {
				next.ActiveChatID = remaining[0].Chats[0].ID
			}
		}
	}
	m.state = next
	m.persistLocked(mode)
}

func (m *ManagerImpl) CreateChat(ctx context.Context) {
	end := m.beginMutation()
	defer end()

	workspaceID := m.State().ActiveWorkspaceID
	if workspaceID == "" {
		return
	}

	mode := m.Mode()
	var chat *Chat
	if mode == ModeLocal {
		chat = NewChat(defaultChatTitle)
	} else {
		var err error
		chat, err = m.backend.CreateChat(ctx, workspaceID, defaultChatTitle)
		if err != nil {
			log.Error().Err(err).Str("workspace_id", workspaceID).Msg("failed to create chat")
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.FindWorkspace(workspaceID); !ok {
		// Workspace vanished while the call was in flight; last writer wins.
		log.Debug().Str("workspace_id", workspaceID).Msg("chat created for removed workspace, dropping")
		return
	}

	next := m.state.Clone()
	w, _ := next.FindWorkspace(workspaceID)
	w.Chats = append([]*Chat{chat}, w.Chats...)
	next.ActiveChatID = chat.ID
	m.state = next
	m.persistLocked(mode)
}

func (m *ManagerImpl) RenameChat(ctx context.Context, id string, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}

	end := m.beginMutation()
	defer end()

	mode := m.Mode()
	if mode == ModeRemote {
		if err := m.backend.RenameChat(ctx, id, title); err != nil {
			log.Error().Err(err).Str("chat_id", id).Msg("failed to rename chat")
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.state.ActiveWorkspace()
	if w == nil {
		return
	}
	if _, ok := w.FindChat(id); !ok {
		log.Debug().Str("chat_id", id).Msg("rename of unknown chat ignored")
		return
	}

	next := m.state.Clone()
	nw, _ := next.FindWorkspace(w.ID)
	c, _ := nw.FindChat(id)
	c.Title = title
	m.state = next
	m.persistLocked(mode)
}

// DeleteChat removes a chat from the active workspace. The workspace is
// allowed to end up with zero chats in both modes; when the deleted chat was
// active, selection falls to the first remaining chat or empty.
func (m *ManagerImpl) DeleteChat(ctx context.Context, id string) {
	end := m.beginMutation()
	defer end()

	mode := m.Mode()
	if mode == ModeRemote {
		if err := m.backend.DeleteChat(ctx, id); err != nil {
			log.Error().Err(err).Str("chat_id", id).Msg("failed to delete chat")
			return
		}
	}

	var interrupted events.Event
	defer func() {
		if interrupted != nil {
			m.publisherManager.PublishBlind(interrupted)
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.state.ActiveWorkspace()
	if w == nil {
		return
	}
	if _, ok := w.FindChat(id); !ok {
		return
	}

	if m.stream != nil && m.stream.chatID == id {
		interrupted = m.cancelStreamLocked()
	}

	next := m.state.Clone()
	nw, _ := next.FindWorkspace(w.ID)
	remaining := make([]*Chat, 0, len(nw.Chats))
	for _, c := range nw.Chats {
		if c.ID != id {
			remaining = append(remaining, c)
		}
	}
	nw.Chats = remaining

	if next.ActiveChatID == id {
		next.ActiveChatID = ""
		if len(remaining) > 0 {
			next.ActiveChatID = remaining[0].ID
		}
	}
	m.state = next
	m.persistLocked(mode)
}

// Refresh re-fetches the workspace tree from the backend and reconciles it
// into the current state. A no-op in local-only mode or on fetch failure.
func (m *ManagerImpl) Refresh(ctx context.Context) {
	end := m.beginMutation()
	defer end()

	if m.Mode() != ModeRemote {
		return
	}

	workspaces, err := m.backend.ListWorkspaces(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to refresh workspaces")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Clone()
	next.Workspaces = workspaces
	normalizeSelection(next)
	m.state = next
}

// SendMessage starts the streaming-reply state machine: it appends the user
// message together with an empty streaming assistant placeholder in one
// snapshot, then drives the reply producer, replacing the placeholder's full
// accumulated content on every fragment.
//
// It is a silent no-op when the content trims to empty, there is no active
// chat, or the active chat already has a streaming reply. A stream in flight
// for a different chat is cancelled first, so at most one message across the
// entire state is ever streaming.
func (m *ManagerImpl) SendMessage(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	m.mu.Lock()

	chat := m.state.ActiveChat()
	if chat == nil {
		m.mu.Unlock()
		return
	}
	if chat.IsStreaming() {
		m.mu.Unlock()
		return
	}

	interrupted := m.cancelStreamLocked()

	userMessage := NewMessage(RoleUser, content)
	assistantMessage := NewMessage(RoleAssistant, "", WithStreaming(true))

	mode := m.mode
	chatID := chat.ID
	next := m.state.Clone()
	nw, _ := next.FindWorkspace(next.ActiveWorkspaceID)
	nc, _ := nw.FindChat(chatID)
	nc.Messages = append(nc.Messages, userMessage, assistantMessage)
	m.state = next
	m.persistLocked(mode)

	streamCtx, cancel := context.WithCancel(ctx)
	m.stream = &activeStream{
		chatID:    chatID,
		messageID: assistantMessage.ID,
		cancel:    cancel,
	}
	m.phase = StreamPhaseAwaitingFirstToken
	m.mu.Unlock()

	if interrupted != nil {
		m.publisherManager.PublishBlind(interrupted)
	}

	meta := events.EventMetadata{ChatID: chatID, MessageID: assistantMessage.ID}
	m.publisherManager.PublishBlind(events.NewStartEvent(meta))

	result, err := m.step.Start(streamCtx, chatID, content)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("failed to start reply stream")
		m.finishStream(meta, "", err)
		return
	}

	go m.consumeStream(result.C, meta, mode)
}

// consumeStream drives one production loop. Each fragment replaces the
// placeholder's full content with the locally accumulated text, so the update
// is idempotent even when fragments are re-delivered to renderers.
func (m *ManagerImpl) consumeStream(c <-chan helpers.Result[string], meta events.EventMetadata, mode Mode) {
	completion := ""

	for result := range c {
		fragment, err := result.Value()
		if err != nil {
			m.finishStream(meta, completion, err)
			return
		}
		completion += fragment

		m.mu.Lock()
		if m.stream == nil || m.stream.messageID != meta.MessageID {
			// Superseded by a newer stream; the canceller finalized our
			// message and cancelled our context. Drain until the producer
			// notices and closes the channel, so it never blocks on a send.
			m.mu.Unlock()
			for range c {
			}
			return
		}
		m.phase = StreamPhaseStreaming
		next := m.state.Clone()
		if msg, ok := findMessage(next, meta.ChatID, meta.MessageID); ok {
			msg.Content = completion
		}
		m.state = next
		m.mu.Unlock()

		m.publisherManager.PublishBlind(events.NewPartialCompletionEvent(meta, fragment, completion))
	}

	m.finishStream(meta, completion, nil)
}

// finishStream finalizes a stream: clearing the cancel handle and flipping
// the Streaming flag happen under the same lock acquisition, so a concurrent
// SendMessage observes either a fully live or a fully finished stream.
func (m *ManagerImpl) finishStream(meta events.EventMetadata, completion string, streamErr error) {
	m.mu.Lock()

	if m.stream == nil || m.stream.messageID != meta.MessageID {
		m.mu.Unlock()
		return
	}
	m.stream.cancel()
	m.stream = nil

	mode := m.mode
	next := m.state.Clone()
	if msg, ok := findMessage(next, meta.ChatID, meta.MessageID); ok {
		msg.Content = completion
		msg.Streaming = false
	}
	m.state = next
	m.persistLocked(mode)

	if streamErr != nil {
		m.phase = StreamPhaseIdle
	} else {
		m.phase = StreamPhaseComplete
	}
	m.mu.Unlock()

	switch {
	case streamErr == nil:
		m.publisherManager.PublishBlind(events.NewFinalEvent(meta, completion))
	case errors.Is(streamErr, context.Canceled):
		m.publisherManager.PublishBlind(events.NewInterruptEvent(meta, completion))
	default:
		log.Error().Err(streamErr).Str("chat_id", meta.ChatID).Msg("reply stream failed")
		m.publisherManager.PublishBlind(events.NewErrorEvent(meta, streamErr))
	}
}

// cancelStreamLocked tears down the in-flight stream and finalizes its
// message with whatever content accumulated, preserving the single-streaming
// invariant before a new stream is installed. It returns the interrupt event
// for the torn-down stream (nil when there was none); the caller publishes it
// after releasing the state lock.
func (m *ManagerImpl) cancelStreamLocked() events.Event {
	if m.stream == nil {
		return nil
	}
	s := m.stream
	m.stream = nil
	s.cancel()

	text := ""
	next := m.state.Clone()
	if msg, ok := findMessage(next, s.chatID, s.messageID); ok && msg.Streaming {
		msg.Streaming = false
		text = msg.Content
		m.state = next
		m.persistLocked(m.mode)
	}
	m.phase = StreamPhaseIdle

	meta := events.EventMetadata{ChatID: s.chatID, MessageID: s.messageID}
	return events.NewInterruptEvent(meta, text)
}

// Close cancels any in-flight stream. The manager must not be used after.
func (m *ManagerImpl) Close() {
	m.mu.Lock()
	interrupted := m.cancelStreamLocked()
	m.mu.Unlock()

	if interrupted != nil {
		m.publisherManager.PublishBlind(interrupted)
	}
}

// findMessage locates a message by chat and message id anywhere in the state;
// the stream's chat may no longer be the active one by the time a fragment
// lands.
func findMessage(s *State, chatID string, messageID string) (*Message, bool) {
	for _, w := range s.Workspaces {
		c, ok := w.FindChat(chatID)
		if !ok {
			continue
		}
		for _, msg := range c.Messages {
			if msg.ID == messageID {
				return msg, true
			}
		}
	}
	return nil, false
}
