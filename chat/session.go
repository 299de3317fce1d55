package chat

import (
	"context"
	"log"
	"sync"

	"github.com/synapse-ai/synapse-client/api"
	"github.com/synapse-ai/synapse-client/stores"
	"github.com/synapse-ai/synapse-client/stream"
)

const (
	greetingText    = "Hello! How can I help you today?"
	placeholderText = "..."
)

// Messenger is the slice of the HTTP API the session needs. *api.Client
// satisfies it; tests inject fakes.
type Messenger interface {
	ListConversations(ctx context.Context) ([]api.ConversationSummary, error)
	SendMessage(ctx context.Context, conversationID, content string, personalize bool) (api.MessageReceipt, error)
	ToolsQuery(ctx context.Context, query, userID string) (string, error)
	RenameConversation(ctx context.Context, conversationID, title string) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

// ClarificationTransport is the outbound half of the streaming channel.
// *stream.Subscription and *stream.Client both satisfy it.
type ClarificationTransport interface {
	SendClarificationResponse(ctx context.Context, jobID, response string) error
	IsOpen() bool
}

// Session owns every piece of per-session chat state: the conversation
// store, the job correlation table, the active clarification, the typing
// flag and the active conversation id. All of it is guarded by one mutex;
// inbound stream updates are applied by a single Run loop in arrival
// order, and the public methods interleave with it safely.
type Session struct {
	messenger Messenger
	transport ClarificationTransport
	cache     stores.ConversationCache
	logger    *log.Logger

	userID string

	mu       sync.Mutex
	store    *ConversationStore
	jobs     *JobTable
	clar     *Clarification
	activeID string
	typing   bool
	mode     Mode
}

// NewSession builds a session for one authenticated user. cache and
// transport may be nil; the corresponding features degrade gracefully.
func NewSession(messenger Messenger, transport ClarificationTransport, cache stores.ConversationCache, userID string, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		messenger: messenger,
		transport: transport,
		cache:     cache,
		logger:    logger,
		userID:    userID,
		store:     NewConversationStore(),
		jobs:      NewJobTable(),
	}
}

// Run consumes stream updates until the channel closes or the context is
// cancelled. Updates are applied strictly in arrival order.
func (s *Session) Run(ctx context.Context, updates <-chan stream.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(u)
		}
	}
}

// SetMode selects the response mode applied to subsequent sends.
func (s *Session) SetMode(mode Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// Mode returns the current response mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Typing reports whether the assistant-is-typing indicator is on.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// ActiveConversation returns a copy of the active conversation, if any.
func (s *Session) ActiveConversation() (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.store.Get(s.activeID)
	if !ok {
		return Conversation{}, false
	}
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	return cp, true
}

// ActiveID returns the active conversation id ("" when none).
func (s *Session) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Conversations returns copies of all conversations, newest first.
func (s *Session) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

// Conversation returns a copy of one conversation by id.
func (s *Session) Conversation(id string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.store.Get(id)
	if !ok {
		return Conversation{}, false
	}
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	return cp, true
}

// PendingClarification returns the active clarification, if any.
func (s *Session) PendingClarification() (Clarification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clar == nil {
		return Clarification{}, false
	}
	return *s.clar, true
}

// persistLocked snapshots one conversation into the local cache. Cache
// failures are operational noise, never surfaced.
func (s *Session) persistLocked(id string) {
	if s.cache == nil {
		return
	}
	c, ok := s.store.Get(id)
	if !ok {
		return
	}
	if err := s.cache.SaveConversation(toRecord(*c)); err != nil {
		s.logger.Printf("chat: caching conversation %s: %v", id, err)
	}
}

func toRecord(c Conversation) stores.ConversationRecord {
	rec := stores.ConversationRecord{
		ConversationID:  c.ID,
		Title:           c.Title,
		RemoteUpdatedAt: c.UpdatedAt,
	}
	for i, m := range c.Messages {
		if m.Thinking {
			// Placeholders are transient UI state, not transcript.
			continue
		}
		rec.Messages = append(rec.Messages, stores.MessageRecord{
			ConversationID: c.ID,
			Sequence:       i + 1,
			Role:           string(m.Role),
			Text:           m.Text,
			Mode:           string(m.Mode),
		})
	}
	return rec
}

func fromRecord(rec stores.ConversationRecord) Conversation {
	c := Conversation{
		ID:        rec.ConversationID,
		Title:     rec.Title,
		UpdatedAt: rec.RemoteUpdatedAt,
	}
	for _, m := range rec.Messages {
		c.Messages = append(c.Messages, Message{
			Role: Role(m.Role),
			Text: m.Text,
			Mode: Mode(m.Mode),
		})
	}
	return c
}
