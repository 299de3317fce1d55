package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTitle = "New Chat"

// LoadConversations fetches the user's conversations from the backend
// and replaces local state, selecting the most recent one as active.
// When the fetch fails, the last cached listing is served instead; the
// error is returned only if the cache cannot help either.
func (s *Session) LoadConversations(ctx context.Context) error {
	summaries, err := s.messenger.ListConversations(ctx)
	if err != nil {
		s.logger.Printf("chat: fetching conversations: %v", err)
		if s.loadFromCache() {
			return nil
		}
		return err
	}

	convs := make([]Conversation, 0, len(summaries))
	for _, sum := range summaries {
		c := Conversation{ID: sum.ID, Title: sum.Title, UpdatedAt: sum.UpdatedAt}
		for _, m := range sum.Messages {
			c.Messages = append(c.Messages, Message{Role: Role(m.Role), Text: m.Content})
		}
		convs = append(convs, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Replace(convs)
	s.activeID = s.store.First()
	for _, id := range s.store.order {
		s.persistLocked(id)
	}
	return nil
}

func (s *Session) loadFromCache() bool {
	if s.cache == nil {
		return false
	}
	records, err := s.cache.ListConversations()
	if err != nil {
		s.logger.Printf("chat: reading conversation cache: %v", err)
		return false
	}
	if len(records) == 0 {
		return false
	}
	convs := make([]Conversation, 0, len(records))
	for _, rec := range records {
		convs = append(convs, fromRecord(rec))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Replace(convs)
	s.activeID = s.store.First()
	s.logger.Printf("chat: serving %d conversations from local cache", len(convs))
	return true
}

// NewConversation creates a fresh local conversation with a greeting and
// makes it active. It is persisted to the backend lazily, by the first
// message send.
func (s *Session) NewConversation() Conversation {
	c := Conversation{
		ID:        uuid.NewString(),
		Title:     defaultTitle,
		Messages:  []Message{{Role: RoleAssistant, Text: greetingText}},
		UpdatedAt: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Add(c)
	s.activeID = c.ID
	s.clar = nil
	s.persistLocked(c.ID)
	cp := c
	cp.Messages = append([]Message(nil), c.Messages...)
	return cp
}

// SwitchTo changes the active conversation. A pending clarification is
// cleared unless its job belongs to the newly active conversation.
func (s *Session) SwitchTo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store.Get(id); !ok {
		return ErrUnknownConversation
	}
	s.activeID = id
	if s.clar != nil {
		if owner, ok := s.jobs.Resolve(s.clar.JobID); !ok || owner != id {
			s.clar = nil
		}
	}
	return nil
}

// Rename retitles a conversation locally and on the backend. The local
// rename sticks even when the backend call fails; the error is returned
// so callers can surface it.
func (s *Session) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}

	s.mu.Lock()
	if !s.store.Rename(id, title) {
		s.mu.Unlock()
		return ErrUnknownConversation
	}
	s.persistLocked(id)
	s.mu.Unlock()

	if err := s.messenger.RenameConversation(ctx, id, title); err != nil {
		s.logger.Printf("chat: renaming conversation %s on backend: %v", id, err)
		return err
	}
	return nil
}

// Delete removes a conversation locally and on the backend. When the
// active conversation is deleted, the newest remaining one becomes
// active.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.store.Remove(id) {
		s.mu.Unlock()
		return ErrUnknownConversation
	}
	if s.activeID == id {
		s.activeID = s.store.First()
		if s.clar != nil {
			if owner, ok := s.jobs.Resolve(s.clar.JobID); !ok || owner != s.activeID {
				s.clar = nil
			}
		}
	}
	if s.cache != nil {
		if err := s.cache.DeleteConversation(id); err != nil {
			s.logger.Printf("chat: removing conversation %s from cache: %v", id, err)
		}
	}
	s.mu.Unlock()

	if err := s.messenger.DeleteConversation(ctx, id); err != nil {
		s.logger.Printf("chat: deleting conversation %s on backend: %v", id, err)
		return err
	}
	return nil
}

// ClearHistory drops all local conversation state. Backend records are
// untouched; a reload brings them back.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = NewConversationStore()
	s.activeID = ""
	s.clar = nil
	s.typing = false
}
