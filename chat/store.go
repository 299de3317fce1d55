package chat

import (
	"sort"
	"time"
)

// ConversationStore is the in-memory conversation list. It is not safe
// for concurrent use on its own; the owning Session serializes access.
type ConversationStore struct {
	order []string
	byID  map[string]*Conversation
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{byID: make(map[string]*Conversation)}
}

// Replace swaps the whole store contents, newest first.
func (s *ConversationStore) Replace(convs []Conversation) {
	s.order = s.order[:0]
	s.byID = make(map[string]*Conversation, len(convs))
	sorted := make([]Conversation, len(convs))
	copy(sorted, convs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	for i := range sorted {
		c := sorted[i]
		if _, dup := s.byID[c.ID]; dup {
			continue
		}
		s.order = append(s.order, c.ID)
		s.byID[c.ID] = &c
	}
}

// Add prepends a conversation. A duplicate id is ignored.
func (s *ConversationStore) Add(c Conversation) bool {
	if _, exists := s.byID[c.ID]; exists {
		return false
	}
	s.order = append([]string{c.ID}, s.order...)
	s.byID[c.ID] = &c
	return true
}

func (s *ConversationStore) Get(id string) (*Conversation, bool) {
	c, ok := s.byID[id]
	return c, ok
}

func (s *ConversationStore) Remove(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns copies of every conversation in display order.
func (s *ConversationStore) List() []Conversation {
	out := make([]Conversation, 0, len(s.order))
	for _, id := range s.order {
		c := s.byID[id]
		cp := *c
		cp.Messages = append([]Message(nil), c.Messages...)
		out = append(out, cp)
	}
	return out
}

func (s *ConversationStore) Len() int { return len(s.order) }

// First returns the id of the newest conversation, or "".
func (s *ConversationStore) First() string {
	if len(s.order) == 0 {
		return ""
	}
	return s.order[0]
}

// Append adds messages to the end of a conversation in one mutation, so
// the user message and its placeholder land together.
func (s *ConversationStore) Append(id string, msgs ...Message) bool {
	c, ok := s.byID[id]
	if !ok {
		return false
	}
	c.Messages = append(c.Messages, msgs...)
	c.UpdatedAt = time.Now()
	return true
}

// ResolveTrailing applies the reconciler's replace-or-append rule: if
// the conversation ends with a thinking placeholder it is replaced in
// place, otherwise msg is appended. Exactly one of the two happens.
// replaced reports which.
func (s *ConversationStore) ResolveTrailing(id string, msg Message) (replaced, ok bool) {
	c, found := s.byID[id]
	if !found {
		return false, false
	}
	if n := len(c.Messages); n > 0 && c.Messages[n-1].Thinking {
		c.Messages[n-1] = msg
		replaced = true
	} else {
		c.Messages = append(c.Messages, msg)
	}
	c.UpdatedAt = time.Now()
	return replaced, true
}

// DropTrailingThinking removes a trailing placeholder if present,
// keeping the single-placeholder invariant before a fresh optimistic
// append.
func (s *ConversationStore) DropTrailingThinking(id string) {
	c, ok := s.byID[id]
	if !ok {
		return
	}
	if n := len(c.Messages); n > 0 && c.Messages[n-1].Thinking {
		c.Messages = c.Messages[:n-1]
	}
}

// HasTrailingThinking reports whether a send is still unresolved for the
// conversation. Used as the send-in-flight guard.
func (s *ConversationStore) HasTrailingThinking(id string) bool {
	c, ok := s.byID[id]
	if !ok {
		return false
	}
	n := len(c.Messages)
	return n > 0 && c.Messages[n-1].Thinking
}

// Rename updates the display title.
func (s *ConversationStore) Rename(id, title string) bool {
	c, ok := s.byID[id]
	if !ok {
		return false
	}
	c.Title = title
	c.UpdatedAt = time.Now()
	return true
}
