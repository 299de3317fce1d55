package chat

import (
	"testing"
	"time"
)

func TestReplaceSortsNewestFirst(t *testing.T) {
	s := NewConversationStore()
	now := time.Now()
	s.Replace([]Conversation{
		{ID: "old", UpdatedAt: now.Add(-time.Hour)},
		{ID: "new", UpdatedAt: now},
		{ID: "mid", UpdatedAt: now.Add(-time.Minute)},
	})

	if s.First() != "new" {
		t.Errorf("expected newest first, got %q", s.First())
	}
	list := s.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(list))
	}
	if list[0].ID != "new" || list[1].ID != "mid" || list[2].ID != "old" {
		t.Errorf("wrong order: %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestReplaceDropsDuplicateIDs(t *testing.T) {
	s := NewConversationStore()
	now := time.Now()
	s.Replace([]Conversation{
		{ID: "a", Title: "newer", UpdatedAt: now},
		{ID: "a", Title: "older", UpdatedAt: now.Add(-time.Hour)},
	})
	if s.Len() != 1 {
		t.Fatalf("expected 1 conversation, got %d", s.Len())
	}
	c, _ := s.Get("a")
	if c.Title != "newer" {
		t.Errorf("expected the newer duplicate to win, got %q", c.Title)
	}
}

func TestAddPrependsAndRejectsDuplicates(t *testing.T) {
	s := NewConversationStore()
	s.Add(Conversation{ID: "a"})
	s.Add(Conversation{ID: "b"})
	if s.First() != "b" {
		t.Errorf("expected b first, got %q", s.First())
	}
	if s.Add(Conversation{ID: "a"}) {
		t.Error("duplicate add should be rejected")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 conversations, got %d", s.Len())
	}
}

func TestResolveTrailingReplacesPlaceholder(t *testing.T) {
	s := NewConversationStore()
	s.Add(Conversation{ID: "c", Messages: []Message{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "...", Thinking: true},
	}})

	replaced, ok := s.ResolveTrailing("c", Message{Role: RoleAssistant, Text: "hello"})
	if !ok || !replaced {
		t.Fatalf("expected in-place replacement, replaced=%v ok=%v", replaced, ok)
	}
	c, _ := s.Get("c")
	if len(c.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(c.Messages))
	}
	last := c.Messages[1]
	if last.Text != "hello" || last.Thinking {
		t.Errorf("placeholder not resolved: %+v", last)
	}
}

func TestResolveTrailingAppendsWithoutPlaceholder(t *testing.T) {
	s := NewConversationStore()
	s.Add(Conversation{ID: "c", Messages: []Message{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "hello"},
	}})

	replaced, ok := s.ResolveTrailing("c", Message{Role: RoleAssistant, Text: "again"})
	if !ok || replaced {
		t.Fatalf("expected append, replaced=%v ok=%v", replaced, ok)
	}
	c, _ := s.Get("c")
	if len(c.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(c.Messages))
	}
	if c.Messages[2].Text != "again" {
		t.Errorf("expected appended message, got %q", c.Messages[2].Text)
	}
}

func TestDropTrailingThinking(t *testing.T) {
	s := NewConversationStore()
	s.Add(Conversation{ID: "c", Messages: []Message{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "...", Thinking: true},
	}})

	s.DropTrailingThinking("c")
	c, _ := s.Get("c")
	if len(c.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(c.Messages))
	}

	// Without a placeholder the call is a no-op.
	s.DropTrailingThinking("c")
	if len(c.Messages) != 1 {
		t.Errorf("drop removed a settled message")
	}
}

func TestHasTrailingThinking(t *testing.T) {
	s := NewConversationStore()
	s.Add(Conversation{ID: "c"})
	if s.HasTrailingThinking("c") {
		t.Error("empty conversation should have no placeholder")
	}
	s.Append("c",
		Message{Role: RoleUser, Text: "hi"},
		Message{Role: RoleAssistant, Text: "...", Thinking: true},
	)
	if !s.HasTrailingThinking("c") {
		t.Error("expected a trailing placeholder")
	}
	s.ResolveTrailing("c", Message{Role: RoleAssistant, Text: "done"})
	if s.HasTrailingThinking("c") {
		t.Error("placeholder should be gone after resolution")
	}
}

func TestRemoveAndFirst(t *testing.T) {
	s := NewConversationStore()
	s.Add(Conversation{ID: "a"})
	s.Add(Conversation{ID: "b"})

	if !s.Remove("b") {
		t.Fatal("remove failed")
	}
	if s.First() != "a" {
		t.Errorf("expected a, got %q", s.First())
	}
	if s.Remove("b") {
		t.Error("removing twice should fail")
	}
	s.Remove("a")
	if s.First() != "" {
		t.Errorf("expected empty first, got %q", s.First())
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := NewConversationStore()
	s.Add(Conversation{ID: "c", Messages: []Message{{Role: RoleUser, Text: "hi"}}})

	list := s.List()
	list[0].Messages[0].Text = "mutated"

	c, _ := s.Get("c")
	if c.Messages[0].Text != "hi" {
		t.Error("List exposed internal message slice")
	}
}
