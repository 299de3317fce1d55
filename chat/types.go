package chat

import "time"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Mode selects which assistant behavior a send requests. It tags the
// resulting message for display; it never affects reconciliation.
type Mode string

const (
	ModeDefault         Mode = ""
	ModePersonalization Mode = "personalization"
	ModeTools           Mode = "tools"
	ModeBoth            Mode = "both"
)

// Message is one entry in a conversation transcript. Thinking marks the
// optimistic placeholder awaiting the assistant's real reply; when
// present it is always the last message of its conversation.
type Message struct {
	Role     Role
	Text     string
	Mode     Mode
	Thinking bool
}

// Conversation is one chat thread. Messages are append-only except for
// the single replace-trailing-placeholder operation.
type Conversation struct {
	ID        string
	Title     string
	Messages  []Message
	UpdatedAt time.Time
}

// Clarification is the single session-wide pending question from the
// server. At most one is active at a time.
type Clarification struct {
	JobID     string
	QueryText string
	Options   []string
}
