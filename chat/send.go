package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/synapse-ai/synapse-client/api"
)

var (
	// ErrEmptyMessage: the text was empty after trimming.
	ErrEmptyMessage = errors.New("chat: empty message")
	// ErrUnknownConversation: the conversation id is not in the store.
	ErrUnknownConversation = errors.New("chat: unknown conversation")
	// ErrSendInFlight: the conversation still has an unresolved
	// placeholder; a second concurrent send is rejected.
	ErrSendInFlight = errors.New("chat: send already in flight for this conversation")
)

// User-facing failure texts, one per error kind. Network failures never
// block the transcript; they become a synthetic assistant reply.
var failureText = map[api.Kind]string{
	api.KindNetwork:      "Error: unable to reach the assistant. Check your connection and try again.",
	api.KindUnauthorized: "Error: your session has expired. Please log in again.",
	api.KindServer:       "Error: the assistant is temporarily unavailable. Please try again shortly.",
	api.KindUnknown:      "Error: something went wrong. Please try again.",
}

// Send posts a user message to a conversation. The user message and a
// thinking placeholder are appended optimistically in one mutation; the
// real reply arrives later through the reconciler under the returned job
// id. Network failures do not return an error; they resolve the
// placeholder into a synthetic error reply. Only precondition violations
// (empty text, unknown conversation, send already in flight) return.
func (s *Session) Send(ctx context.Context, conversationID, text string) error {
	content := strings.TrimSpace(text)
	if content == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if _, ok := s.store.Get(conversationID); !ok {
		s.mu.Unlock()
		return ErrUnknownConversation
	}
	if s.store.HasTrailingThinking(conversationID) {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	mode := s.mode
	s.clar = nil
	s.typing = true
	s.store.Append(conversationID,
		Message{Role: RoleUser, Text: content, Mode: mode},
		Message{Role: RoleAssistant, Text: placeholderText, Mode: mode, Thinking: true},
	)
	s.persistLocked(conversationID)
	s.mu.Unlock()

	if mode == ModeTools {
		answer, err := s.messenger.ToolsQuery(ctx, content, s.userID)
		if err == nil {
			s.completeLocal(conversationID, answer)
			return nil
		}
		// One fallback to the conversation endpoint, never more.
		s.logger.Printf("chat: tools query failed, falling back to conversation endpoint: %v", err)
		receipt, ferr := s.messenger.SendMessage(ctx, conversationID, content, false)
		if ferr != nil {
			s.failSend(conversationID, ferr)
			return nil
		}
		s.acceptReceipt(conversationID, receipt)
		return nil
	}

	personalize := mode == ModePersonalization || mode == ModeBoth
	receipt, err := s.messenger.SendMessage(ctx, conversationID, content, personalize)
	if err != nil {
		s.failSend(conversationID, err)
		return nil
	}
	s.acceptReceipt(conversationID, receipt)
	return nil
}

// acceptReceipt records the backend's acknowledgement: an async job id
// goes into the correlation table, a synchronous response resolves the
// placeholder immediately. A receipt with neither leaves the placeholder
// for a later stream update addressed by conversation id.
func (s *Session) acceptReceipt(conversationID string, receipt api.MessageReceipt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if receipt.JobID != "" {
		target := receipt.ConversationID
		if target == "" {
			target = conversationID
		}
		s.jobs.Register(receipt.JobID, target)
		return
	}
	if receipt.Response != "" {
		s.typing = false
		s.store.ResolveTrailing(conversationID, Message{Role: RoleAssistant, Text: receipt.Response})
		s.persistLocked(conversationID)
	}
}

func (s *Session) completeLocal(conversationID, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = false
	s.store.ResolveTrailing(conversationID, Message{Role: RoleAssistant, Text: answer, Mode: ModeTools})
	s.persistLocked(conversationID)
}

// failSend resolves the placeholder into an error reply chosen from the
// taxonomy. If a racing update already resolved it, nothing changes.
func (s *Session) failSend(conversationID string, cause error) {
	text, ok := failureText[api.Classify(cause)]
	if !ok {
		text = failureText[api.KindUnknown]
	}
	s.logger.Printf("chat: send to %s failed: %v", conversationID, cause)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = false
	if s.store.HasTrailingThinking(conversationID) {
		s.store.ResolveTrailing(conversationID, Message{Role: RoleAssistant, Text: text})
		s.persistLocked(conversationID)
	}
}
