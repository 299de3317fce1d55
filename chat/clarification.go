package chat

import (
	"context"
)

// RespondToClarification answers the pending clarification over the live
// socket and mirrors the send coordinator's optimistic append so the
// reconciler's COMPLETED handling applies uniformly. A call with no
// active clarification or no live socket is a no-op with a diagnostic.
func (s *Session) RespondToClarification(ctx context.Context, text string) {
	s.mu.Lock()
	clar := s.clar
	active := s.activeID
	s.mu.Unlock()

	if clar == nil {
		s.logger.Printf("chat: no clarification pending, ignoring response")
		return
	}
	if s.transport == nil || !s.transport.IsOpen() {
		s.logger.Printf("chat: streaming channel is not connected, ignoring clarification response")
		return
	}

	if err := s.transport.SendClarificationResponse(ctx, clar.JobID, text); err != nil {
		s.logger.Printf("chat: sending clarification response for job %s: %v", clar.JobID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the lock: a concurrent call may have answered the
	// same clarification while the socket send ran unlocked.
	if s.clar == nil || s.clar.JobID != clar.JobID {
		s.logger.Printf("chat: clarification for job %s already answered, skipping append", clar.JobID)
		return
	}
	// An interim placeholder may still be trailing when the server asked
	// for clarification without an initial response; drop it so the
	// single-placeholder invariant holds for the fresh append.
	s.store.DropTrailingThinking(active)
	s.store.Append(active,
		Message{Role: RoleUser, Text: text},
		Message{Role: RoleAssistant, Text: placeholderText, Thinking: true},
	)
	s.clar = nil
	s.typing = true
	s.persistLocked(active)
}
