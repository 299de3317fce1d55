package chat

import (
	"github.com/synapse-ai/synapse-client/stream"
)

// HandleUpdate applies one inbound stream update to local state. Events
// are processed in arrival order with no buffering; attribution goes
// through the event's conversation id, then the job table, then the
// active conversation. An event that resolves to nothing is dropped with
// a diagnostic, never an error.
func (s *Session) HandleUpdate(u stream.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := u.ConversationID
	if target == "" && u.JobID != "" {
		if id, ok := s.jobs.Resolve(u.JobID); ok {
			target = id
		}
	}
	if target == "" {
		target = s.activeID
	}
	if target == "" {
		s.logger.Printf("chat: could not resolve a target conversation for job %q, dropping update", u.JobID)
		return
	}
	if _, ok := s.store.Get(target); !ok {
		s.logger.Printf("chat: update for unknown conversation %s, dropping", target)
		return
	}

	switch u.Status {
	case stream.StatusCompleted:
		if u.Result == nil {
			s.logger.Printf("chat: COMPLETED update without result for job %q, dropping", u.JobID)
			return
		}
		s.clar = nil
		s.typing = false
		replaced, _ := s.store.ResolveTrailing(target, Message{Role: RoleAssistant, Text: u.Result.Response})
		if !replaced {
			// A repeat delivery or a reply that raced the placeholder;
			// the message is appended instead. Known non-idempotent edge.
			s.logger.Printf("chat: no placeholder in %s, appended completion for job %q", target, u.JobID)
		}
		s.persistLocked(target)

	case stream.StatusAwaitingClarification:
		s.typing = false
		if u.InitialResponse != "" {
			s.store.ResolveTrailing(target, Message{Role: RoleAssistant, Text: u.InitialResponse})
			s.persistLocked(target)
		}
		if u.Clarification != nil {
			s.clar = &Clarification{
				JobID:     u.Clarification.JobID,
				QueryText: u.Clarification.QueryText,
				Options:   append([]string(nil), u.Clarification.Options...),
			}
		} else {
			s.logger.Printf("chat: AWAITING_CLARIFICATION without payload for job %q", u.JobID)
		}

	default:
		// Unrecognized statuses are a forward-compatible no-op.
	}
}
