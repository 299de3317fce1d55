package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadPayload marks frames that could not be decoded. They are logged
// and dropped; the connection itself stays healthy.
var ErrBadPayload = errors.New("stream: bad payload")

// Status identifies the kind of job update the backend delivered.
// Unrecognized statuses decode successfully and are reported as-is so
// consumers can treat them as a deliberate no-op rather than an error.
type Status string

const (
	StatusCompleted             Status = "COMPLETED"
	StatusAwaitingClarification Status = "AWAITING_CLARIFICATION"
)

// Known reports whether the status is one the client acts on.
func (s Status) Known() bool {
	return s == StatusCompleted || s == StatusAwaitingClarification
}

// Result carries the final assistant answer of a completed job.
type Result struct {
	Response string `json:"response"`
}

// ClarificationRequest is the server-initiated question the user must
// answer before the job identified by JobID can complete.
type ClarificationRequest struct {
	JobID     string   `json:"job_id"`
	QueryText string   `json:"query_text"`
	Options   []string `json:"options,omitempty"`
}

// Update is a single decoded frame from the job-update channel.
// ConversationID and JobID are both optional; the reconciler resolves
// the target conversation from whichever is present.
type Update struct {
	ConversationID  string                `json:"conversation_id,omitempty"`
	JobID           string                `json:"job_id,omitempty"`
	Status          Status                `json:"status"`
	Result          *Result               `json:"result,omitempty"`
	InitialResponse string                `json:"initial_response,omitempty"`
	Clarification   *ClarificationRequest `json:"clarification_request,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func decodeUpdate(b []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(b, &u); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	u.Raw = json.RawMessage(b)
	return u, nil
}

// clarificationResponse is the only outbound frame the client sends.
type clarificationResponse struct {
	Type     string `json:"type"`
	JobID    string `json:"job_id"`
	Response string `json:"response"`
}
