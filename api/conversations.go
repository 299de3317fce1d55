package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RemoteMessage is one message as the backend stores it. The backend
// field is "content"; local state calls it "text".
type RemoteMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationSummary is one entry from the conversation listing.
type ConversationSummary struct {
	ID        string          `json:"uuid"`
	Title     string          `json:"title"`
	Messages  []RemoteMessage `json:"messages"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MessageReceipt is the backend's acknowledgement of a posted message.
// JobID is present when the reply will arrive asynchronously on the
// streaming channel; Response is present for synchronous answers.
type MessageReceipt struct {
	JobID          string `json:"job_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Response       string `json:"response,omitempty"`
}

type sendMessageRequest struct {
	Content            string `json:"content"`
	UsePersonalization bool   `json:"use_personalization"`
}

// ListConversations fetches every conversation for the logged-in user.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var out []ConversationSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/conversations/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts a user message. The assistant's reply normally
// arrives later on the streaming channel under the receipt's job id.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string, personalize bool) (MessageReceipt, error) {
	var receipt MessageReceipt
	path := fmt.Sprintf("/api/v1/conversations/%s/messages", url.PathEscape(conversationID))
	body := sendMessageRequest{Content: content, UsePersonalization: personalize}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &receipt); err != nil {
		return MessageReceipt{}, err
	}
	return receipt, nil
}

// RenameConversation updates the display title.
func (c *Client) RenameConversation(ctx context.Context, conversationID, title string) error {
	path := "/api/v1/conversations/" + url.PathEscape(conversationID)
	return c.doJSON(ctx, http.MethodPatch, path, map[string]string{"title": title}, nil)
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	path := "/api/v1/conversations/" + url.PathEscape(conversationID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}
