package api

import (
	"context"
	"net/http"
)

type toolsQueryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

type toolsQueryResponse struct {
	Response string `json:"response"`
}

// ToolsQuery hits the low-latency tools endpoint and returns the answer
// synchronously. Callers fall back to SendMessage when this fails.
func (c *Client) ToolsQuery(ctx context.Context, query, userID string) (string, error) {
	var out toolsQueryResponse
	body := toolsQueryRequest{Query: query, UserID: userID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/tools-query", body, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}
