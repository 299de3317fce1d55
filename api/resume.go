package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// UploadResume posts a resume file to an external webhook. The webhook is
// not part of the conversation backend; it gets its own URL and optional
// shared-secret header rather than the bearer token.
func (c *Client) UploadResume(ctx context.Context, webhookURL, webhookToken, filename string, r io.Reader) error {
	if webhookURL == "" {
		return fmt.Errorf("api: missing webhook url")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("api: reading resume: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token := strings.TrimSpace(webhookToken); token != "" {
		req.Header.Set("X-Webhook-Token", token)
	}

	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return &Error{Kind: KindNetwork, cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	return nil
}
