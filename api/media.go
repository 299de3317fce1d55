package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// MediaItem is one uploaded file in the user's gallery.
type MediaItem struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadMedia uploads one file to the gallery as multipart form data.
func (c *Client) UploadMedia(ctx context.Context, filename string, r io.Reader) (MediaItem, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return MediaItem{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return MediaItem{}, fmt.Errorf("api: reading upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return MediaItem{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/media/upload", &buf)
	if err != nil {
		return MediaItem{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return MediaItem{}, &Error{Kind: KindNetwork, cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return MediaItem{}, errorFromResponse(resp)
	}

	var item MediaItem
	if err := decodeBody(resp, &item); err != nil {
		return MediaItem{}, err
	}
	return item, nil
}

// ListMedia fetches the gallery contents.
func (c *Client) ListMedia(ctx context.Context) ([]MediaItem, error) {
	var out []MediaItem
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/media", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMedia removes one gallery item.
func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/media/"+url.PathEscape(id), nil, nil)
}
