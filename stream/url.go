package stream

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config describes one job-update channel connection.
type Config struct {
	// BaseURL is the websocket base URL, e.g. "ws://localhost:8000".
	// "http"/"https" schemes are rewritten to "ws"/"wss".
	BaseURL string
	// UserID selects the per-user channel; required.
	UserID string
	// TokenFunc supplies the current access token. It is called on every
	// dial so reconnects pick up refreshed tokens.
	TokenFunc func() string

	HandshakeTimeout time.Duration
}

// BuildURL assembles the channel endpoint: {base}/ws/{userID}?token={token}.
func BuildURL(cfg Config) (string, error) {
	if cfg.UserID == "" {
		return "", fmt.Errorf("stream: missing user id")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return "", fmt.Errorf("stream: missing base url")
	}
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	u, err := url.Parse(base + "/ws/" + url.PathEscape(cfg.UserID))
	if err != nil {
		return "", err
	}
	if cfg.TokenFunc != nil {
		if token := cfg.TokenFunc(); token != "" {
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}
