package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// Client is the authenticated HTTP client for the Synapse backend. The
// access token lives in memory; the refresh token travels in a cookie, so
// the underlying http.Client carries a jar. A 401 on any call triggers a
// single refresh-and-retry before the error is surfaced.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger

	mu          sync.Mutex
	accessToken string
	user        *User
}

// httpDo is a package-level var so tests can mock the transport.
var httpDo = func(c *http.Client, req *http.Request) (*http.Response, error) {
	return c.Do(req)
}

func NewClient(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger: logger,
	}
}

// AccessToken returns the current bearer token ("" when logged out).
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// User returns the profile fetched at login, or nil when logged out.
func (c *Client) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// doJSON issues an authenticated request with a JSON body and decodes the
// JSON response into out (out may be nil). On 401 it refreshes once and
// retries with the new token.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encoding request body: %w", err)
		}
	}

	attempt := func(token string) (*http.Response, error) {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return httpDo(c.httpClient, req)
	}

	resp, err := attempt(c.AccessToken())
	if err != nil {
		return &Error{Kind: KindNetwork, cause: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		token, rerr := c.Refresh(ctx)
		if rerr != nil {
			return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Detail: "session expired"}
		}
		resp, err = attempt(token)
		if err != nil {
			return &Error{Kind: KindNetwork, cause: err}
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}
	return nil
}

// errorFromResponse maps a non-2xx response onto the client error taxonomy.
func errorFromResponse(resp *http.Response) *Error {
	e := &Error{Status: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case resp.StatusCode >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindUnknown
	}
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&detail); err == nil {
		e.Detail = detail.Detail
	}
	return e
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
}
