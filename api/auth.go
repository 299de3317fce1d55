package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// User is the authenticated account profile.
type User struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login performs the email/password flow: a form-encoded token request,
// then a profile fetch. The refresh cookie is captured by the client jar.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(resp)
	}

	var tokens tokenResponse
	if err := decodeBody(resp, &tokens); err != nil {
		return nil, err
	}
	c.setAccessToken(tokens.AccessToken)

	return c.fetchProfile(ctx)
}

// Refresh exchanges the refresh cookie for a new access token. Called
// automatically on 401, and at startup to restore a prior session.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/refresh", nil)
	if err != nil {
		return "", err
	}
	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.setAccessToken("")
		return "", errorFromResponse(resp)
	}

	var tokens tokenResponse
	if err := decodeBody(resp, &tokens); err != nil {
		return "", err
	}
	c.setAccessToken(tokens.AccessToken)
	return tokens.AccessToken, nil
}

// Logout drops the local session and best-effort invalidates the server
// side one. A failed logout request is logged, not returned.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	c.accessToken = ""
	c.user = nil
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/logout", nil)
	if err != nil {
		return
	}
	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		c.logger.Printf("api: logout request failed: %v", err)
		return
	}
	drain(resp)
}

// CompleteProfile finishes the OAuth signup leg using the short-lived
// completion token, upgrading it to a full session.
func (c *Client) CompleteProfile(ctx context.Context, completionToken string, profile map[string]any) (*User, error) {
	prev := c.AccessToken()
	c.setAccessToken(completionToken)

	var tokens tokenResponse
	if err := c.doJSON(ctx, http.MethodPatch, "/api/v1/complete-profile", profile, &tokens); err != nil {
		c.setAccessToken(prev)
		return nil, err
	}
	c.setAccessToken(tokens.AccessToken)
	return c.fetchProfile(ctx)
}

// UpdateProfile patches the account profile fields.
func (c *Client) UpdateProfile(ctx context.Context, profile map[string]any) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/v1/users/me", profile, nil)
}

// UpdateNotificationPrefs patches the notification preferences.
func (c *Client) UpdateNotificationPrefs(ctx context.Context, prefs map[string]any) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/v1/users/me/notifications", prefs, nil)
}

func (c *Client) fetchProfile(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/users/me", nil, &user); err != nil {
		return nil, fmt.Errorf("api: fetching profile: %w", err)
	}
	c.mu.Lock()
	c.user = &user
	c.mu.Unlock()
	return &user, nil
}

func decodeBody(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}
	return nil
}
