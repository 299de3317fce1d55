package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestLoginSendsFormAndFetchesProfile(t *testing.T) {
	var gotContentType, gotUsername, gotPassword, gotBearer string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/token", func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotUsername = r.PostFormValue("username")
		gotPassword = r.PostFormValue("password")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1", "token_type": "bearer"})
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		gotBearer = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(User{UUID: "u-1", Username: "alice", Email: "alice@example.com"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, quietLogger())
	user, err := c.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatal(err)
	}

	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("expected form encoding, got %q", gotContentType)
	}
	if gotUsername != "alice" || gotPassword != "secret" {
		t.Errorf("credentials not forwarded: %q/%q", gotUsername, gotPassword)
	}
	if gotBearer != "Bearer tok-1" {
		t.Errorf("profile fetch missing bearer, got %q", gotBearer)
	}
	if user.UUID != "u-1" || c.AccessToken() != "tok-1" {
		t.Errorf("login state wrong: user=%+v token=%q", user, c.AccessToken())
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "invalid credentials"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, quietLogger())
	_, err := c.Login(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindUnauthorized {
		t.Errorf("expected KindUnauthorized, got %v", err)
	}
	if apiErr.Detail != "invalid credentials" {
		t.Errorf("detail not decoded, got %q", apiErr.Detail)
	}
}

func TestExpiredTokenRefreshedAndRetriedOnce(t *testing.T) {
	var listCalls, refreshCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh", "token_type": "bearer"})
	})
	mux.HandleFunc("/api/v1/conversations/", func(w http.ResponseWriter, r *http.Request) {
		listCalls++
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "expired"})
			return
		}
		json.NewEncoder(w).Encode([]ConversationSummary{{ID: "c-1", Title: "Chat"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, quietLogger())
	c.setAccessToken("stale")

	convs, err := c.ListConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].ID != "c-1" {
		t.Errorf("unexpected listing: %+v", convs)
	}
	if refreshCalls != 1 || listCalls != 2 {
		t.Errorf("expected one refresh and one retry, got refresh=%d list=%d", refreshCalls, listCalls)
	}
	if c.AccessToken() != "fresh" {
		t.Errorf("token not rotated, got %q", c.AccessToken())
	}
}

func TestFailedRefreshSurfacesUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/v1/conversations/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, quietLogger())
	c.setAccessToken("stale")

	_, err := c.ListConversations(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindUnauthorized {
		t.Errorf("expected KindUnauthorized, got %v", err)
	}
	if c.AccessToken() != "" {
		t.Errorf("token should be cleared after a failed refresh, got %q", c.AccessToken())
	}
}

func TestErrorKindMapping(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusInternalServerError, KindServer},
		{http.StatusBadGateway, KindServer},
		{http.StatusBadRequest, KindUnknown},
		{http.StatusNotFound, KindUnknown},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClient(srv.URL, quietLogger())
		err := c.doJSON(context.Background(), http.MethodGet, "/api/v1/anything", nil, nil)
		srv.Close()

		if Classify(err) != tc.want {
			t.Errorf("status %d: expected kind %v, got %v (%v)", tc.status, tc.want, Classify(err), err)
		}
	}
}

func TestNetworkFailureClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, quietLogger())
	err := c.doJSON(context.Background(), http.MethodGet, "/api/v1/anything", nil, nil)
	if Classify(err) != KindNetwork {
		t.Errorf("expected KindNetwork, got %v (%v)", Classify(err), err)
	}
}

func TestSendMessageBody(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(MessageReceipt{JobID: "job-1", ConversationID: "c-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, quietLogger())
	receipt, err := c.SendMessage(context.Background(), "c-1", "hello", true)
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/v1/conversations/c-1/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody.Content != "hello" || !gotBody.UsePersonalization {
		t.Errorf("unexpected body %+v", gotBody)
	}
	if receipt.JobID != "job-1" {
		t.Errorf("unexpected receipt %+v", receipt)
	}
}

func TestToolsQuery(t *testing.T) {
	var gotBody toolsQueryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tools-query" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "sunny"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, quietLogger())
	answer, err := c.ToolsQuery(context.Background(), "weather?", "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "sunny" {
		t.Errorf("unexpected answer %q", answer)
	}
	if gotBody.Query != "weather?" || gotBody.UserID != "u-1" {
		t.Errorf("unexpected body %+v", gotBody)
	}
}

func TestUploadMediaMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("expected multipart upload, got %q", r.Header.Get("Content-Type"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatal(err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "photo.png" || string(data) != "pixels" {
			t.Errorf("unexpected upload %q: %q", header.Filename, data)
		}
		json.NewEncoder(w).Encode(MediaItem{ID: "m-1", Filename: header.Filename})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, quietLogger())
	item, err := c.UploadMedia(context.Background(), "photo.png", strings.NewReader("pixels"))
	if err != nil {
		t.Fatal(err)
	}
	if item.ID != "m-1" {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestUploadResumeSendsWebhookToken(t *testing.T) {
	var gotToken, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Webhook-Token")
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Fatal(err)
		}
		gotFilename = header.Filename
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("http://unused", quietLogger())
	err := c.UploadResume(context.Background(), srv.URL, "secret", "resume.pdf", strings.NewReader("cv"))
	if err != nil {
		t.Fatal(err)
	}
	if gotToken != "secret" || gotFilename != "resume.pdf" {
		t.Errorf("unexpected webhook request: token=%q filename=%q", gotToken, gotFilename)
	}

	if err := c.UploadResume(context.Background(), "", "", "resume.pdf", strings.NewReader("cv")); err == nil {
		t.Error("missing webhook url should fail")
	}
}

func TestLogoutClearsLocalState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, quietLogger())
	c.setAccessToken("tok")
	c.mu.Lock()
	c.user = &User{UUID: "u-1"}
	c.mu.Unlock()

	c.Logout(context.Background())
	if c.AccessToken() != "" || c.User() != nil {
		t.Error("logout must clear the token and profile")
	}
}
