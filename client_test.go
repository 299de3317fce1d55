package synapse

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/synapse-ai/synapse-client/mockserver"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func startBackend(t *testing.T) (*mockserver.Server, *Client) {
	t.Helper()
	mock := mockserver.NewServer(quietLogger())
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	cfg := NewConfig().
		WithAPIBaseURL(srv.URL).
		WithLogger(quietLogger())

	client, err := Connect(context.Background(), cfg, "demo@synapse.dev", "password")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close(context.Background()) })
	return mock, client
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	mock := mockserver.NewServer(quietLogger())
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	cfg := NewConfig().WithAPIBaseURL(srv.URL).WithLogger(quietLogger())
	if _, err := Connect(context.Background(), cfg, "demo@synapse.dev", "wrong"); err == nil {
		t.Fatal("expected login to fail")
	}
}

func TestSendAndReceiveOverStream(t *testing.T) {
	_, client := startBackend(t)

	conv := client.Session.NewConversation()
	if err := client.Session.Send(context.Background(), conv.ID, "hello"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "the streamed reply", func() bool { return !client.Session.Typing() })

	c, _ := client.Session.Conversation(conv.ID)
	last := c.Messages[len(c.Messages)-1]
	if last.Text != "echo: hello" || last.Thinking {
		t.Errorf("reply not reconciled: %+v", last)
	}
}

func TestClarificationRoundTrip(t *testing.T) {
	mock, client := startBackend(t)
	userID := client.API.User().UUID

	// Script: ack with a job id, then ask for clarification instead of
	// answering.
	mock.ScriptMessages(func(conversationID, content, jobID string) mockserver.Receipt {
		go func() {
			if err := mock.PushClarification(userID, jobID, "Which city?", "Happy to help.", nil); err != nil {
				t.Errorf("pushing clarification: %v", err)
			}
		}()
		return mockserver.Receipt{JobID: jobID, ConversationID: conversationID}
	})

	conv := client.Session.NewConversation()
	if err := client.Session.Send(context.Background(), conv.ID, "book a hotel"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "the clarification", func() bool {
		_, ok := client.Session.PendingClarification()
		return ok
	})
	clar, _ := client.Session.PendingClarification()
	if clar.QueryText != "Which city?" {
		t.Errorf("unexpected clarification %+v", clar)
	}

	client.Session.RespondToClarification(context.Background(), "Lisbon")

	waitFor(t, "the clarification frame", func() bool {
		return len(mock.ClarificationResponses()) == 1
	})
	frame := mock.ClarificationResponses()[0]
	if frame.JobID != clar.JobID || frame.Response != "Lisbon" {
		t.Errorf("unexpected frame %+v", frame)
	}

	// The server finishes the job; the fresh placeholder resolves.
	if err := mock.PushCompleted(userID, conv.ID, clar.JobID, "Booked in Lisbon."); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the completion", func() bool { return !client.Session.Typing() })

	c, _ := client.Session.Conversation(conv.ID)
	last := c.Messages[len(c.Messages)-1]
	if last.Text != "Booked in Lisbon." {
		t.Errorf("completion not applied: %+v", last)
	}
}

func TestExpiredTokenRecoveredMidSession(t *testing.T) {
	mock, client := startBackend(t)

	mock.ExpireAccessTokens()

	// The next call rides the refresh cookie transparently.
	if _, err := client.API.ListConversations(context.Background()); err != nil {
		t.Fatalf("expected a silent refresh, got %v", err)
	}
}

func TestSeededConversationsLoadOnConnect(t *testing.T) {
	mock := mockserver.NewServer(quietLogger())
	mock.SeedConversation("c-1", "Trip planning", time.Now(),
		[2]string{"user", "hi"}, [2]string{"assistant", "hello"})
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	cfg := NewConfig().WithAPIBaseURL(srv.URL).WithLogger(quietLogger())
	client, err := Connect(context.Background(), cfg, "demo@synapse.dev", "password")
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close(context.Background())

	if client.Session.ActiveID() != "c-1" {
		t.Errorf("seeded conversation not active, got %q", client.Session.ActiveID())
	}
	c, ok := client.Session.Conversation("c-1")
	if !ok || len(c.Messages) != 2 {
		t.Fatalf("seeded transcript not loaded: %+v", c)
	}
	if c.Messages[1].Text != "hello" {
		t.Errorf("unexpected transcript: %+v", c.Messages)
	}
}
