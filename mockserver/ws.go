package mockserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ClarificationResponse is one clarification_response frame received
// from a client, recorded for test assertions.
type ClarificationResponse struct {
	Type     string `json:"type"`
	JobID    string `json:"job_id"`
	Response string `json:"response"`
}

// jobUpdate is the frame pushed on the streaming channel. Fields mirror
// the backend wire contract.
type jobUpdate struct {
	ConversationID  string         `json:"conversation_id,omitempty"`
	JobID           string         `json:"job_id,omitempty"`
	Status          string         `json:"status"`
	Result          map[string]any `json:"result,omitempty"`
	InitialResponse string         `json:"initial_response,omitempty"`
	Clarification   map[string]any `json:"clarification_request,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleStream(c *gin.Context) {
	userID := c.Param("userID")
	token := c.Query("token")

	s.mu.Lock()
	_, authed := s.tokens[token]
	s.mu.Unlock()
	if !authed {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Printf("upgrade failed for %s: %v", userID, err)
		return
	}

	s.mu.Lock()
	if prev, ok := s.conns[userID]; ok {
		prev.Close()
	}
	s.conns[userID] = conn
	s.mu.Unlock()

	// Read loop: the only inbound frames are clarification responses.
	go func() {
		defer func() {
			s.mu.Lock()
			if s.conns[userID] == conn {
				delete(s.conns, userID)
			}
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			var frame ClarificationResponse
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			s.logger.Printf("clarification response for job %s: %q", frame.JobID, frame.Response)
			s.mu.Lock()
			s.clarResponses = append(s.clarResponses, frame)
			s.mu.Unlock()
		}
	}()
}

// ClarificationResponses returns every clarification_response frame
// received so far.
func (s *Server) ClarificationResponses() []ClarificationResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ClarificationResponse(nil), s.clarResponses...)
}

// PushCompleted delivers a COMPLETED job update to the user's stream.
func (s *Server) PushCompleted(userID, conversationID, jobID, response string) error {
	return s.push(userID, jobUpdate{
		ConversationID: conversationID,
		JobID:          jobID,
		Status:         "COMPLETED",
		Result:         map[string]any{"response": response},
	})
}

// PushClarification delivers an AWAITING_CLARIFICATION update. An empty
// initialResponse leaves the interim text out of the frame.
func (s *Server) PushClarification(userID, jobID, queryText, initialResponse string, options []string) error {
	clar := map[string]any{"job_id": jobID, "query_text": queryText}
	if len(options) > 0 {
		clar["options"] = options
	}
	return s.push(userID, jobUpdate{
		JobID:           jobID,
		Status:          "AWAITING_CLARIFICATION",
		InitialResponse: initialResponse,
		Clarification:   clar,
	})
}

// PushRaw delivers an arbitrary frame, for exercising malformed-payload
// and unknown-status handling.
func (s *Server) PushRaw(userID string, payload []byte) error {
	conn, err := s.connFor(userID)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// CloseStream drops the user's socket server-side, for exercising the
// reconnect path.
func (s *Server) CloseStream(userID string) {
	s.mu.Lock()
	conn, ok := s.conns[userID]
	delete(s.conns, userID)
	s.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (s *Server) push(userID string, u jobUpdate) error {
	conn, err := s.connFor(userID)
	if err != nil {
		return err
	}
	return conn.WriteJSON(u)
}

func (s *Server) connFor(userID string) (*websocket.Conn, error) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		conn, ok := s.conns[userID]
		s.mu.Unlock()
		if ok {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, errNoStream(userID)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// anyStream waits for any user's socket to come up and returns its id.
func (s *Server) anyStream() (string, error) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		var userID string
		for id := range s.conns {
			userID = id
			break
		}
		s.mu.Unlock()
		if userID != "" {
			return userID, nil
		}
		if time.Now().After(deadline) {
			return "", errNoStream("any")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type errNoStream string

func (e errNoStream) Error() string {
	return "mockserver: no open stream for user " + string(e)
}

// defaultMessageScript acknowledges with a job id and echoes the
// message back as a COMPLETED frame shortly after.
func (s *Server) defaultMessageScript(conversationID, content, jobID string) Receipt {
	go func() {
		userID, err := s.anyStream()
		if err != nil {
			s.logger.Printf("no stream open, dropping completion for job %s", jobID)
			return
		}
		response := "echo: " + content
		if err := s.PushCompleted(userID, conversationID, jobID, response); err != nil {
			s.logger.Printf("pushing completion for job %s: %v", jobID, err)
			return
		}
		s.mu.Lock()
		if conv, ok := s.conversations[conversationID]; ok {
			conv.Messages = append(conv.Messages, messageItem{Role: "assistant", Content: response})
			conv.UpdatedAt = time.Now()
		}
		s.mu.Unlock()
	}()
	return Receipt{JobID: jobID, ConversationID: conversationID}
}
