// Package mockserver is a gin-based stand-in for the Synapse backend,
// used by the examples and the integration tests. It implements the
// REST contract and the job-update streaming channel with scripted
// fixture logic; it is not a production server.
package mockserver

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Account is one seeded login.
type Account struct {
	Username string
	Password string
	UUID     string
	Email    string
	FullName string
}

type conversationFixture struct {
	ID        string        `json:"uuid"`
	Title     string        `json:"title"`
	Messages  []messageItem `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type messageItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mediaItem struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Receipt is what the message endpoint returns. Leave JobID empty and
// set Response for a synchronous answer; set neither to exercise the
// dangling-placeholder path.
type Receipt struct {
	JobID          string `json:"job_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Response       string `json:"response,omitempty"`
}

// MessageScript decides the receipt for a posted message. jobID is a
// freshly minted id the script may use or discard.
type MessageScript func(conversationID, content, jobID string) Receipt

// ToolsScript decides the tools-query answer; returning an error status
// is done by setting fail to true.
type ToolsScript func(query string) (answer string, fail bool)

// Server holds the fixture state behind the gin routes.
type Server struct {
	router *gin.Engine
	logger *log.Logger

	mu            sync.Mutex
	accounts      map[string]Account // by username
	tokens        map[string]string  // access token -> username
	refresh       map[string]string  // refresh cookie -> username
	conversations map[string]*conversationFixture
	media         []mediaItem
	clarResponses []ClarificationResponse
	conns         map[string]*websocket.Conn // by user uuid

	onMessage MessageScript
	onTools   ToolsScript
}

// NewServer creates a fixture server with one seeded account and a
// default echo script: every posted message gets a job id and an
// immediate COMPLETED frame on the user's stream.
func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "[mockserver] ", log.LstdFlags)
	}
	gin.SetMode(gin.TestMode)

	s := &Server{
		router:        gin.New(),
		logger:        logger,
		accounts:      make(map[string]Account),
		tokens:        make(map[string]string),
		refresh:       make(map[string]string),
		conversations: make(map[string]*conversationFixture),
		conns:         make(map[string]*websocket.Conn),
	}
	s.AddAccount(Account{
		Username: "demo@synapse.dev",
		Password: "password",
		Email:    "demo@synapse.dev",
		FullName: "Demo User",
	})
	s.onMessage = s.defaultMessageScript
	s.onTools = func(query string) (string, bool) {
		return "tool result for: " + query, false
	}
	s.routes()
	return s
}

// Handler exposes the router for httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.router }

// AddAccount seeds a login. A missing UUID is filled in.
func (s *Server) AddAccount(a Account) Account {
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	s.mu.Lock()
	s.accounts[a.Username] = a
	s.mu.Unlock()
	return a
}

// SeedConversation installs a conversation fixture.
func (s *Server) SeedConversation(id, title string, updatedAt time.Time, messages ...[2]string) {
	conv := &conversationFixture{ID: id, Title: title, UpdatedAt: updatedAt}
	for _, m := range messages {
		conv.Messages = append(conv.Messages, messageItem{Role: m[0], Content: m[1]})
	}
	s.mu.Lock()
	s.conversations[id] = conv
	s.mu.Unlock()
}

// ScriptMessages replaces the message-post script.
func (s *Server) ScriptMessages(fn MessageScript) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// ScriptTools replaces the tools-query script.
func (s *Server) ScriptTools(fn ToolsScript) {
	s.mu.Lock()
	s.onTools = fn
	s.mu.Unlock()
}

func (s *Server) routes() {
	r := s.router.Group("/api/v1")

	r.POST("/token", s.handleToken)
	r.POST("/refresh", s.handleRefresh)
	r.POST("/logout", s.handleLogout)
	r.PATCH("/complete-profile", s.handleCompleteProfile)

	auth := r.Group("", s.requireAuth)
	auth.GET("/users/me", s.handleMe)
	auth.PATCH("/users/me", s.handleUpdateProfile)
	auth.PATCH("/users/me/notifications", s.handleUpdateProfile)

	auth.GET("/conversations/", s.handleListConversations)
	auth.POST("/conversations/:id/messages", s.handlePostMessage)
	auth.PATCH("/conversations/:id", s.handleRenameConversation)
	auth.DELETE("/conversations/:id", s.handleDeleteConversation)

	auth.POST("/tools-query", s.handleToolsQuery)

	auth.POST("/media/upload", s.handleUploadMedia)
	auth.GET("/media", s.handleListMedia)
	auth.DELETE("/media/:id", s.handleDeleteMedia)

	s.router.GET("/ws/:userID", s.handleStream)
}

func (s *Server) handleToken(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	s.mu.Lock()
	account, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok || account.Password != password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid credentials"})
		return
	}

	access, refresh := s.issueTokens(username)
	c.SetCookie("refresh_token", refresh, 3600, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"access_token": access, "token_type": "bearer"})
}

func (s *Server) handleRefresh(c *gin.Context) {
	cookie, err := c.Cookie("refresh_token")
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing refresh cookie"})
		return
	}
	s.mu.Lock()
	username, ok := s.refresh[cookie]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "refresh token expired"})
		return
	}

	access, refresh := s.issueTokens(username)
	c.SetCookie("refresh_token", refresh, 3600, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"access_token": access, "token_type": "bearer"})
}

func (s *Server) handleLogout(c *gin.Context) {
	if cookie, err := c.Cookie("refresh_token"); err == nil {
		s.mu.Lock()
		delete(s.refresh, cookie)
		s.mu.Unlock()
	}
	c.SetCookie("refresh_token", "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCompleteProfile(c *gin.Context) {
	// The completion token doubles as a bearer token in the fixture.
	account, ok := s.accountFor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid completion token"})
		return
	}
	var profile map[string]any
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if name, ok := profile["full_name"].(string); ok {
		s.mu.Lock()
		account.FullName = name
		s.accounts[account.Username] = account
		s.mu.Unlock()
	}
	access, _ := s.issueTokens(account.Username)
	c.JSON(http.StatusOK, gin.H{"access_token": access, "token_type": "bearer"})
}

func (s *Server) handleMe(c *gin.Context) {
	account := c.MustGet("account").(Account)
	c.JSON(http.StatusOK, gin.H{
		"uuid":      account.UUID,
		"username":  account.Username,
		"email":     account.Email,
		"full_name": account.FullName,
	})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListConversations(c *gin.Context) {
	s.mu.Lock()
	out := make([]conversationFixture, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, *conv)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	c.JSON(http.StatusOK, out)
}

func (s *Server) handlePostMessage(c *gin.Context) {
	conversationID := c.Param("id")

	var req struct {
		Content            string `json:"content"`
		UsePersonalization bool   `json:"use_personalization"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		conv = &conversationFixture{ID: conversationID, Title: "New Chat"}
		s.conversations[conversationID] = conv
	}
	conv.Messages = append(conv.Messages, messageItem{Role: "user", Content: req.Content})
	conv.UpdatedAt = time.Now()
	script := s.onMessage
	s.mu.Unlock()

	receipt := script(conversationID, req.Content, uuid.NewString())
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) handleRenameConversation(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "conversation not found"})
		return
	}
	conv.Title = req.Title
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[c.Param("id")]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "conversation not found"})
		return
	}
	delete(s.conversations, c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleToolsQuery(c *gin.Context) {
	var req struct {
		Query  string `json:"query"`
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	script := s.onTools
	s.mu.Unlock()

	answer, fail := script(req.Query)
	if fail {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "tools backend unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

func (s *Server) handleUploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "missing file field"})
		return
	}
	item := mediaItem{
		ID:         uuid.NewString(),
		Filename:   file.Filename,
		URL:        fmt.Sprintf("/media/%s", file.Filename),
		UploadedAt: time.Now(),
	}
	s.mu.Lock()
	s.media = append(s.media, item)
	s.mu.Unlock()
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleListMedia(c *gin.Context) {
	s.mu.Lock()
	out := append([]mediaItem(nil), s.media...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteMedia(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.media {
		if item.ID == id {
			s.media = append(s.media[:i], s.media[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "media not found"})
}

func (s *Server) requireAuth(c *gin.Context) {
	account, ok := s.accountFor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "not authenticated"})
		return
	}
	c.Set("account", account)
	c.Next()
}

func (s *Server) accountFor(c *gin.Context) (Account, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return Account{}, false
	}
	token := header[len(prefix):]
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.tokens[token]
	if !ok {
		return Account{}, false
	}
	account, ok := s.accounts[username]
	return account, ok
}

func (s *Server) issueTokens(username string) (access, refresh string) {
	access = uuid.NewString()
	refresh = uuid.NewString()
	s.mu.Lock()
	s.tokens[access] = username
	s.refresh[refresh] = username
	s.mu.Unlock()
	return access, refresh
}

// ExpireAccessTokens invalidates every outstanding access token while
// keeping refresh cookies valid, for exercising the 401-retry path.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.tokens = make(map[string]string)
	s.mu.Unlock()
}
