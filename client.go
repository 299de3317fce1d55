// Package synapse wires the HTTP API client, the job-update stream and
// the chat session into one connected client for the Synapse assistant
// backend.
package synapse

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/synapse-ai/synapse-client/api"
	"github.com/synapse-ai/synapse-client/chat"
	"github.com/synapse-ai/synapse-client/stream"
)

// Client is one logged-in Synapse session: the REST client, the live
// update subscription and the reconciling chat session, plus an optional
// cron scheduler that re-fetches conversations periodically.
type Client struct {
	API     *api.Client
	Session *chat.Session

	sub       *stream.Subscription
	scheduler *cron.Cron
	cancel    context.CancelFunc
	logger    *log.Logger
}

// Connect logs in, opens the streaming channel, loads the conversation
// list and starts the update loop. The returned client is ready for
// Session calls; Close tears everything down.
func Connect(ctx context.Context, cfg *Config, username, password string) (*Client, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[synapse] ", log.LstdFlags)
	}

	apiClient := api.NewClient(cfg.APIBaseURL, logger)
	user, err := apiClient.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("synapse: login: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sub := stream.Subscribe(runCtx, stream.Config{
		BaseURL:   cfg.streamBase(),
		UserID:    user.UUID,
		TokenFunc: apiClient.AccessToken,
	}, logger)

	session := chat.NewSession(apiClient, sub, cfg.Cache, user.UUID, logger)
	if err := session.LoadConversations(ctx); err != nil {
		logger.Printf("synapse: initial conversation load failed: %v", err)
	}

	c := &Client{
		API:     apiClient,
		Session: session,
		sub:     sub,
		cancel:  cancel,
		logger:  logger,
	}
	go session.Run(runCtx, sub.Updates())

	if cfg.RefreshSchedule != "" {
		c.scheduler = cron.New()
		_, err := c.scheduler.AddFunc(cfg.RefreshSchedule, func() {
			if err := session.LoadConversations(context.Background()); err != nil {
				logger.Printf("synapse: scheduled refresh failed: %v", err)
			}
		})
		if err != nil {
			c.close(ctx)
			return nil, fmt.Errorf("synapse: invalid refresh schedule %q: %w", cfg.RefreshSchedule, err)
		}
		c.scheduler.Start()
	}

	return c, nil
}

// Close logs out and tears down the subscription, the update loop and
// the scheduler. Safe to call once.
func (c *Client) Close(ctx context.Context) {
	c.close(ctx)
	c.API.Logout(ctx)
}

func (c *Client) close(ctx context.Context) {
	if c.scheduler != nil {
		stopped := c.scheduler.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		}
	}
	c.cancel()
	if err := c.sub.Close(); err != nil {
		c.logger.Printf("synapse: closing stream: %v", err)
	}
}
