package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cenkalti/backoff/v4"
)

// Subscription keeps one job-update channel alive for the life of its
// context, redialing with exponential backoff when the connection drops.
// Updates from successive connections are merged onto a single channel so
// consumers see one ordered stream. Cancelling the context tears the
// subscription down deterministically; Updates is closed once the last
// connection is gone.
type Subscription struct {
	cfg    Config
	logger *log.Logger

	updates chan Update
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	current *Client
}

func Subscribe(ctx context.Context, cfg Config, logger *log.Logger) *Subscription {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		cfg:     cfg,
		logger:  logger,
		updates: make(chan Update, 64),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Updates delivers decoded frames in arrival order across reconnects.
func (s *Subscription) Updates() <-chan Update { return s.updates }

// IsOpen reports whether a live connection is currently established.
func (s *Subscription) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.IsOpen()
}

// SendClarificationResponse forwards to the live connection, if any.
func (s *Subscription) SendClarificationResponse(ctx context.Context, jobID, response string) error {
	s.mu.Lock()
	c := s.current
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("stream: no live connection")
	}
	return c.SendClarificationResponse(ctx, jobID, response)
}

// Close cancels the subscription and waits for the connection loop to exit.
func (s *Subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)

	for {
		c, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Printf("stream: giving up on channel: %v", err)
			}
			return
		}

		s.setCurrent(c)
		s.pump(ctx, c)
		s.setCurrent(nil)
		_ = c.Close()

		if ctx.Err() != nil {
			return
		}
		s.logger.Printf("stream: connection lost, reconnecting")
	}
}

func (s *Subscription) dial(ctx context.Context) (*Client, error) {
	var c *Client
	op := func() error {
		cc, err := Dial(ctx, s.cfg, nil)
		if err != nil {
			s.logger.Printf("stream: dial failed: %v", err)
			return err
		}
		c = cc
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry until the context is cancelled
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return c, nil
}

// pump forwards one connection's events until it dies or the context ends.
// Decode errors are logged and skipped; transport errors end the
// connection and trigger a redial.
func (s *Subscription) pump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-c.Events():
			if !ok {
				return
			}
			select {
			case s.updates <- u:
			case <-ctx.Done():
				return
			}
		case err, ok := <-c.Errors():
			if !ok {
				return
			}
			if errors.Is(err, ErrBadPayload) {
				s.logger.Printf("stream: dropping frame: %v", err)
				continue
			}
			s.logger.Printf("stream: channel error: %v", err)
			return
		}
	}
}

func (s *Subscription) setCurrent(c *Client) {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}
