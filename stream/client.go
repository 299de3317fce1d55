package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a live connection to the per-user job-update channel.
// Updates are delivered on Events in arrival order; the client never
// reorders or buffers beyond the channel capacity. Malformed frames are
// reported on Errors and dropped.
type Client struct {
	conn   *websocket.Conn
	events chan Update
	errors chan error

	sendCh chan any
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func Dial(ctx context.Context, cfg Config, headers http.Header) (*Client, error) {
	u, err := BuildURL(cfg)
	if err != nil {
		return nil, err
	}
	if headers == nil {
		headers = http.Header{}
	}

	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := websocket.Dialer{
		HandshakeTimeout: timeout,
	}
	conn, _, err := d.DialContext(ctx, u, headers)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		events: make(chan Update, 64),
		errors: make(chan error, 16),
		sendCh: make(chan any, 16),
		done:   make(chan struct{}),
	}
	c.startLoops(ctx)
	return c, nil
}

func (c *Client) Events() <-chan Update { return c.events }
func (c *Client) Errors() <-chan error  { return c.errors }

// IsOpen reports whether the connection has not been closed locally.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		// sendCh stays open so a send racing this close can never hit a
		// closed channel; done unblocks the writer loop and any senders.
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"), time.Now().Add(250*time.Millisecond))
		err = c.conn.Close()
	})
	return err
}

func (c *Client) startLoops(ctx context.Context) {
	// Writer loop
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case msg := <-c.sendCh:
				if err := c.conn.WriteJSON(msg); err != nil {
					c.tryEmitErr(err)
					return
				}
			}
		}
	}()

	// Reader loop. Parse failures are dropped after reporting; they must
	// never terminate the connection or reach the reconciler. Events is
	// closed when the connection dies; Errors is left to the collector
	// since the writer loop may still report on it.
	go func() {
		defer close(c.events)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, b, err := c.conn.ReadMessage()
			if err != nil {
				c.tryEmitErr(err)
				c.markClosed()
				return
			}

			u, err := decodeUpdate(b)
			if err != nil {
				c.tryEmitErr(err)
				continue
			}

			select {
			case c.events <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Client) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Client) tryEmitErr(err error) {
	if err == nil {
		return
	}
	select {
	case c.errors <- err:
	default:
	}
}

// SendClarificationResponse answers a pending clarification over the
// channel, tagged with the job that asked for it.
func (c *Client) SendClarificationResponse(ctx context.Context, jobID, response string) error {
	return c.send(ctx, clarificationResponse{
		Type:     "clarification_response",
		JobID:    jobID,
		Response: response,
	})
}

func (c *Client) send(ctx context.Context, v any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("stream: client closed")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("stream: client closed")
	case c.sendCh <- v:
		return nil
	}
}
