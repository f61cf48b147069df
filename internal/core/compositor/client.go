// Package compositor is the sole caller-facing wrapper around the
// external scene compositor: every real scene/source name in the system
// lives here. It holds one persistent WebSocket connection, serializes
// every RPC behind its own mutex (L-COMP), and reconnects with capped
// exponential backoff when a call fails.
package compositor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrUnhealthy is returned once the client has exhausted its reconnect
// budget; it stays in this state until ForceReconnect succeeds.
var ErrUnhealthy = errors.New("compositor client unhealthy: too many consecutive reconnect failures")

// Options configures a Client.
type Options struct {
	Host                  string
	Port                  int
	Password              string
	CallTimeout           time.Duration
	MaxReconnectFailures  int
	OnReconnect           func()
}

// Client is a request/response JSON-RPC-over-WebSocket wrapper around
// the compositor.
type Client struct {
	opts Options
	log  *logrus.Entry

	mu                  sync.Mutex // L-COMP: serializes every RPC and all connection state
	conn                *websocket.Conn
	nextID              atomic.Uint64
	consecutiveFailures int
	unhealthy           bool
}

// New builds a Client. It does not connect until the first call or an
// explicit Connect.
func New(opts Options, log *logrus.Entry) *Client {
	if opts.CallTimeout == 0 {
		opts.CallTimeout = 5 * time.Second
	}
	if opts.MaxReconnectFailures == 0 {
		opts.MaxReconnectFailures = 5
	}
	return &Client{opts: opts, log: log}
}

// Connect establishes the initial WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectLocked(ctx)
}

// Close closes the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ForceReconnect is the operator-triggered recovery path out of the
// unhealthy state (§7, CompositorFatal).
func (c *Client) ForceReconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unhealthy = false
	c.consecutiveFailures = 0
	return c.reconnectLocked(ctx)
}

// Unhealthy reports whether the client has exhausted its reconnect
// budget.
func (c *Client) Unhealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unhealthy
}

func (c *Client) reconnectLocked(ctx context.Context) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	dial := func() (*websocket.Conn, error) {
		u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port), Path: "/"}
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
		return conn, err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 10 * time.Second

	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		return dial()
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(c.opts.MaxReconnectFailures)))

	if err != nil {
		c.consecutiveFailures++
		if c.opts.OnReconnect != nil {
			c.opts.OnReconnect()
		}
		if c.consecutiveFailures >= c.opts.MaxReconnectFailures {
			c.unhealthy = true
		}
		return fmt.Errorf("reconnect to compositor: %w", err)
	}

	c.conn = conn
	c.consecutiveFailures = 0
	if c.opts.OnReconnect != nil {
		c.opts.OnReconnect()
	}
	c.log.Info("connected to compositor")
	return nil
}

// call performs one RPC, retrying once after a reconnect on failure
// (§4.3). It must not be called while already holding mu.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unhealthy {
		return nil, ErrUnhealthy
	}

	result, err := c.doCallLocked(ctx, method, params)
	if err == nil {
		return result, nil
	}

	c.log.WithError(err).WithField("method", method).Warn("compositor call failed, reconnecting")
	if rerr := c.reconnectLocked(ctx); rerr != nil {
		return nil, fmt.Errorf("compositor unreachable: %w", rerr)
	}

	result, err = c.doCallLocked(ctx, method, params)
	if err != nil {
		return nil, fmt.Errorf("compositor call failed after reconnect: %w", err)
	}
	return result, nil
}

func (c *Client) doCallLocked(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.conn == nil {
		if err := c.reconnectLocked(ctx); err != nil {
			return nil, err
		}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	req := request{ID: c.nextID.Add(1), Method: method, Params: raw}

	deadline := time.Now().Add(c.opts.CallTimeout)
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	_ = c.conn.SetReadDeadline(deadline)
	var resp response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %d does not match request id %d", resp.ID, req.ID)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}
