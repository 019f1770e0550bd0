package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultReconnectDelay = 5 * time.Second
	defaultAPITimeout     = 10 * time.Second
)

// Options configures the connection to a OneBot forward WebSocket endpoint.
type Options struct {
	URL            string
	AccessToken    string
	ReconnectDelay time.Duration
	APITimeout     time.Duration
}

// MessageHandler receives every inbound message event. It is called from the
// read loop and must not block.
type MessageHandler func(ctx context.Context, ev *MessageEvent)

// Client maintains a forward WebSocket connection to a OneBot v11
// implementation (go-cqhttp, Lagrange, NapCat). Events flow in through a
// handler; API calls flow out as action frames matched to their responses
// by an echo token.
type Client struct {
	opts   Options
	logger *zap.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan actionResponse
}

type actionRequest struct {
	Action string `json:"action"`
	Params any    `json:"params"`
	Echo   string `json:"echo"`
}

type actionResponse struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Msg     string          `json:"msg"`
	Wording string          `json:"wording"`
	Data    json.RawMessage `json:"data"`
	Echo    string          `json:"echo"`
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.APITimeout <= 0 {
		opts.APITimeout = defaultAPITimeout
	}
	return &Client{
		opts:    opts,
		logger:  logger,
		pending: make(map[string]chan actionResponse),
	}
}

// Run connects to the endpoint and keeps the connection alive until ctx is
// cancelled, redialing after ReconnectDelay whenever the link drops.
func (c *Client) Run(ctx context.Context, handler MessageHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Error("onebot connect failed", zap.String("url", c.opts.URL), zap.Error(err))
			if !c.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		c.logger.Info("onebot connected", zap.String("url", c.opts.URL))
		c.setConn(conn)

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		err = c.readLoop(ctx, conn, handler)
		close(done)
		c.setConn(nil)
		c.failPending()
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("onebot disconnected, will reconnect",
			zap.Error(err),
			zap.Duration("delay", c.opts.ReconnectDelay))
		if !c.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.AccessToken != "" {
		header.Set("Authorization", "Bearer "+c.opts.AccessToken)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.URL, header)
	return conn, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, handler MessageHandler) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(ctx, data, handler)
	}
}

// dispatch routes one inbound frame: action responses resolve their waiting
// caller, message events go to the handler, everything else (heartbeats,
// notices) is dropped.
func (c *Client) dispatch(ctx context.Context, data []byte, handler MessageHandler) {
	var probe struct {
		PostType string `json:"post_type"`
		Echo     string `json:"echo"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		c.logger.Warn("onebot frame is not valid JSON", zap.ByteString("frame", data), zap.Error(err))
		return
	}
	if probe.Echo != "" {
		var resp actionResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Warn("bad action response frame", zap.ByteString("frame", data), zap.Error(err))
			return
		}
		c.resolve(resp)
		return
	}
	if probe.PostType != postTypeMessage {
		return
	}
	var ev MessageEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.logger.Warn("bad message event frame", zap.ByteString("frame", data), zap.Error(err))
		return
	}
	handler(ctx, &ev)
}

func (c *Client) resolve(resp actionResponse) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.Echo]
	if ok {
		delete(c.pending, resp.Echo)
	}
	c.pendingMu.Unlock()
	if !ok {
		c.logger.Debug("action response with no waiter", zap.String("echo", resp.Echo))
		return
	}
	ch <- resp
}

// failPending wakes every caller still waiting on a response when the
// connection drops; their channels are closed so they fail fast instead of
// running out their timeout.
func (c *Client) failPending() {
	c.pendingMu.Lock()
	for echo, ch := range c.pending {
		delete(c.pending, echo)
		close(ch)
	}
	c.pendingMu.Unlock()
}

// CallAction sends one API action frame and waits for the matching response.
func (c *Client) CallAction(ctx context.Context, action string, params any) (json.RawMessage, error) {
	conn := c.currentConn()
	if conn == nil {
		return nil, errors.New("onebot connection is down")
	}

	echo := uuid.New().String()
	ch := make(chan actionResponse, 1)
	c.pendingMu.Lock()
	c.pending[echo] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, echo)
		c.pendingMu.Unlock()
	}()

	if err := c.writeJSON(conn, actionRequest{Action: action, Params: params, Echo: echo}); err != nil {
		return nil, fmt.Errorf("send %s action: %w", action, err)
	}

	timer := time.NewTimer(c.opts.APITimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%s action timed out after %s", action, c.opts.APITimeout)
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s action aborted: connection closed", action)
		}
		if resp.Retcode != 0 {
			reason := resp.Msg
			if reason == "" {
				reason = resp.Wording
			}
			if reason == "" {
				reason = resp.Status
			}
			return nil, fmt.Errorf("%s action failed: retcode=%d %s", action, resp.Retcode, reason)
		}
		return resp.Data, nil
	}
}

type sendMessageParams struct {
	MessageType string    `json:"message_type"`
	UserID      int64     `json:"user_id,omitempty"`
	GroupID     int64     `json:"group_id,omitempty"`
	Message     []Segment `json:"message"`
}

// SendMessage delivers the given segments to a chat via the send_msg action.
func (c *Client) SendMessage(ctx context.Context, target ChatTarget, segments ...Segment) error {
	params := sendMessageParams{MessageType: target.MessageType, Message: segments}
	switch target.MessageType {
	case MessageTypeGroup:
		params.GroupID = target.GroupID
	case MessageTypePrivate:
		params.UserID = target.UserID
	default:
		return fmt.Errorf("unknown message type %q", target.MessageType)
	}
	_, err := c.CallAction(ctx, "send_msg", params)
	return err
}

func (c *Client) writeJSON(conn *websocket.Conn, v any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) currentConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

// sleep waits out the reconnect delay; it reports false when ctx is
// cancelled first.
func (c *Client) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.opts.ReconnectDelay):
		return true
	}
}
