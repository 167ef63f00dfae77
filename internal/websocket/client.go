// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize bounds one inbound frame. Layout frames for a
	// long feed are the largest messages clients send.
	DefaultMaxMessageSize = 64 * 1024

	// DefaultSendBuffer is the per-client outbound queue length.
	DefaultSendBuffer = 256
)

// Config holds per-connection limits.
type Config struct {
	MaxMessageSize int64
	SendBuffer     int
}

// clientIDCounter generates unique, monotonically increasing IDs for clients.
var clientIDCounter atomic.Uint64

// Client is one websocket connection driving one feed session. It is the
// session's feed.Sink: render, command and notice output is queued on send
// and written by writePump.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	cfg  Config

	mu      sync.Mutex
	send    chan Message
	closed  bool
	session *feed.Session
	release func()

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new Client with a unique ID.
func NewClient(hub *Hub, conn *websocket.Conn, cfg Config) *Client {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:     clientIDCounter.Add(1),
		hub:    hub,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan Message, cfg.SendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// SessionID returns the bound session id, or "" before Bind.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

// Bind attaches the session this connection drives. release is called once
// when the connection ends and should close the session.
func (c *Client) Bind(s *feed.Session, reactions []string, release func()) {
	c.mu.Lock()
	c.session = s
	c.release = release
	c.mu.Unlock()

	c.enqueue(Message{Type: MessageTypeSession, Data: SessionData{
		SessionID: s.ID(),
		Surface:   string(s.Surface()),
		OwnerID:   s.OwnerID(),
		Reactions: reactions,
	}})
}

// Render implements feed.Sink.
func (c *Client) Render(state feed.RenderState) {
	c.enqueue(Message{Type: MessageTypeRender, Data: state})
}

// Command implements feed.Sink.
func (c *Client) Command(cmd feed.MediaCommand) {
	c.enqueue(Message{Type: MessageTypeCommand, Data: cmd})
}

// Notice implements feed.Sink.
func (c *Client) Notice(n feed.Notice) {
	c.enqueue(Message{Type: MessageTypeNotice, Data: n})
}

// enqueue never blocks; a client that cannot keep up loses messages rather
// than stalling the session.
func (c *Client) enqueue(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		logging.Warn().
			Uint64("client_id", c.id).
			Str("message_type", msg.Type).
			Msg("websocket send buffer full, dropping message")
		return false
	}
}

// closeSend closes the outbound queue. writePump then sends a close frame.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// finish releases the session exactly once.
func (c *Client) finish() {
	c.cancel()
	c.mu.Lock()
	release := c.release
	c.release = nil
	c.mu.Unlock()
	if release != nil {
		release()
	}
}

// Abort discards a client that never started: the session is released and
// the connection closed.
func (c *Client) Abort() {
	c.finish()
	_ = c.conn.Close()
}

// readPump pumps messages from the websocket connection into the session.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.finish()
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	in, err := DecodeInbound(data)
	if err != nil {
		metrics.WSMessagesReceived.WithLabelValues("invalid").Inc()
		c.enqueue(Message{Type: MessageTypeError, Data: ErrorData{
			Code:    CodeInvalidMessage,
			Message: "message is not valid JSON",
		}})
		return
	}

	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return
	}

	result, err := Dispatch(c.ctx, s, in)
	if err != nil {
		metrics.WSMessagesReceived.WithLabelValues("invalid").Inc()
		c.enqueue(Message{Type: MessageTypeError, Data: ErrorData{
			Seq:     in.Seq,
			Op:      in.Type,
			Code:    ErrorCode(err),
			Message: err.Error(),
		}})
		return
	}
	metrics.WSMessagesReceived.WithLabelValues(in.Type).Inc()

	switch {
	case in.Type == MessageTypePing:
		c.enqueue(Message{Type: MessageTypePong, Data: AckData{Seq: in.Seq, Op: in.Type}})
	case in.Seq != 0 || result != nil:
		c.enqueue(Message{Type: MessageTypeAck, Data: AckData{Seq: in.Seq, Op: in.Type, Result: result}})
	}
}

// writePump pumps messages from the send queue to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}

			data, err := MarshalMessage(message)
			if err != nil {
				metrics.WSErrors.WithLabelValues("encode").Inc()
				logging.Error().Err(err).Str("message_type", message.Type).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}
			metrics.WSMessagesSent.WithLabelValues(message.Type).Inc()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
