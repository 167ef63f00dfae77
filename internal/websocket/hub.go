// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub tracks every live session connection.
type Hub struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// stopped is closed when the current run loop exits; nil before the
	// first run.
	stopped chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext processes registrations until ctx is cancelled, then closes
// every connection and returns ctx.Err().
//
// Shutdown is checked first, then lifecycle events, so client state is
// consistent before the next blocking wait.
func (h *Hub) RunWithContext(ctx context.Context) error {
	stopped := make(chan struct{})
	h.mu.Lock()
	h.stopped = stopped
	h.mu.Unlock()
	defer close(stopped)

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Uint64("client_id", client.id).
		Str("session_id", client.SessionID()).
		Int("total_clients", n).
		Msg("websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	client.closeSend()
	if !ok {
		return
	}
	metrics.WSConnections.Dec()
	logging.Info().
		Uint64("client_id", client.id).
		Str("session_id", client.SessionID()).
		Int("total_clients", n).
		Msg("websocket client disconnected")
}

// Running reports whether the run loop is active.
func (h *Hub) Running() bool {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped == nil {
		return false
	}
	select {
	case <-stopped:
		return false
	default:
		return true
	}
}

// Add registers client with the run loop. It reports false when the hub is
// not running, in which case the caller owns the connection.
func (h *Hub) Add(client *Client) bool {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped == nil {
		return false
	}
	select {
	case h.Register <- client:
		return true
	case <-stopped:
		return false
	}
}

// unregister hands client to the run loop, or removes it directly when the
// hub is not running.
func (h *Hub) unregister(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped == nil {
		h.remove(client)
		return
	}
	select {
	case h.Unregister <- client:
	case <-stopped:
		h.remove(client)
	}
}

// Disconnect closes the connection bound to sessionID. It reports whether
// such a connection existed.
func (h *Hub) Disconnect(sessionID string) bool {
	for _, c := range h.sorted() {
		if c.SessionID() == sessionID {
			c.closeSend()
			return true
		}
	}
	return false
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sorted returns the clients in connection order.
func (h *Hub) sorted() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// logGracefulShutdown closes all clients and logs the shutdown. ctx.Err() is
// not logged as an error because cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients tells every client the server is going away and closes
// its queue, in connection order.
func (h *Hub) closeAllClients() int {
	clients := h.sorted()

	h.mu.Lock()
	for _, client := range clients {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.enqueue(Message{Type: MessageTypeShutdown, Data: nil})
		client.closeSend()
		metrics.WSConnections.Dec()
	}
	return len(clients)
}
