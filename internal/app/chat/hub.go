/*
Package chat implements the WebSocket gateway on top of the ephemeral store.

This file defines the Hub, which tracks the live connections of this process by
socket ID and fans messages out to the sockets of users and room members.
Membership and history live in the store; the Hub only owns connections.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/logx"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/metrics"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/randx"
)

// DefaultDecisionTimeout bounds how long a frame waits for a gate decision.
const DefaultDecisionTimeout = 5 * time.Second

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithDecisionTimeout sets how long a gate hook may take before the action is declined.
func WithDecisionTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.decisionTimeout = d
		}
	}
}

// Hub coordinates all WebSocket clients of the process.
type Hub struct {
	store   *store.Store
	metrics *metrics.Gateway

	decisionTimeout time.Duration

	// mu protects clients and closed.
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool

	// wg tracks running Serve calls so Shutdown can wait for their cleanup.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a Hub serving connections backed by st.
// A nil gw gets an unregistered set of counters.
func NewHub(st *store.Store, gw *metrics.Gateway, opts ...HubOption) *Hub {
	if gw == nil {
		gw = metrics.NewGateway()
	}

	h := &Hub{
		store:           st,
		metrics:         gw,
		decisionTimeout: DefaultDecisionTimeout,
		clients:         make(map[string]*Client),
		logger:          logx.Logger().With().Str("component", "Hub").Logger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Serve runs the connection of grant.User until it closes. It blocks.
func (h *Hub) Serve(conn *websocket.Conn, grant Grant) {
	c := newClient(h, conn, randx.SocketID(), grant.User.ID)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.logger.Info().Msg("Hub is shut down. Rejecting connection.")
		closeMessage := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.clients[c.socketID] = c
	h.wg.Add(1)
	h.mu.Unlock()

	defer h.wg.Done()

	h.store.AddSocket(c.socketID, c.userID)

	// The record may have been dropped with the user's previous last socket.
	if _, ok := h.store.GetUser(c.userID); !ok {
		h.store.PutUser(grant.User)
	}

	h.metrics.Connections.Inc()
	c.logger.Info().Int("clients", h.Len()).Msg("Client connected.")

	go c.WritePump()

	c.sendInit(grant.User.Rooms)

	c.ReadPump()
}

// Len returns the number of live clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// unregister forgets c and stops its writer.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if current, ok := h.clients[c.socketID]; ok && current == c {
		delete(h.clients, c.socketID)
	}
	h.mu.Unlock()

	c.closeSend()
}

// deliver queues payload on the given sockets, skipping except.
func (h *Hub) deliver(socketIDs []string, payload []byte, except string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range socketIDs {
		if id == except {
			continue
		}
		if c, ok := h.clients[id]; ok {
			c.enqueue(payload)
		}
	}
}

// SendToUser sends env to every local socket of userID except exceptSocket.
// It reports whether the user had any registered socket.
func (h *Hub) SendToUser(userID string, env Envelope, exceptSocket string) bool {
	sockets := h.store.GetSockets(userID)
	if len(sockets) == 0 {
		return false
	}

	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(env.Type)).Msg("Error marshaling message for user.")
		return true
	}

	h.deliver(sockets, payload, exceptSocket)
	return true
}

// BroadcastRoom sends env to every socket of every member of roomID except exceptSocket.
func (h *Hub) BroadcastRoom(roomID string, env Envelope, exceptSocket string) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("Error marshaling message for broadcast.")
		return
	}

	for userID := range h.store.GetRoomUsers(roomID) {
		h.deliver(h.store.GetSockets(userID), payload, exceptSocket)
	}
}

// Shutdown stops accepting connections, closes all clients and waits for their
// cleanup until ctx is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info().Msg("Shutting down Hub...")

	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Msg("Hub shutdown complete.")
		return nil
	case <-ctx.Done():
		h.logger.Warn().Int("clients", h.Len()).Msg("Hub shutdown timed out.")
		return ctx.Err()
	}
}
