/*
Package chat implements the WebSocket gateway on top of the ephemeral store.

This file defines the Client struct, representing one WebSocket connection (one socket)
of a user. It runs the read and write loops and translates inbound frames into store
operations guarded by the gate hooks.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/errs"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/logx"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/randx"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/req"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// MaxContentBytes is the maximum allowed size (in bytes) of chat and peer text.
	MaxContentBytes = 5000

	// sendBuffer is the capacity of the outbound queue of a client.
	sendBuffer = 256
)

// Client represents an active WebSocket connection and its associated user.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	socketID string
	userID   string

	// ctx is cancelled when the connection goes away; pending gate decisions are abandoned.
	ctx    context.Context
	cancel context.CancelFunc

	// send queues messages waiting to be written. sendMu guards closing it.
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	logger zerolog.Logger
}

func newClient(h *Hub, conn *websocket.Conn, socketID, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		hub:      h,
		conn:     conn,
		socketID: socketID,
		userID:   userID,
		ctx:      ctx,
		cancel:   cancel,
		send:     make(chan []byte, sendBuffer),
		logger: logx.Logger().With().
			Str("socket_id", socketID).
			Str("user_id", userID).
			Logger(),
	}
}

// SocketID returns the identifier of the connection.
func (c *Client) SocketID() string {
	return c.socketID
}

// enqueue queues payload without blocking. A full queue drops the message.
func (c *Client) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message.")
		return false
	}
}

// closeSend closes the outbound queue once; the writer then closes the connection.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// ReadPump reads frames from the connection until it fails, then cleans up.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

// cleanupOnDisconnect deregisters the socket. When it was the user's last one,
// the user leaves every room and the remaining members are told.
func (c *Client) cleanupOnDisconnect() {
	c.cancel()
	c.hub.unregister(c)

	dep := c.hub.store.DisconnectSocket(c.socketID, c.userID)
	if dep.Remaining {
		c.logger.Info().Msg("Socket closed. User still connected elsewhere.")
	} else {
		for _, roomID := range dep.Left {
			// A reconnect may already have rejoined and announced the user.
			if c.isMember(roomID) {
				continue
			}
			c.hub.BroadcastRoom(roomID, Envelope{
				Type:    TypeUserLeft,
				Room:    roomID,
				User:    c.userID,
				Profile: dep.Profile,
			}, "")
		}
		c.logger.Info().Int("rooms_left", len(dep.Left)).Msg("Last socket closed. User left all rooms.")
	}

	if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued messages to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one queued message. A closed queue sends a close frame.
// Returns false if the WritePump loop should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		closeMessage := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic Ping. Returns false if the write failed.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// sendMessage marshals env and queues it for this socket only.
func (c *Client) sendMessage(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		c.logger.Error().Err(err).Str("type", string(env.Type)).Msg("Error marshaling data for client")
		return
	}
	c.enqueue(payload)
}

// SendError sends a TypeError message to this socket.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	c.sendMessage(Envelope{
		Type:  TypeError,
		Error: &ErrorPayload{Code: code, Message: message},
	})
}

// processInboundMessage decodes a frame and dispatches it by type.
func (c *Client) processInboundMessage(messageBytes []byte) {
	var frame Frame
	if customErr := req.BindFrame(messageBytes, &frame); customErr != nil {
		c.logger.Warn().Int("size", len(messageBytes)).Msg("Client sent invalid JSON")
		c.SendError(customErr)
		return
	}

	c.hub.metrics.Frames.WithLabelValues(string(frame.Type)).Inc()

	var err error
	switch frame.Type {
	case TypeJoin:
		err = c.handleJoin(frame)
	case TypeLeave:
		err = c.handleLeave(frame)
	case TypeChat:
		err = c.handleChat(frame)
	case TypeHistory:
		err = c.handleHistory(frame)
	case TypePeer:
		err = c.handlePeer(frame)
	case TypeToken:
		err = c.handleToken()
	default:
		c.logger.Warn().Str("msg_type", string(frame.Type)).Msg("Client sent unsupported message type")
		err = errs.NewError(errs.ErrUnsupportedMessageType, frame.Type)
	}

	if err != nil {
		c.SendError(err)
	}
}

// decide asks a gate hook and waits for its decision within the hub's timeout.
func (c *Client) decide(hook string, ask func(context.Context) *store.Future[store.Decision]) store.Decision {
	ctx, cancel := context.WithTimeout(c.ctx, c.hub.decisionTimeout)
	defer cancel()

	d := store.AwaitDecision(ctx, ask(ctx))
	c.hub.metrics.Decisions.WithLabelValues(hook, d.String()).Inc()

	if d == store.DecisionTimedOut {
		c.logger.Warn().Str("hook", hook).Dur("timeout", c.hub.decisionTimeout).Msg("Gate decision timed out.")
	}
	return d
}

// decisionError maps a non-permitting decision to the error reported to the client.
func decisionError(d store.Decision, declined int) error {
	switch d {
	case store.DecisionPermitted:
		return nil
	case store.DecisionDeclined:
		return errs.NewError(declined)
	default:
		return errs.NewError(errs.ErrDecisionTimeout)
	}
}

// identity is the gate view of this connection.
func (c *Client) identity() store.Conn {
	return store.Conn{SocketID: c.socketID, UserID: c.userID}
}

// joinRoom runs the join gate, adds the user and announces a new member to the room.
func (c *Client) joinRoom(roomID string, since int64) (RoomState, error) {
	action := store.Action{Room: roomID}
	d := c.decide("join", func(ctx context.Context) *store.Future[store.Decision] {
		return c.hub.store.CanJoin(ctx, c.identity(), action)
	})
	if err := decisionError(d, errs.ErrJoinDeclined); err != nil {
		return RoomState{}, err
	}

	st := c.hub.store
	if alreadyMember := st.AddUserToRoom(c.userID, roomID); !alreadyMember {
		env := Envelope{Type: TypeUserJoined, Room: roomID, User: c.userID}
		if u, ok := st.GetUser(c.userID); ok {
			env.Profile = &u.Public
		}
		c.hub.BroadcastRoom(roomID, env, c.socketID)
	}

	return c.roomState(roomID, since), nil
}

func (c *Client) roomState(roomID string, since int64) RoomState {
	return RoomState{
		ID:       roomID,
		Users:    c.hub.store.GetRoomUsers(roomID),
		Messages: c.hub.store.GetLog(roomID, since),
	}
}

// isMember reports whether the user of this client is in roomID.
func (c *Client) isMember(roomID string) bool {
	rooms, ok := c.hub.store.GetUserRooms(c.userID)
	return ok && slices.Contains(rooms, roomID)
}

// sendInit joins the default rooms and sends the initial state of every room the user is in.
func (c *Client) sendInit(defaultRooms []string) {
	for _, roomID := range defaultRooms {
		if _, err := c.joinRoom(roomID, 0); err != nil {
			c.logger.Info().Err(err).Str("room_id", roomID).Msg("Default room not joined.")
		}
	}

	rooms, _ := c.hub.store.GetUserRooms(c.userID)
	states := make([]RoomState, 0, len(rooms))
	for _, roomID := range rooms {
		states = append(states, c.roomState(roomID, 0))
	}

	env := Envelope{Type: TypeInit, User: c.userID, Rooms: states}
	if u, ok := c.hub.store.GetUser(c.userID); ok {
		env.Profile = &u.Public
	}
	c.sendMessage(env)
}

func (c *Client) handleJoin(f Frame) error {
	if f.Room == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	state, err := c.joinRoom(f.Room, f.Since)
	if err != nil {
		return err
	}

	c.sendMessage(Envelope{Type: TypeJoin, Room: f.Room, State: &state})
	return nil
}

func (c *Client) handleLeave(f Frame) error {
	if f.Room == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if wasAbsent, _ := c.hub.store.RemoveUserFromRoom(c.userID, f.Room); wasAbsent {
		return errs.NewError(errs.ErrNotInRoom)
	}

	c.hub.BroadcastRoom(f.Room, Envelope{Type: TypeUserLeft, Room: f.Room, User: c.userID}, "")

	// Membership belongs to the user, so every socket of the user is told.
	c.hub.SendToUser(c.userID, Envelope{Type: TypeLeave, Room: f.Room}, "")
	return nil
}

func (c *Client) handleChat(f Frame) error {
	if f.Room == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if len(f.Message) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}
	if !c.isMember(f.Room) {
		return errs.NewError(errs.ErrNotInRoom)
	}

	action := store.Action{Room: f.Room, Message: f.Message}
	d := c.decide("chat", func(ctx context.Context) *store.Future[store.Decision] {
		return c.hub.store.CanChat(ctx, c.identity(), action)
	})
	if err := decisionError(d, errs.ErrChatDeclined); err != nil {
		return err
	}

	msg := store.Message{
		ID:   randx.MessageID(),
		Room: f.Room,
		From: c.userID,
		Text: f.Message,
		Data: f.Data,
		Time: time.Now().UnixMilli(),
	}
	c.hub.store.AddLog(f.Room, msg)

	c.hub.BroadcastRoom(f.Room, Envelope{Type: TypeChat, Room: f.Room, Message: &msg}, "")
	return nil
}

func (c *Client) handleHistory(f Frame) error {
	if f.Room == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if !c.isMember(f.Room) {
		return errs.NewError(errs.ErrNotInRoom)
	}

	c.sendMessage(Envelope{
		Type:     TypeHistory,
		Room:     f.Room,
		Messages: c.hub.store.GetLog(f.Room, f.Since),
	})
	return nil
}

func (c *Client) handlePeer(f Frame) error {
	if f.Target == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if len(f.Message) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	action := store.Action{Target: f.Target, Message: f.Message}
	d := c.decide("peer", func(ctx context.Context) *store.Future[store.Decision] {
		return c.hub.store.CanPeer(ctx, c.identity(), action)
	})
	if err := decisionError(d, errs.ErrPeerDeclined); err != nil {
		return err
	}

	env := Envelope{Type: TypePeer, User: c.userID, Text: f.Message, Data: f.Data}
	if !c.hub.SendToUser(f.Target, env, c.socketID) {
		return errs.NewError(errs.ErrPeerNotFound)
	}
	return nil
}

// handleToken issues a one-shot token the client can reconnect with.
func (c *Client) handleToken() error {
	u, ok := c.hub.store.GetUser(c.userID)
	if !ok {
		return errs.NewError(errs.ErrUnauthorized)
	}

	token, err := c.hub.store.CreateToken(Grant{User: u})
	if err != nil {
		return StoreError(err)
	}

	c.sendMessage(Envelope{Type: TypeToken, Token: token})
	return nil
}

// StoreError maps a store failure to an application error.
func StoreError(err error) *errs.CustomError {
	if errors.Is(err, store.ErrIdentifierExhausted) {
		return errs.NewError(errs.ErrIdentifierExhausted)
	}
	return errs.NewError(errs.ErrUnknown, err)
}
