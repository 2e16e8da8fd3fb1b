package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"pingline/internal/adapter/api/middleware"
	ws "pingline/internal/infrastructure/websocket"
	"pingline/internal/usecase"
	"pingline/pkg/errors"
	"pingline/pkg/logger"
)

// WebSocketHandler drives the realtime protocol: clients join a chatroom to
// open a live window session, receive window frames whenever the window
// changes, and request older pages over the same connection.
type WebSocketHandler struct {
	wsManager      *ws.Manager
	authMiddleware *middleware.AuthMiddleware
	messageUseCase *usecase.MessageUseCase

	mu    sync.Mutex
	conns map[*ws.Client]*clientState
}

// clientState tracks one connection's open room sessions. The closed flag is
// flipped before the manager closes the send channel, so no session writer
// can race the close.
type clientState struct {
	mu       sync.Mutex
	closed   bool
	sessions map[string]*usecase.RoomSession
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict this in production
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, authMiddleware *middleware.AuthMiddleware, messageUseCase *usecase.MessageUseCase) *WebSocketHandler {
	h := &WebSocketHandler{
		wsManager:      wsManager,
		authMiddleware: authMiddleware,
		messageUseCase: messageUseCase,
		conns:          make(map[*ws.Client]*clientState),
	}
	wsManager.OnMessage = h.handleFrame
	wsManager.OnDisconnect = h.handleDisconnect
	return h
}

// HandleWebSocket authenticates and upgrades the connection. Browsers cannot
// set headers on WebSocket dials, so the token also comes as a query param.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	userID, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.mu.Lock()
	h.conns[client] = &clientState{sessions: make(map[string]*usecase.RoomSession)}
	h.mu.Unlock()

	h.wsManager.Register <- client

	go client.ReadPump(h.wsManager)
	go client.WritePump()

	return nil
}

func (h *WebSocketHandler) stateFor(client *ws.Client) *clientState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[client]
}

func (h *WebSocketHandler) handleFrame(client *ws.Client, payload []byte) {
	state := h.stateFor(client)
	if state == nil {
		return
	}

	var frame ws.Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		state.send(client, ws.Encode(ws.FrameTypeError, "", map[string]string{"message": "malformed frame"}))
		return
	}

	switch frame.Type {
	case ws.FrameTypePing:
		state.send(client, ws.Encode(ws.FrameTypePong, "", nil))

	case ws.FrameTypeJoinRoom:
		h.joinRoom(client, state, frame.RoomID)

	case ws.FrameTypeLeaveRoom:
		h.leaveRoom(client, state, frame.RoomID)

	case ws.FrameTypeLoadMore:
		h.loadMore(client, state, frame.RoomID)

	default:
		state.send(client, ws.Encode(ws.FrameTypeError, frame.RoomID, map[string]string{"message": "unknown frame type: " + frame.Type}))
	}
}

func (h *WebSocketHandler) joinRoom(client *ws.Client, state *clientState, roomID string) {
	if roomID == "" {
		state.send(client, ws.Encode(ws.FrameTypeError, "", map[string]string{"message": "room_id is required"}))
		return
	}

	state.mu.Lock()
	if _, open := state.sessions[roomID]; open || state.closed {
		state.mu.Unlock()
		return
	}
	state.mu.Unlock()

	// The session outlives the request that carried the join frame.
	session, err := h.messageUseCase.OpenSession(context.Background(), roomID, client.UserID)
	if err != nil {
		logger.Warn("Join room %s failed for %s: %v", roomID, client.UserID, err)
		state.send(client, ws.Encode(ws.FrameTypeError, roomID, map[string]string{"message": "could not open room"}))
		return
	}

	state.mu.Lock()
	if state.closed {
		state.mu.Unlock()
		session.Close()
		return
	}
	state.sessions[roomID] = session
	state.mu.Unlock()

	h.wsManager.JoinRoom(client, roomID)

	go h.pipe(client, state, roomID, session)
}

func (h *WebSocketHandler) leaveRoom(client *ws.Client, state *clientState, roomID string) {
	state.mu.Lock()
	session := state.sessions[roomID]
	delete(state.sessions, roomID)
	state.mu.Unlock()

	h.wsManager.LeaveRoom(client, roomID)
	if session != nil {
		session.Close()
	}
}

func (h *WebSocketHandler) loadMore(client *ws.Client, state *clientState, roomID string) {
	state.mu.Lock()
	session := state.sessions[roomID]
	state.mu.Unlock()

	if session == nil {
		state.send(client, ws.Encode(ws.FrameTypeError, roomID, map[string]string{"message": "room not joined"}))
		return
	}

	go func() {
		if _, err := session.LoadOlder(context.Background()); err != nil {
			logger.Error("Load more failed in room %s: %v", roomID, err)
			state.send(client, ws.Encode(ws.FrameTypeError, roomID, map[string]string{"message": "failed to load older messages"}))
		}
	}()
}

// pipe forwards window updates from the session to the connection until
// either side shuts down.
func (h *WebSocketHandler) pipe(client *ws.Client, state *clientState, roomID string, session *usecase.RoomSession) {
	for {
		select {
		case <-session.Done():
			return
		case update := <-session.Updates():
			state.send(client, ws.Encode(ws.FrameTypeWindow, roomID, update))
		}
	}
}

func (h *WebSocketHandler) handleDisconnect(client *ws.Client) {
	h.mu.Lock()
	state := h.conns[client]
	delete(h.conns, client)
	h.mu.Unlock()

	if state == nil {
		return
	}

	state.mu.Lock()
	state.closed = true
	sessions := state.sessions
	state.sessions = make(map[string]*usecase.RoomSession)
	state.mu.Unlock()

	for roomID, session := range sessions {
		h.wsManager.LeaveRoom(client, roomID)
		session.Close()
	}
}

// send writes to the client's channel unless the connection is shutting
// down. Holding the state lock across the non-blocking write is what makes
// the closed check safe against the manager closing the channel.
func (s *clientState) send(client *ws.Client, payload []byte) {
	if payload == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case client.Send <- payload:
	default:
		logger.Warn("Dropping frame for slow client %s", client.UserID)
	}
}
