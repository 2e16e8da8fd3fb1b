package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"pingline/pkg/logger"
)

// Client represents a WebSocket connection client.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Manager tracks active connections and which chatroom each viewer currently
// has open. Room membership drives both realtime fan-out and the decision to
// fall back to a push notification.
type Manager struct {
	clients    map[string]*Client
	rooms      map[string]map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	// OnMessage handles inbound client frames. Set once at wiring time.
	OnMessage func(client *Client, payload []byte)

	// OnDisconnect runs before the client is unregistered, while its Send
	// channel is still open. Gives the owner a chance to stop writers.
	OnDisconnect func(client *Client)
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				logger.Info("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client.UserID]; ok {
					delete(m.clients, client.UserID)
					for roomID, members := range m.rooms {
						if members[client.UserID] == client {
							delete(members, client.UserID)
							if len(members) == 0 {
								delete(m.rooms, roomID)
							}
						}
					}
					close(client.Send)
				}
				m.mutex.Unlock()
				logger.Info("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// JoinRoom marks the client as currently viewing the given chatroom.
func (m *Manager) JoinRoom(client *Client, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.rooms[roomID] == nil {
		m.rooms[roomID] = make(map[string]*Client)
	}
	m.rooms[roomID][client.UserID] = client
}

// LeaveRoom clears the client's viewing state for the chatroom.
func (m *Manager) LeaveRoom(client *Client, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if members, ok := m.rooms[roomID]; ok {
		if members[client.UserID] == client {
			delete(members, client.UserID)
			if len(members) == 0 {
				delete(m.rooms, roomID)
			}
		}
	}
}

// IsUserInRoom reports whether the user currently has the chatroom open.
func (m *Manager) IsUserInRoom(userID, roomID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	members, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = members[userID]
	return ok
}

// IsUserConnected reports whether the user has an active connection at all.
func (m *Manager) IsUserConnected(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, ok := m.clients[userID]
	return ok
}

// SendToUser sends a message to a specific user.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		logger.Warn("Dropping message for slow client %s", userID)
	}
}

// SendToRoom sends a message to every client viewing the chatroom, except the
// excluded user.
func (m *Manager) SendToRoom(roomID string, message []byte, excludeUserID string) {
	m.mutex.RLock()
	var targets []*Client
	for userID, client := range m.rooms[roomID] {
		if userID != excludeUserID {
			targets = append(targets, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range targets {
		select {
		case client.Send <- message:
		default:
			logger.Warn("Dropping room message for slow client %s", client.UserID)
		}
	}
}

// ReadPump reads messages from the WebSocket connection.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		if m.OnDisconnect != nil {
			m.OnDisconnect(c)
		}
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error: %v", err)
			}
			break
		}

		if m.OnMessage != nil {
			m.OnMessage(c, message)
		}
	}
}

// WritePump sends messages to the WebSocket connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Error("WebSocket write error: %v", err)
			return
		}
	}
}
