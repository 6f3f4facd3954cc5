package ingest

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ClientManager tracks connected event sources.
type ClientManager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewClientManager creates an empty client manager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		active: make(map[string]*websocket.Conn),
	}
}

// Register adds a connection under its id.
func (m *ClientManager) Register(id string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[id] = conn
	slog.Info("Event client registered", "client_id", id, "clients", len(m.active))
}

// Unregister removes a connection and returns how many clients remain.
func (m *ClientManager) Unregister(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[id]; ok {
		delete(m.active, id)
		slog.Info("Event client unregistered", "client_id", id, "clients", len(m.active))
	}
	return len(m.active)
}

// Count returns the number of connected clients.
func (m *ClientManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// CloseAll disconnects every client.
func (m *ClientManager) CloseAll(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, conn := range m.active {
		if err := conn.Close(websocket.StatusGoingAway, reason); err != nil {
			slog.Debug("Failed to close websocket", "error", err, "client_id", id)
		}
		delete(m.active, id)
		slog.Info("Event client closed", "client_id", id)
	}
}
