package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketConnection wraps a gorilla connection behind domain.Connection.
// gorilla permits one concurrent writer, so sends are serialized here.
type WebSocketConnection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewWebSocketConnection(conn *websocket.Conn) *WebSocketConnection {
	return &WebSocketConnection{conn: conn}
}

func (c *WebSocketConnection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *WebSocketConnection) Close() error {
	return c.conn.Close()
}
