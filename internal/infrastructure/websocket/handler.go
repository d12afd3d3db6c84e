package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
	"cargo-dispatch/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// SocketHandler owns the inbound event loop of one websocket endpoint. Every
// malformed event gets an error reply; the connection itself is only torn
// down when the transport read fails.
type SocketHandler struct {
	registry   *ConnectionRegistry
	rooms      *RoomRouter
	dispatcher *NotificationDispatcher
	log        logger.Logger
}

func NewSocketHandler(registry *ConnectionRegistry, rooms *RoomRouter,
	dispatcher *NotificationDispatcher, log logger.Logger) *SocketHandler {
	return &SocketHandler{
		registry:   registry,
		rooms:      rooms,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Router returns the mux router serving the websocket endpoint.
func (h *SocketHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.HandleConnection)
	return r
}

func (h *SocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn)
	go h.handleMessages(wsConn, conn)
}

func (h *SocketHandler) handleMessages(wsConn *WebSocketConnection, conn *websocket.Conn) {
	defer func() {
		h.registry.Dissociate(wsConn)
		h.rooms.RemoveConnection(wsConn)
		wsConn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Error("Unexpected close", "error", err)
			}
			break
		}

		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			h.sendError(wsConn, "invalid message")
			continue
		}

		switch env.Type {
		case "authenticate":
			h.handleAuthenticate(wsConn, payload)
		case "joinRequest":
			h.handleJoinRequest(wsConn, payload)
		case "chatMessage":
			h.handleChatMessage(wsConn, payload)
		case "updateLocation":
			h.handleUpdateLocation(wsConn, payload)
		case "ping":
			wsConn.Send(map[string]string{"type": "pong"})
		default:
			h.sendError(wsConn, "unknown event type")
		}
	}
}

func (h *SocketHandler) handleAuthenticate(conn *WebSocketConnection, payload []byte) {
	var msg struct {
		UserType domain.UserType `json:"user_type"`
		UserID   string          `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || !msg.UserType.Valid() || msg.UserID == "" {
		h.sendError(conn, "user_type and user_id required")
		return
	}

	if err := h.registry.Associate(msg.UserType, msg.UserID, conn); err != nil {
		h.sendError(conn, err.Error())
		return
	}

	conn.Send(map[string]interface{}{
		"type":    "authenticated",
		"success": true,
	})
}

func (h *SocketHandler) handleJoinRequest(conn *WebSocketConnection, payload []byte) {
	var msg struct {
		RequestID string          `json:"request_id"`
		UserType  domain.UserType `json:"user_type"`
		UserID    string          `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil ||
		msg.RequestID == "" || !msg.UserType.Valid() || msg.UserID == "" {
		h.sendError(conn, "request_id, user_type and user_id required")
		return
	}

	if err := h.rooms.Join(conn, msg.RequestID, msg.UserType, msg.UserID); err != nil {
		h.sendError(conn, err.Error())
		return
	}

	conn.Send(map[string]interface{}{
		"type":       "joinedRequest",
		"success":    true,
		"request_id": msg.RequestID,
	})
}

func (h *SocketHandler) handleChatMessage(conn *WebSocketConnection, payload []byte) {
	var msg struct {
		RequestID  string          `json:"request_id"`
		SenderType domain.UserType `json:"sender_type"`
		SenderID   string          `json:"sender_id"`
		Message    string          `json:"message"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil ||
		msg.RequestID == "" || !msg.SenderType.Valid() || msg.SenderID == "" || msg.Message == "" {
		h.sendError(conn, "request_id, sender_type, sender_id and message required")
		return
	}

	h.dispatcher.NotifyRequestParticipants(msg.RequestID, "newMessage", map[string]interface{}{
		"message_id":  utils.GenerateID("msg"),
		"request_id":  msg.RequestID,
		"sender_type": msg.SenderType,
		"sender_id":   msg.SenderID,
		"message":     msg.Message,
	})
}

func (h *SocketHandler) handleUpdateLocation(conn *WebSocketConnection, payload []byte) {
	var msg struct {
		DriverID  string   `json:"driver_id"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil ||
		msg.DriverID == "" || msg.Latitude == nil || msg.Longitude == nil {
		h.sendError(conn, "driver_id, latitude and longitude required")
		return
	}

	h.dispatcher.NotifyDriverLocationUpdate(msg.DriverID, map[string]interface{}{
		"driver_id": msg.DriverID,
		"latitude":  *msg.Latitude,
		"longitude": *msg.Longitude,
	})
}

func (h *SocketHandler) sendError(conn *WebSocketConnection, message string) {
	if err := conn.Send(map[string]interface{}{
		"type":      "error",
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		h.log.Error("Failed to send error reply", "error", err)
	}
}
