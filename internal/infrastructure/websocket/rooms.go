package websocket

import (
	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
	"errors"
	"sync"
)

// RoomRouter groups connections by request id. A room exists exactly as long
// as it has members; there is no explicit leave, membership ends when the
// connection is removed on disconnect.
type RoomRouter struct {
	rooms       map[string]map[domain.Connection]bool
	memberships map[domain.Connection]map[string]bool
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewRoomRouter(log logger.Logger) *RoomRouter {
	return &RoomRouter{
		rooms:       make(map[string]map[domain.Connection]bool),
		memberships: make(map[domain.Connection]map[string]bool),
		log:         log,
	}
}

func (rr *RoomRouter) Join(conn domain.Connection, requestID string, userType domain.UserType, userID string) error {
	if requestID == "" {
		return errors.New("request_id required")
	}

	rr.mutex.Lock()
	if rr.rooms[requestID] == nil {
		rr.rooms[requestID] = make(map[domain.Connection]bool)
	}
	rr.rooms[requestID][conn] = true

	if rr.memberships[conn] == nil {
		rr.memberships[conn] = make(map[string]bool)
	}
	rr.memberships[conn][requestID] = true
	rr.mutex.Unlock()

	rr.log.Info("Joined room", "request_id", requestID, "user_type", userType, "user_id", userID)

	rr.BroadcastExcept(requestID, conn, map[string]interface{}{
		"type":       "userJoined",
		"request_id": requestID,
		"user_type":  userType,
		"user_id":    userID,
	})
	return nil
}

// RemoveConnection drops the connection from every room it joined. Called by
// the transport layer on disconnect.
func (rr *RoomRouter) RemoveConnection(conn domain.Connection) {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	for requestID := range rr.memberships[conn] {
		delete(rr.rooms[requestID], conn)
		if len(rr.rooms[requestID]) == 0 {
			delete(rr.rooms, requestID)
		}
	}
	delete(rr.memberships, conn)
}

func (rr *RoomRouter) Broadcast(requestID string, message interface{}) {
	rr.BroadcastExcept(requestID, nil, message)
}

// BroadcastExcept sends to every room member other than except. Send failures
// are logged per connection and never abort the fan-out; an empty room is a
// successful broadcast to nobody.
func (rr *RoomRouter) BroadcastExcept(requestID string, except domain.Connection, message interface{}) {
	rr.mutex.RLock()
	members := make([]domain.Connection, 0, len(rr.rooms[requestID]))
	for conn := range rr.rooms[requestID] {
		if conn != except {
			members = append(members, conn)
		}
	}
	rr.mutex.RUnlock()

	for _, conn := range members {
		if err := conn.Send(message); err != nil {
			rr.log.Error("Failed to send room message", "request_id", requestID, "error", err)
		}
	}
}

// MemberCount reports current room size, for observability.
func (rr *RoomRouter) MemberCount(requestID string) int {
	rr.mutex.RLock()
	defer rr.mutex.RUnlock()
	return len(rr.rooms[requestID])
}
