package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"

	"github.com/gorilla/websocket"
)

func startSocketServer(t *testing.T) (*ConnectionRegistry, string) {
	t.Helper()
	log := logger.NewNop()
	registry := NewConnectionRegistry(log)
	rooms := NewRoomRouter(log)
	dispatcher := NewNotificationDispatcher(registry, rooms, log)
	handler := NewSocketHandler(registry, rooms, dispatcher, log)

	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	return registry, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestAuthenticateRegistersConnection(t *testing.T) {
	registry, url := startSocketServer(t)
	conn := dial(t, url)

	conn.WriteJSON(map[string]interface{}{
		"type":      "authenticate",
		"user_type": "driver",
		"user_id":   "7",
	})

	reply := readReply(t, conn)
	if reply["type"] != "authenticated" || reply["success"] != true {
		t.Fatalf("reply = %#v", reply)
	}

	if registry.Lookup(domain.UserTypeDriver, "7") == nil {
		t.Fatal("driver 7 not registered after authenticate")
	}
}

func TestMalformedEventKeepsConnectionAlive(t *testing.T) {
	registry, url := startSocketServer(t)
	conn := dial(t, url)

	// Missing user_id: server must reply with an error, not drop us.
	conn.WriteJSON(map[string]interface{}{
		"type":      "authenticate",
		"user_type": "driver",
	})
	reply := readReply(t, conn)
	if reply["type"] != "error" {
		t.Fatalf("reply = %#v, want error event", reply)
	}

	conn.WriteJSON(map[string]interface{}{
		"type":      "authenticate",
		"user_type": "driver",
		"user_id":   "7",
	})
	reply = readReply(t, conn)
	if reply["type"] != "authenticated" {
		t.Fatalf("reply after recovery = %#v", reply)
	}
	if registry.Lookup(domain.UserTypeDriver, "7") == nil {
		t.Fatal("connection unusable after a malformed event")
	}
}

func TestDisconnectCleansRegistry(t *testing.T) {
	registry, url := startSocketServer(t)
	conn := dial(t, url)

	conn.WriteJSON(map[string]interface{}{
		"type":      "authenticate",
		"user_type": "driver",
		"user_id":   "7",
	})
	readReply(t, conn)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for registry.Lookup(domain.UserTypeDriver, "7") != nil {
		if time.Now().After(deadline) {
			t.Fatal("driver 7 still registered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChatMessageReachesRoom(t *testing.T) {
	_, url := startSocketServer(t)
	customer := dial(t, url)
	driver := dial(t, url)

	customer.WriteJSON(map[string]interface{}{
		"type": "joinRequest", "request_id": "100", "user_type": "customer", "user_id": "1",
	})
	if reply := readReply(t, customer); reply["type"] != "joinedRequest" {
		t.Fatalf("customer join reply = %#v", reply)
	}

	driver.WriteJSON(map[string]interface{}{
		"type": "joinRequest", "request_id": "100", "user_type": "driver", "user_id": "7",
	})
	if reply := readReply(t, driver); reply["type"] != "joinedRequest" {
		t.Fatalf("driver join reply = %#v", reply)
	}
	if reply := readReply(t, customer); reply["type"] != "userJoined" {
		t.Fatalf("customer expected userJoined, got %#v", reply)
	}

	driver.WriteJSON(map[string]interface{}{
		"type": "chatMessage", "request_id": "100",
		"sender_type": "driver", "sender_id": "7", "message": "on my way",
	})

	msg := readReply(t, customer)
	if msg["type"] != "newMessage" || msg["message"] != "on my way" {
		t.Fatalf("customer chat message = %#v", msg)
	}
	if _, ok := msg["timestamp"]; !ok {
		t.Fatal("chat broadcast missing timestamp")
	}
}

func TestUpdateLocationBroadcast(t *testing.T) {
	_, url := startSocketServer(t)
	driver := dial(t, url)
	watcher := dial(t, url)

	watcher.WriteJSON(map[string]interface{}{
		"type": "authenticate", "user_type": "customer", "user_id": "1",
	})
	readReply(t, watcher)

	driver.WriteJSON(map[string]interface{}{
		"type": "updateLocation", "driver_id": "7", "latitude": 51.5, "longitude": -0.12,
	})

	msg := readReply(t, watcher)
	if msg["type"] != "driverLocationUpdate" || msg["driver_id"] != "7" {
		t.Fatalf("location broadcast = %#v", msg)
	}
}
