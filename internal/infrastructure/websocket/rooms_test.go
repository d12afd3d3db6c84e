package websocket

import (
	"testing"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

func TestRoomIsolation(t *testing.T) {
	rooms := NewRoomRouter(logger.NewNop())
	a := &fakeConn{name: "a"}
	b := &fakeConn{name: "b"}

	if err := rooms.Join(a, "req-1", domain.UserTypeDriver, "1"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := rooms.Join(b, "req-2", domain.UserTypeCustomer, "2"); err != nil {
		t.Fatalf("join b: %v", err)
	}

	rooms.Broadcast("req-1", map[string]interface{}{"type": "newMessage", "message": "hi"})

	if len(a.sent) != 1 {
		t.Fatalf("a received %d messages, want 1", len(a.sent))
	}
	for _, typ := range b.messageTypes() {
		if typ == "newMessage" {
			t.Fatalf("b received a message for a room it never joined")
		}
	}
}

func TestJoinBroadcastsUserJoinedToOthers(t *testing.T) {
	rooms := NewRoomRouter(logger.NewNop())
	first := &fakeConn{name: "first"}
	second := &fakeConn{name: "second"}

	rooms.Join(first, "req-1", domain.UserTypeCustomer, "c1")
	rooms.Join(second, "req-1", domain.UserTypeDriver, "d1")

	if types := first.messageTypes(); len(types) != 1 || types[0] != "userJoined" {
		t.Fatalf("first saw %v, want exactly one userJoined", types)
	}
	// The joiner must not be told about its own join.
	if types := second.messageTypes(); len(types) != 0 {
		t.Fatalf("second saw %v, want nothing", types)
	}
}

func TestJoinRequiresRequestID(t *testing.T) {
	rooms := NewRoomRouter(logger.NewNop())

	if err := rooms.Join(&fakeConn{}, "", domain.UserTypeDriver, "1"); err == nil {
		t.Fatal("join with empty request_id succeeded, want error")
	}
}

func TestRemoveConnectionLeavesAllRooms(t *testing.T) {
	rooms := NewRoomRouter(logger.NewNop())
	a := &fakeConn{name: "a"}
	b := &fakeConn{name: "b"}

	rooms.Join(a, "req-1", domain.UserTypeDriver, "1")
	rooms.Join(a, "req-2", domain.UserTypeDriver, "1")
	rooms.Join(b, "req-1", domain.UserTypeCustomer, "2")

	rooms.RemoveConnection(a)

	sentBefore := len(a.sent)
	rooms.Broadcast("req-1", map[string]interface{}{"type": "newMessage"})
	rooms.Broadcast("req-2", map[string]interface{}{"type": "newMessage"})

	if len(a.sent) != sentBefore {
		t.Fatal("removed connection still received broadcasts")
	}
	if rooms.MemberCount("req-1") != 1 {
		t.Fatalf("req-1 members = %d, want 1", rooms.MemberCount("req-1"))
	}
	if rooms.MemberCount("req-2") != 0 {
		t.Fatalf("req-2 members = %d, want 0 (empty room dropped)", rooms.MemberCount("req-2"))
	}
}

func TestBroadcastSurvivesFailingMember(t *testing.T) {
	rooms := NewRoomRouter(logger.NewNop())
	bad := &fakeConn{name: "bad", failSend: true}
	good := &fakeConn{name: "good"}

	rooms.Join(bad, "req-1", domain.UserTypeDriver, "1")
	rooms.Join(good, "req-1", domain.UserTypeCustomer, "2")

	rooms.Broadcast("req-1", map[string]interface{}{"type": "newMessage"})

	found := false
	for _, typ := range good.messageTypes() {
		if typ == "newMessage" {
			found = true
		}
	}
	if !found {
		t.Fatal("healthy member missed the broadcast after another member failed")
	}
}
