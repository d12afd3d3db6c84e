package websocket

import (
	"errors"
	"testing"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

// fakeConn records everything sent through it; shared by the package tests.
type fakeConn struct {
	name     string
	sent     []interface{}
	failSend bool
	closed   bool
}

func (c *fakeConn) Send(message interface{}) error {
	if c.failSend {
		return errors.New("send failed")
	}
	c.sent = append(c.sent, message)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) messageTypes() []string {
	var types []string
	for _, m := range c.sent {
		if msg, ok := m.(map[string]interface{}); ok {
			if t, ok := msg["type"].(string); ok {
				types = append(types, t)
			}
		}
	}
	return types
}

func TestAssociateLastWins(t *testing.T) {
	registry := NewConnectionRegistry(logger.NewNop())
	h1 := &fakeConn{name: "h1"}
	h2 := &fakeConn{name: "h2"}

	if err := registry.Associate(domain.UserTypeDriver, "7", h1); err != nil {
		t.Fatalf("associate h1: %v", err)
	}
	if err := registry.Associate(domain.UserTypeDriver, "7", h2); err != nil {
		t.Fatalf("associate h2: %v", err)
	}

	if got := registry.Lookup(domain.UserTypeDriver, "7"); got != h2 {
		t.Fatalf("lookup after re-associate = %v, want h2", got)
	}

	// h1 was replaced; removing it must not touch the identity now held by h2.
	registry.Dissociate(h1)
	if got := registry.Lookup(domain.UserTypeDriver, "7"); got != h2 {
		t.Fatalf("lookup after dissociating stale handle = %v, want h2", got)
	}
}

func TestDissociateRemovesIdentity(t *testing.T) {
	registry := NewConnectionRegistry(logger.NewNop())
	h1 := &fakeConn{name: "h1"}

	if err := registry.Associate(domain.UserTypeDriver, "7", h1); err != nil {
		t.Fatalf("associate: %v", err)
	}
	registry.Dissociate(h1)

	if got := registry.Lookup(domain.UserTypeDriver, "7"); got != nil {
		t.Fatalf("lookup after disconnect = %v, want nil", got)
	}
	if stats := registry.Stats(); stats.Total != 0 {
		t.Fatalf("stats.Total = %d, want 0", stats.Total)
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	registry := NewConnectionRegistry(logger.NewNop())
	customer := &fakeConn{name: "customer"}
	driver := &fakeConn{name: "driver"}

	if err := registry.Associate(domain.UserTypeCustomer, "7", customer); err != nil {
		t.Fatalf("associate customer: %v", err)
	}
	if err := registry.Associate(domain.UserTypeDriver, "7", driver); err != nil {
		t.Fatalf("associate driver: %v", err)
	}

	if got := registry.Lookup(domain.UserTypeCustomer, "7"); got != customer {
		t.Fatalf("customer lookup = %v", got)
	}
	if got := registry.Lookup(domain.UserTypeDriver, "7"); got != driver {
		t.Fatalf("driver lookup = %v", got)
	}

	registry.Dissociate(customer)
	if got := registry.Lookup(domain.UserTypeDriver, "7"); got != driver {
		t.Fatalf("driver lookup after customer disconnect = %v", got)
	}
}

func TestAssociateRejectsUnknownType(t *testing.T) {
	registry := NewConnectionRegistry(logger.NewNop())

	err := registry.Associate(domain.UserType("admin"), "1", &fakeConn{})
	if !errors.Is(err, domain.ErrInvalidUserType) {
		t.Fatalf("err = %v, want ErrInvalidUserType", err)
	}
}

func TestStats(t *testing.T) {
	registry := NewConnectionRegistry(logger.NewNop())
	registry.Associate(domain.UserTypeCustomer, "1", &fakeConn{})
	registry.Associate(domain.UserTypeDriver, "1", &fakeConn{})
	registry.Associate(domain.UserTypeDriver, "2", &fakeConn{})

	stats := registry.Stats()
	if stats.Total != 3 || stats.Customers != 1 || stats.Drivers != 2 {
		t.Fatalf("stats = %+v, want total 3, customers 1, drivers 2", stats)
	}
}
