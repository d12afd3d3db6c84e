package websocket

import (
	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
	"sync"
)

type identity struct {
	userType domain.UserType
	userID   string
}

// ConnectionRegistry keeps one live connection per identity, with customers
// and drivers in independent maps. The handle index makes disconnect cleanup
// O(1) and lets a stale handle's removal be a no-op after it was replaced.
type ConnectionRegistry struct {
	customers  map[string]domain.Connection
	drivers    map[string]domain.Connection
	identities map[domain.Connection]identity
	mutex      sync.RWMutex
	log        logger.Logger
}

func NewConnectionRegistry(log logger.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		customers:  make(map[string]domain.Connection),
		drivers:    make(map[string]domain.Connection),
		identities: make(map[domain.Connection]identity),
		log:        log,
	}
}

func (r *ConnectionRegistry) Associate(userType domain.UserType, userID string, conn domain.Connection) error {
	if !userType.Valid() {
		return domain.ErrInvalidUserType
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	byID := r.mapFor(userType)
	if previous, exists := byID[userID]; exists && previous != conn {
		// Last authenticate wins; the old handle is no longer addressable.
		delete(r.identities, previous)
	}

	byID[userID] = conn
	r.identities[conn] = identity{userType: userType, userID: userID}

	r.log.Info("Connection registered", "user_type", userType, "user_id", userID)
	return nil
}

func (r *ConnectionRegistry) Dissociate(conn domain.Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	id, exists := r.identities[conn]
	if !exists {
		return
	}
	delete(r.identities, conn)

	byID := r.mapFor(id.userType)
	if byID[id.userID] == conn {
		delete(byID, id.userID)
	}

	r.log.Info("Connection unregistered", "user_type", id.userType, "user_id", id.userID)
}

func (r *ConnectionRegistry) Lookup(userType domain.UserType, userID string) domain.Connection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !userType.Valid() {
		return nil
	}
	return r.mapFor(userType)[userID]
}

// AllDrivers returns a snapshot of every registered driver connection.
func (r *ConnectionRegistry) AllDrivers() []domain.Connection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	conns := make([]domain.Connection, 0, len(r.drivers))
	for _, conn := range r.drivers {
		conns = append(conns, conn)
	}
	return conns
}

// AllConnections returns a snapshot of every registered connection.
func (r *ConnectionRegistry) AllConnections() []domain.Connection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	conns := make([]domain.Connection, 0, len(r.customers)+len(r.drivers))
	for _, conn := range r.customers {
		conns = append(conns, conn)
	}
	for _, conn := range r.drivers {
		conns = append(conns, conn)
	}
	return conns
}

func (r *ConnectionRegistry) Stats() domain.RegistryStats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return domain.RegistryStats{
		Total:     len(r.customers) + len(r.drivers),
		Customers: len(r.customers),
		Drivers:   len(r.drivers),
	}
}

// mapFor must be called with the mutex held.
func (r *ConnectionRegistry) mapFor(userType domain.UserType) map[string]domain.Connection {
	if userType == domain.UserTypeCustomer {
		return r.customers
	}
	return r.drivers
}
