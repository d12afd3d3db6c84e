package websocket

import (
	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
	"time"
)

// NotificationDispatcher builds the targeted-send, room-broadcast and
// fleet-broadcast primitives on top of the registry and the room router.
type NotificationDispatcher struct {
	registry *ConnectionRegistry
	rooms    *RoomRouter
	log      logger.Logger
}

func NewNotificationDispatcher(registry *ConnectionRegistry, rooms *RoomRouter, log logger.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		registry: registry,
		rooms:    rooms,
		log:      log,
	}
}

// NotifyCustomer sends one event to the customer's live connection. A false
// return means the customer is not connected; the caller falls back on the
// polling path.
func (d *NotificationDispatcher) NotifyCustomer(customerID string, event string, payload map[string]interface{}) bool {
	return d.notifyUser(domain.UserTypeCustomer, customerID, event, payload)
}

func (d *NotificationDispatcher) NotifyDriver(driverID string, event string, payload map[string]interface{}) bool {
	return d.notifyUser(domain.UserTypeDriver, driverID, event, payload)
}

func (d *NotificationDispatcher) notifyUser(userType domain.UserType, userID string, event string, payload map[string]interface{}) bool {
	conn := d.registry.Lookup(userType, userID)
	if conn == nil {
		d.log.Debug("User not connected", "user_type", userType, "user_id", userID, "event", event)
		return false
	}

	if err := conn.Send(envelope(event, payload)); err != nil {
		d.log.Error("Failed to send event", "user_type", userType, "user_id", userID,
			"event", event, "error", err)
		return false
	}
	return true
}

// NotifyRequestParticipants broadcasts to the room named by the request id.
// Zero listeners is a successful broadcast.
func (d *NotificationDispatcher) NotifyRequestParticipants(requestID string, event string, payload map[string]interface{}) {
	d.rooms.Broadcast(requestID, envelope(event, payload))
}

// NotifyAllDrivers broadcasts to every registered driver connection and
// returns how many were reached, used for fleet-wide job announcements.
func (d *NotificationDispatcher) NotifyAllDrivers(event string, payload map[string]interface{}) int {
	message := envelope(event, payload)
	notified := 0
	for _, conn := range d.registry.AllDrivers() {
		if err := conn.Send(message); err != nil {
			d.log.Error("Failed to notify driver", "event", event, "error", err)
			continue
		}
		notified++
	}
	return notified
}

// NotifyDriverLocationUpdate fans a position update out to every connection.
// Best effort: failures are logged and never reach the reporting caller.
func (d *NotificationDispatcher) NotifyDriverLocationUpdate(driverID string, payload map[string]interface{}) {
	message := envelope("driverLocationUpdate", payload)
	for _, conn := range d.registry.AllConnections() {
		if err := conn.Send(message); err != nil {
			d.log.Error("Failed to send location update", "driver_id", driverID, "error", err)
		}
	}
}

func envelope(event string, payload map[string]interface{}) map[string]interface{} {
	message := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		message[k] = v
	}
	message["type"] = event
	message["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return message
}
