package domain

import (
	"context"
	"time"
)

// Repository interfaces
type OfferRepository interface {
	CreateRequest(ctx context.Context, request *Request) error
	GetRequest(ctx context.Context, requestID string) (*Request, error)
	CreateOffer(ctx context.Context, offer *Offer) error
	GetOffer(ctx context.Context, offerID string) (*Offer, error)
	AcceptOffer(ctx context.Context, requestID, offerID string) error
	AcceptedOfferForDriver(ctx context.Context, driverID string) (*AcceptedOffer, error)
	ExpireOffersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// KeyValueStore is the durable local storage capability shared by the dedup
// set and the active-job marker. Reads of absent keys return ErrKeyNotFound.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	AddSetMember(ctx context.Context, key, member string) error
	HasSetMember(ctx context.Context, key, member string) (bool, error)
}

// Event interfaces
type EventPublisher interface {
	PublishOfferEvent(ctx context.Context, event *OfferEvent) error
}

type EventSubscriber interface {
	SubscribeToOfferEvents(ctx context.Context, handler OfferEventHandler) error
}

type OfferEventHandler func(event *OfferEvent) error

// Connection is a live socket handle. Implementations must tolerate Send
// being called concurrently with the read loop.
type Connection interface {
	Send(message interface{}) error
	Close() error
}

// ConnectionRegistry maps (user type, user id) to the single live connection
// for that identity. Last authenticate wins; a stale handle is overwritten,
// not merged.
type ConnectionRegistry interface {
	Associate(userType UserType, userID string, conn Connection) error
	Dissociate(conn Connection)
	Lookup(userType UserType, userID string) Connection
	Stats() RegistryStats
}

// RoomRouter manages broadcast groups keyed by request id. Rooms are created
// implicitly on first join and vanish when their last member leaves.
type RoomRouter interface {
	Join(conn Connection, requestID string, userType UserType, userID string) error
	RemoveConnection(conn Connection)
	Broadcast(requestID string, message interface{})
	BroadcastExcept(requestID string, except Connection, message interface{})
}

// Dispatcher exposes the targeted-send, room-broadcast and fleet-broadcast
// primitives. A false/zero result means nobody was connected, which is the
// expected steady state, not an error.
type Dispatcher interface {
	NotifyCustomer(customerID string, event string, payload map[string]interface{}) bool
	NotifyDriver(driverID string, event string, payload map[string]interface{}) bool
	NotifyRequestParticipants(requestID string, event string, payload map[string]interface{})
	NotifyAllDrivers(event string, payload map[string]interface{}) int
	NotifyDriverLocationUpdate(driverID string, payload map[string]interface{})
}

// OfferChecker performs one request/response poll of the backend. A nil
// snapshot means "nothing new this cycle": no accepted offer, a transport
// failure, or an offer for the job already in hand.
type OfferChecker interface {
	Check(ctx context.Context, driverID string) *AcceptedOffer
}

// AcceptedOfferHandler surfaces an accepted offer to the user. At most one
// handler is registered at a time; re-registering replaces it.
type AcceptedOfferHandler func(offer AcceptedOffer)

// Validation interface
type OfferValidator interface {
	ValidatePrice(price float64) error
	LoadRules(ctx context.Context) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
