package domain

import (
	"errors"
	"time"
)

// UserType partitions the connection namespace. A customer and a driver with
// the same id are unrelated identities.
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeDriver   UserType = "driver"
)

func (t UserType) Valid() bool {
	return t == UserTypeCustomer || t == UserTypeDriver
}

// Request is a customer's transport job that drivers submit offers against.
type Request struct {
	ID          string
	CustomerID  string
	Origin      string
	Destination string
	Status      RequestStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RequestStatus int

const (
	RequestOpen RequestStatus = iota
	RequestMatched
	RequestCompleted
	RequestCancelled
)

func (s RequestStatus) String() string {
	switch s {
	case RequestOpen:
		return "open"
	case RequestMatched:
		return "matched"
	case RequestCompleted:
		return "completed"
	case RequestCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Offer is a driver-submitted price proposal against a request.
type Offer struct {
	ID        string
	RequestID string
	DriverID  string
	Price     float64
	Status    OfferStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OfferStatus int

const (
	OfferOpen OfferStatus = iota
	OfferAccepted
	OfferRejected
	OfferExpired
)

func (s OfferStatus) String() string {
	switch s {
	case OfferOpen:
		return "open"
	case OfferAccepted:
		return "accepted"
	case OfferRejected:
		return "rejected"
	case OfferExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// AcceptedOffer is the snapshot the backend reports when one of a driver's
// outstanding offers has been accepted by the customer. Produced once per
// check cycle, never mutated locally.
type AcceptedOffer struct {
	OfferID     string  `json:"offer_id"`
	RequestID   string  `json:"request_id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Price       float64 `json:"price"`
}

// OfferEvent crosses service boundaries over the event channel.
type OfferEvent struct {
	Type        OfferEventType `json:"type"`
	OfferID     string         `json:"offer_id"`
	RequestID   string         `json:"request_id"`
	DriverID    string         `json:"driver_id"`
	CustomerID  string         `json:"customer_id"`
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	Price       float64        `json:"price"`
	Timestamp   time.Time      `json:"timestamp"`
}

type OfferEventType string

const (
	EventRequestCreated OfferEventType = "request_created"
	EventOfferSubmitted OfferEventType = "offer_submitted"
	EventOfferAccepted  OfferEventType = "offer_accepted"
	EventOfferExpired   OfferEventType = "offer_expired"
)

// OfferValidationRules bounds the price a driver may quote.
type OfferValidationRules struct {
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

type RegistryStats struct {
	Total     int `json:"total"`
	Customers int `json:"customers"`
	Drivers   int `json:"drivers"`
}

var (
	// ErrKeyNotFound is returned by key-value store reads for absent keys.
	ErrKeyNotFound = errors.New("key not found")

	ErrOfferNotOpen    = errors.New("offer is not open")
	ErrOfferNotFound   = errors.New("offer not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrInvalidUserType = errors.New("invalid user type")
)
