package services

import (
	"testing"
	"time"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

type dispatchedCall struct {
	target  string
	id      string
	event   string
	payload map[string]interface{}
}

type fakeDispatcher struct {
	calls           []dispatchedCall
	driverConnected bool
}

func (d *fakeDispatcher) NotifyCustomer(customerID, event string, payload map[string]interface{}) bool {
	d.calls = append(d.calls, dispatchedCall{"customer", customerID, event, payload})
	return true
}

func (d *fakeDispatcher) NotifyDriver(driverID, event string, payload map[string]interface{}) bool {
	d.calls = append(d.calls, dispatchedCall{"driver", driverID, event, payload})
	return d.driverConnected
}

func (d *fakeDispatcher) NotifyRequestParticipants(requestID, event string, payload map[string]interface{}) {
	d.calls = append(d.calls, dispatchedCall{"room", requestID, event, payload})
}

func (d *fakeDispatcher) NotifyAllDrivers(event string, payload map[string]interface{}) int {
	d.calls = append(d.calls, dispatchedCall{"fleet", "", event, payload})
	return 0
}

func (d *fakeDispatcher) NotifyDriverLocationUpdate(driverID string, payload map[string]interface{}) {
	d.calls = append(d.calls, dispatchedCall{"location", driverID, "driverLocationUpdate", payload})
}

func TestOfferAcceptedPushesDriverAndRoom(t *testing.T) {
	dispatcher := &fakeDispatcher{driverConnected: true}
	listener := NewEventListener(dispatcher, logger.NewNop())

	err := listener.handleOfferEvent(&domain.OfferEvent{
		Type:        domain.EventOfferAccepted,
		OfferID:     "9",
		RequestID:   "100",
		DriverID:    "42",
		CustomerID:  "c1",
		Origin:      "A",
		Destination: "B",
		Price:       500,
		Timestamp:   time.Now(),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(dispatcher.calls) != 2 {
		t.Fatalf("dispatched %d calls, want driver push + room broadcast", len(dispatcher.calls))
	}
	driverCall := dispatcher.calls[0]
	if driverCall.target != "driver" || driverCall.id != "42" || driverCall.event != "offerAccepted" {
		t.Fatalf("driver call = %+v", driverCall)
	}
	if driverCall.payload["offer_id"] != "9" || driverCall.payload["request_id"] != "100" {
		t.Fatalf("driver payload = %+v", driverCall.payload)
	}
	roomCall := dispatcher.calls[1]
	if roomCall.target != "room" || roomCall.id != "100" {
		t.Fatalf("room call = %+v", roomCall)
	}
}

func TestOfferAcceptedDriverOfflineIsNotAnError(t *testing.T) {
	dispatcher := &fakeDispatcher{driverConnected: false}
	listener := NewEventListener(dispatcher, logger.NewNop())

	err := listener.handleOfferEvent(&domain.OfferEvent{
		Type:      domain.EventOfferAccepted,
		OfferID:   "9",
		RequestID: "100",
		DriverID:  "42",
	})
	if err != nil {
		t.Fatalf("offline driver surfaced as error: %v", err)
	}
}

func TestOfferSubmittedNotifiesCustomer(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	listener := NewEventListener(dispatcher, logger.NewNop())

	err := listener.handleOfferEvent(&domain.OfferEvent{
		Type:       domain.EventOfferSubmitted,
		OfferID:    "9",
		RequestID:  "100",
		DriverID:   "42",
		CustomerID: "c1",
		Price:      500,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(dispatcher.calls) != 1 || dispatcher.calls[0].target != "customer" ||
		dispatcher.calls[0].event != "newOffer" {
		t.Fatalf("calls = %+v", dispatcher.calls)
	}
}

func TestRequestCreatedAnnouncesToFleet(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	listener := NewEventListener(dispatcher, logger.NewNop())

	err := listener.handleOfferEvent(&domain.OfferEvent{
		Type:        domain.EventRequestCreated,
		RequestID:   "100",
		CustomerID:  "c1",
		Origin:      "A",
		Destination: "B",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(dispatcher.calls) != 1 {
		t.Fatalf("calls = %+v, want one fleet broadcast", dispatcher.calls)
	}
	call := dispatcher.calls[0]
	if call.target != "fleet" || call.event != "newJob" {
		t.Fatalf("fleet call = %+v", call)
	}
	if call.payload["request_id"] != "100" || call.payload["origin"] != "A" {
		t.Fatalf("fleet payload = %+v", call.payload)
	}
}

func TestUnknownEventTypeIsAnError(t *testing.T) {
	listener := NewEventListener(&fakeDispatcher{}, logger.NewNop())

	if err := listener.handleOfferEvent(&domain.OfferEvent{Type: "mystery"}); err == nil {
		t.Fatal("unknown event type handled silently, want error")
	}
}
