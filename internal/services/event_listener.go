package services

import (
	"context"
	"fmt"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

// EventListener bridges the offer event channel to live connections. It is
// the push half of the dual delivery path; a driver it cannot reach is picked
// up by that driver's poller.
type EventListener struct {
	dispatcher domain.Dispatcher
	log        logger.Logger
}

func NewEventListener(dispatcher domain.Dispatcher, log logger.Logger) *EventListener {
	return &EventListener{
		dispatcher: dispatcher,
		log:        log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToOfferEvents(ctx, el.handleOfferEvent)
}

func (el *EventListener) handleOfferEvent(event *domain.OfferEvent) error {
	el.log.Info("Handling offer event", "type", event.Type, "offer_id", event.OfferID,
		"request_id", event.RequestID)

	switch event.Type {
	case domain.EventOfferAccepted:
		return el.handleOfferAccepted(event)
	case domain.EventOfferSubmitted:
		return el.handleOfferSubmitted(event)
	case domain.EventRequestCreated:
		notified := el.dispatcher.NotifyAllDrivers("newJob", map[string]interface{}{
			"request_id":  event.RequestID,
			"origin":      event.Origin,
			"destination": event.Destination,
		})
		el.log.Info("Announced new request to fleet", "request_id", event.RequestID, "notified", notified)
		return nil
	case domain.EventOfferExpired:
		el.dispatcher.NotifyRequestParticipants(event.RequestID, "offerExpired", map[string]interface{}{
			"offer_id":   event.OfferID,
			"request_id": event.RequestID,
		})
		return nil
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleOfferAccepted(event *domain.OfferEvent) error {
	payload := map[string]interface{}{
		"offer_id":    event.OfferID,
		"request_id":  event.RequestID,
		"origin":      event.Origin,
		"destination": event.Destination,
		"price":       event.Price,
	}

	if delivered := el.dispatcher.NotifyDriver(event.DriverID, "offerAccepted", payload); !delivered {
		el.log.Debug("Driver not connected, polling path will deliver",
			"driver_id", event.DriverID, "offer_id", event.OfferID)
	}

	el.dispatcher.NotifyRequestParticipants(event.RequestID, "offerAccepted", payload)
	return nil
}

func (el *EventListener) handleOfferSubmitted(event *domain.OfferEvent) error {
	el.dispatcher.NotifyCustomer(event.CustomerID, "newOffer", map[string]interface{}{
		"offer_id":   event.OfferID,
		"request_id": event.RequestID,
		"driver_id":  event.DriverID,
		"price":      event.Price,
	})
	return nil
}
