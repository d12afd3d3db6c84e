package services

import (
	"context"
	"time"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
	"cargo-dispatch/pkg/utils"
)

// OfferService owns the offer lifecycle on the server side: submission,
// the acceptance transition, and the accepted-offer query the driver poller
// consumes. State changes are published on the event channel; delivery to
// live connections is the event listener's job.
type OfferService struct {
	repo      domain.OfferRepository
	publisher domain.EventPublisher
	validator domain.OfferValidator
	log       logger.Logger
}

func NewOfferService(repo domain.OfferRepository, publisher domain.EventPublisher,
	validator domain.OfferValidator, log logger.Logger) *OfferService {
	return &OfferService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		log:       log,
	}
}

// CreateRequest records a new transport job and announces it fleet-wide via
// the event channel.
func (s *OfferService) CreateRequest(ctx context.Context, customerID, origin, destination string) (*domain.Request, error) {
	now := time.Now()
	request := &domain.Request{
		ID:          utils.GenerateID("req"),
		CustomerID:  customerID,
		Origin:      origin,
		Destination: destination,
		Status:      domain.RequestOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	s.publish(ctx, &domain.OfferEvent{
		Type:        domain.EventRequestCreated,
		RequestID:   request.ID,
		CustomerID:  customerID,
		Origin:      origin,
		Destination: destination,
		Timestamp:   now,
	})

	s.log.Info("Request created", "request_id", request.ID, "customer_id", customerID)
	return request, nil
}

func (s *OfferService) SubmitOffer(ctx context.Context, requestID, driverID string, price float64) (*domain.Offer, error) {
	if err := s.validator.ValidatePrice(price); err != nil {
		return nil, err
	}

	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	offer := &domain.Offer{
		ID:        utils.GenerateID("offer"),
		RequestID: requestID,
		DriverID:  driverID,
		Price:     price,
		Status:    domain.OfferOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}

	s.publish(ctx, &domain.OfferEvent{
		Type:        domain.EventOfferSubmitted,
		OfferID:     offer.ID,
		RequestID:   requestID,
		DriverID:    driverID,
		CustomerID:  request.CustomerID,
		Origin:      request.Origin,
		Destination: request.Destination,
		Price:       price,
		Timestamp:   now,
	})

	s.log.Info("Offer submitted", "offer_id", offer.ID, "request_id", requestID, "driver_id", driverID)
	return offer, nil
}

// AcceptOffer runs the acceptance transition and publishes the event the
// real-time path delivers to the driver. The polling path sees the same
// acceptance through AcceptedOfferForDriver, which is what guarantees
// delivery when the driver is offline.
func (s *OfferService) AcceptOffer(ctx context.Context, requestID, offerID string) (*domain.AcceptedOffer, error) {
	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AcceptOffer(ctx, requestID, offerID); err != nil {
		return nil, err
	}

	snapshot := &domain.AcceptedOffer{
		OfferID:     offer.ID,
		RequestID:   requestID,
		Origin:      request.Origin,
		Destination: request.Destination,
		Price:       offer.Price,
	}

	s.publish(ctx, &domain.OfferEvent{
		Type:        domain.EventOfferAccepted,
		OfferID:     offer.ID,
		RequestID:   requestID,
		DriverID:    offer.DriverID,
		CustomerID:  request.CustomerID,
		Origin:      request.Origin,
		Destination: request.Destination,
		Price:       offer.Price,
		Timestamp:   time.Now(),
	})

	s.log.Info("Offer accepted", "offer_id", offerID, "request_id", requestID, "driver_id", offer.DriverID)
	return snapshot, nil
}

func (s *OfferService) AcceptedOfferForDriver(ctx context.Context, driverID string) (*domain.AcceptedOffer, error) {
	return s.repo.AcceptedOfferForDriver(ctx, driverID)
}

func (s *OfferService) ExpireStaleOffers(ctx context.Context, maxAge time.Duration) (int64, error) {
	expired, err := s.repo.ExpireOffersBefore(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info("Expired stale offers", "count", expired)
	}
	return expired, nil
}

// publish is best effort: a lost event only delays the driver until the next
// poll cycle.
func (s *OfferService) publish(ctx context.Context, event *domain.OfferEvent) {
	if err := s.publisher.PublishOfferEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish offer event", "type", event.Type,
			"offer_id", event.OfferID, "error", err)
	}
}
