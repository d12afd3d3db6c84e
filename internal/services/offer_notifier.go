package services

import (
	"context"
	"sync"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

// OfferNotifier is the single decision path every trigger converges on:
// the background sweep, the foreground ticker, the resume hook and the push
// channel all call NotifyIfNew, so the active-job and dedup filters apply
// identically no matter which path fired. The check-then-mark sequence is
// serialized so concurrent triggers observing the same offer cannot both
// surface it.
type OfferNotifier struct {
	dedup   *OfferDeduplicator
	jobs    *ActiveJobTracker
	mu      sync.Mutex
	handler domain.AcceptedOfferHandler
	log     logger.Logger
}

func NewOfferNotifier(dedup *OfferDeduplicator, jobs *ActiveJobTracker, log logger.Logger) *OfferNotifier {
	return &OfferNotifier{
		dedup: dedup,
		jobs:  jobs,
		log:   log,
	}
}

// SetHandler registers the single accepted-offer handler, replacing any
// previous one. A nil handler disables delivery.
func (n *OfferNotifier) SetHandler(handler domain.AcceptedOfferHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handler = handler
}

// NotifyIfNew surfaces the offer unless it was already surfaced. The offer is
// marked only after the handler ran, so a disabled handler does not poison
// the dedup set.
func (n *OfferNotifier) NotifyIfNew(ctx context.Context, driverID string, offer domain.AcceptedOffer) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handler == nil {
		return false
	}
	// An offer for the job already in hand is never surfaced. Not marked
	// either: if the active slot clears while the offer is still live, the
	// next trigger delivers it.
	if active := n.jobs.Active(ctx, driverID); active != "" && active == offer.RequestID {
		n.log.Debug("Suppressing offer for active request",
			"driver_id", driverID, "offer_id", offer.OfferID, "request_id", offer.RequestID)
		return false
	}
	if n.dedup.HasBeenNotified(ctx, driverID, offer.OfferID) {
		return false
	}

	n.log.Info("Surfacing accepted offer",
		"driver_id", driverID, "offer_id", offer.OfferID, "request_id", offer.RequestID)
	n.handler(offer)
	n.dedup.MarkNotified(ctx, driverID, offer.OfferID)
	return true
}
