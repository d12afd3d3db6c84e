package services

import (
	"context"
	"fmt"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

const notifiedOffersKeyFmt = "dispatch:driver:%s:notified_offers"

// OfferDeduplicator remembers which offer ids were already surfaced to the
// driver. Store failures fail open: a missed suppression is repaired on the
// next cycle, a missed notification is not.
type OfferDeduplicator struct {
	store domain.KeyValueStore
	log   logger.Logger
}

func NewOfferDeduplicator(store domain.KeyValueStore, log logger.Logger) *OfferDeduplicator {
	return &OfferDeduplicator{
		store: store,
		log:   log,
	}
}

func (d *OfferDeduplicator) HasBeenNotified(ctx context.Context, driverID, offerID string) bool {
	notified, err := d.store.HasSetMember(ctx, notifiedOffersKey(driverID), offerID)
	if err != nil {
		d.log.Error("Failed to read notified set, treating as not notified",
			"driver_id", driverID, "offer_id", offerID, "error", err)
		return false
	}
	return notified
}

// MarkNotified is an idempotent insert; marking the same offer twice is a
// no-op.
func (d *OfferDeduplicator) MarkNotified(ctx context.Context, driverID, offerID string) {
	if err := d.store.AddSetMember(ctx, notifiedOffersKey(driverID), offerID); err != nil {
		d.log.Error("Failed to persist notified offer",
			"driver_id", driverID, "offer_id", offerID, "error", err)
	}
}

// Reset clears the set. Called on logout/account switch, which bounds the
// set's growth to one login session.
func (d *OfferDeduplicator) Reset(ctx context.Context, driverID string) error {
	return d.store.Delete(ctx, notifiedOffersKey(driverID))
}

func notifiedOffersKey(driverID string) string {
	return fmt.Sprintf(notifiedOffersKeyFmt, driverID)
}
