package services

import (
	"context"
	"errors"
	"fmt"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

const activeRequestKeyFmt = "dispatch:driver:%s:active_request"

// ActiveJobTracker persists the single request id the driver is currently
// executing. It is a pure accessor; the surrounding job-execution flow calls
// SetActive exactly when work starts and when it ends.
type ActiveJobTracker struct {
	store domain.KeyValueStore
	log   logger.Logger
}

func NewActiveJobTracker(store domain.KeyValueStore, log logger.Logger) *ActiveJobTracker {
	return &ActiveJobTracker{
		store: store,
		log:   log,
	}
}

// SetActive overwrites the slot. An empty request id clears it.
func (t *ActiveJobTracker) SetActive(ctx context.Context, driverID, requestID string) error {
	key := activeRequestKey(driverID)
	if requestID == "" {
		return t.store.Delete(ctx, key)
	}
	return t.store.Set(ctx, key, requestID)
}

// Active returns the current request id, or "" when none is set. Read
// failures are treated as "no active job": over-notifying is recoverable,
// suppressing a real job is not.
func (t *ActiveJobTracker) Active(ctx context.Context, driverID string) string {
	value, err := t.store.Get(ctx, activeRequestKey(driverID))
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			t.log.Error("Failed to read active request, treating as none",
				"driver_id", driverID, "error", err)
		}
		return ""
	}
	return value
}

func activeRequestKey(driverID string) string {
	return fmt.Sprintf(activeRequestKeyFmt, driverID)
}
