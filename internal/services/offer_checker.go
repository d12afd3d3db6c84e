package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

const checkTimeout = 10 * time.Second

// AcceptedOfferChecker polls the backend for an accepted offer. One network
// call per Check; a transport failure is "nothing observed this cycle", not
// an error. The active-job filter lives here so both poll cadences and the
// resume hook apply it identically.
type AcceptedOfferChecker struct {
	baseURL    string
	client     *http.Client
	activeJobs *ActiveJobTracker
	log        logger.Logger
}

func NewAcceptedOfferChecker(baseURL string, activeJobs *ActiveJobTracker, log logger.Logger) *AcceptedOfferChecker {
	return &AcceptedOfferChecker{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: checkTimeout},
		activeJobs: activeJobs,
		log:        log,
	}
}

type acceptedOfferResponse struct {
	HasAcceptedOffer bool                  `json:"has_accepted_offer"`
	Offer            *domain.AcceptedOffer `json:"offer"`
}

func (c *AcceptedOfferChecker) Check(ctx context.Context, driverID string) *domain.AcceptedOffer {
	url := fmt.Sprintf("%s/api/v1/drivers/%s/accepted-offer", c.baseURL, driverID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Error("Failed to build check request", "driver_id", driverID, "error", err)
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("Offer check failed", "driver_id", driverID, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Offer check returned non-OK status", "driver_id", driverID, "status", resp.StatusCode)
		return nil
	}

	var body acceptedOfferResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Error("Failed to decode check response", "driver_id", driverID, "error", err)
		return nil
	}

	if !body.HasAcceptedOffer || body.Offer == nil {
		return nil
	}

	// An accepted offer for the job already in hand is not new.
	if active := c.activeJobs.Active(ctx, driverID); active != "" && active == body.Offer.RequestID {
		c.log.Debug("Suppressing offer for active request",
			"driver_id", driverID, "request_id", active, "offer_id", body.Offer.OfferID)
		return nil
	}

	return body.Offer
}
