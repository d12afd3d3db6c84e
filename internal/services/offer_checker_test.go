package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"
)

func acceptedOfferBackend(t *testing.T, response acceptedOfferResponse) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/drivers/42/accepted-offer" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)
	return server
}

func offer9() *domain.AcceptedOffer {
	return &domain.AcceptedOffer{
		OfferID:     "9",
		RequestID:   "100",
		Origin:      "A",
		Destination: "B",
		Price:       500,
	}
}

func TestCheckReturnsSnapshot(t *testing.T) {
	server := acceptedOfferBackend(t, acceptedOfferResponse{HasAcceptedOffer: true, Offer: offer9()})
	tracker := NewActiveJobTracker(newMemKV(), logger.NewNop())
	checker := NewAcceptedOfferChecker(server.URL, tracker, logger.NewNop())

	got := checker.Check(context.Background(), "42")
	if got == nil {
		t.Fatal("Check returned nil, want snapshot")
	}
	if got.OfferID != "9" || got.RequestID != "100" || got.Price != 500 {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestCheckNoAcceptedOffer(t *testing.T) {
	server := acceptedOfferBackend(t, acceptedOfferResponse{HasAcceptedOffer: false})
	tracker := NewActiveJobTracker(newMemKV(), logger.NewNop())
	checker := NewAcceptedOfferChecker(server.URL, tracker, logger.NewNop())

	if got := checker.Check(context.Background(), "42"); got != nil {
		t.Fatalf("Check = %+v, want nil", got)
	}
}

func TestCheckTransportFailureIsNil(t *testing.T) {
	server := acceptedOfferBackend(t, acceptedOfferResponse{HasAcceptedOffer: true, Offer: offer9()})
	server.Close() // connection refused from here on
	tracker := NewActiveJobTracker(newMemKV(), logger.NewNop())
	checker := NewAcceptedOfferChecker(server.URL, tracker, logger.NewNop())

	if got := checker.Check(context.Background(), "42"); got != nil {
		t.Fatalf("Check after transport failure = %+v, want nil", got)
	}
}

func TestCheckNonOKStatusIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	tracker := NewActiveJobTracker(newMemKV(), logger.NewNop())
	checker := NewAcceptedOfferChecker(server.URL, tracker, logger.NewNop())

	if got := checker.Check(context.Background(), "42"); got != nil {
		t.Fatalf("Check on 500 = %+v, want nil", got)
	}
}

func TestCheckSuppressesActiveRequest(t *testing.T) {
	server := acceptedOfferBackend(t, acceptedOfferResponse{HasAcceptedOffer: true, Offer: offer9()})
	tracker := NewActiveJobTracker(newMemKV(), logger.NewNop())
	checker := NewAcceptedOfferChecker(server.URL, tracker, logger.NewNop())
	ctx := context.Background()

	if err := tracker.SetActive(ctx, "42", "100"); err != nil {
		t.Fatalf("set active: %v", err)
	}

	if got := checker.Check(ctx, "42"); got != nil {
		t.Fatalf("Check = %+v, want nil while request 100 is the active job", got)
	}

	// A different active job does not suppress.
	if err := tracker.SetActive(ctx, "42", "200"); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if got := checker.Check(ctx, "42"); got == nil {
		t.Fatal("Check = nil, want snapshot when the active job is unrelated")
	}
}
