package websocket

import (
	"context"
	"encoding/json"
	"time"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"

	"github.com/gorilla/websocket"
)

const reconnectDelay = 5 * time.Second

// PushListener is the driver-agent end of the live channel. It dials the
// dispatch service, authenticates as the driver, and surfaces offerAccepted
// pushes into the registered callback. The listener is strictly additive to
// the polling path: losing the connection only means the poller wins.
type PushListener struct {
	url      string
	driverID string
	onOffer  func(offer domain.AcceptedOffer)
	log      logger.Logger
}

func NewPushListener(url, driverID string, onOffer func(offer domain.AcceptedOffer), log logger.Logger) *PushListener {
	return &PushListener{
		url:      url,
		driverID: driverID,
		onOffer:  onOffer,
		log:      log,
	}
}

// Run dials and reads until ctx is cancelled, reconnecting after transport
// failures.
func (l *PushListener) Run(ctx context.Context) {
	for {
		if err := l.connectAndListen(ctx); err != nil {
			l.log.Warn("Push channel lost, relying on polling", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *PushListener) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the transport when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(map[string]interface{}{
		"type":      "authenticate",
		"user_type": domain.UserTypeDriver,
		"user_id":   l.driverID,
	}); err != nil {
		return err
	}

	l.log.Info("Push channel connected", "driver_id", l.driverID)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		l.handleMessage(payload)
	}
}

func (l *PushListener) handleMessage(payload []byte) {
	var msg struct {
		Type string `json:"type"`
		domain.AcceptedOffer
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.log.Error("Malformed push message", "error", err)
		return
	}

	switch msg.Type {
	case "offerAccepted":
		if msg.OfferID == "" {
			l.log.Error("offerAccepted push missing offer_id")
			return
		}
		l.onOffer(msg.AcceptedOffer)
	case "authenticated", "pong":
	case "error":
		l.log.Warn("Push channel error event", "payload", string(payload))
	default:
		// Chat, location and fleet events are consumed by the app UI layer,
		// not by the notification subsystem.
	}
}
