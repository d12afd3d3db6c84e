package redis

import (
	"context"
	"encoding/json"

	"cargo-dispatch/internal/domain"

	"github.com/go-redis/redis/v8"
)

const offerEventsChannel = "dispatch_events"

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishOfferEvent(ctx context.Context, event *domain.OfferEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, offerEventsChannel, data).Err()
}
