package redis

import (
	"context"
	"encoding/json"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

func (r *RedisEventSubscriber) SubscribeToOfferEvents(ctx context.Context, handler domain.OfferEventHandler) error {
	pubsub := r.client.Subscribe(ctx, offerEventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to offer events")

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event domain.OfferEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				r.log.Error("Failed to handle event", "type", event.Type, "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
