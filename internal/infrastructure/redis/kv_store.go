package redis

import (
	"context"
	"time"

	"cargo-dispatch/internal/domain"

	"github.com/go-redis/redis/v8"
)

// setRetention keeps abandoned notified-offer sets from living forever; the
// TTL is refreshed on every write, so active sessions never expire early.
const setRetention = 30 * 24 * time.Hour

// RedisKeyValueStore backs the durable key-value capability: the notified
// offer set and the active-request marker.
type RedisKeyValueStore struct {
	client *redis.Client
}

func NewKeyValueStore(client *redis.Client) *RedisKeyValueStore {
	return &RedisKeyValueStore{client: client}
}

func (r *RedisKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", domain.ErrKeyNotFound
		}
		return "", err
	}
	return result, nil
}

func (r *RedisKeyValueStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKeyValueStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// AddSetMember adds the member and refreshes the retention TTL in one
// transactional pipeline, so the set never ends up persisted without a TTL.
func (r *RedisKeyValueStore) AddSetMember(ctx context.Context, key, member string) error {
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, member)
	pipe.Expire(ctx, key, setRetention)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisKeyValueStore) HasSetMember(ctx context.Context, key, member string) (bool, error) {
	return r.client.SIsMember(ctx, key, member).Result()
}
