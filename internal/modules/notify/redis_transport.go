// README: Redis pub/sub transport; channels map directly to Redis channels.
package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type RedisTransport struct {
	client *redis.Client
}

func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

func (t *RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.client.Publish(ctx, channel, payload).Err()
}
