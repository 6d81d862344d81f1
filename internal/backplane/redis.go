// Package backplane carries realtime broadcasts between server processes so
// that connections held by different nodes receive the same events.
package backplane

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/thereayou/direct-chat/internal/websocket"
	"github.com/thereayou/direct-chat/pkg/logger"
)

// Redis fans broadcasts out over a redis pub/sub channel.
type Redis struct {
	rdb     *redis.Client
	channel string
}

func NewRedis(rdb *redis.Client, channel string) *Redis {
	return &Redis{rdb: rdb, channel: channel}
}

func (r *Redis) Publish(ctx context.Context, env websocket.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, data).Err()
}

func (r *Redis) Subscribe(ctx context.Context, deliver func(websocket.Envelope)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env websocket.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn().Err(err).Msg("undecodable backplane envelope")
				continue
			}
			deliver(env)
		}
	}
}

// Close is a no-op; the redis client is owned by the server.
func (r *Redis) Close() error {
	return nil
}
