package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisTopic carries all cross-instance live pushes. Each instance
// subscribes once and routes into its local hub.
const redisTopic = "pressroom:live"

// envelope is the cross-instance wire format for one push.
type envelope struct {
	Origin  string          `json:"origin"`
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// RedisRegistry extends the process-local hub with a Redis pub/sub broadcast
// so pushes reach subscribers on every instance. Join/Leave stay local:
// membership lives and dies with the connection.
type RedisRegistry struct {
	*Hub
	client *redis.Client
	origin string
	logger *slog.Logger
}

// NewRedisRegistry wraps a hub with cross-instance broadcast. Call Run to
// start consuming remote publishes.
func NewRedisRegistry(hub *Hub, client *redis.Client, logger *slog.Logger) *RedisRegistry {
	return &RedisRegistry{
		Hub:    hub,
		client: client,
		origin: uuid.NewString(),
		logger: logger,
	}
}

// Publish delivers locally first, then broadcasts to other instances. The
// returned count covers local deliveries only; remote instances deliver
// best-effort on their own.
func (r *RedisRegistry) Publish(ctx context.Context, channel, event string, payload any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal %s payload: %w", event, err)
	}

	delivered := r.broadcast(channel, Frame{Event: event, Data: data})

	env, err := json.Marshal(envelope{
		Origin:  r.origin,
		Channel: channel,
		Event:   event,
		Data:    data,
	})
	if err != nil {
		return delivered, fmt.Errorf("marshal publish envelope: %w", err)
	}
	if err := r.client.Publish(ctx, redisTopic, env).Err(); err != nil {
		return delivered, fmt.Errorf("redis publish: %w", err)
	}
	return delivered, nil
}

// Run consumes remote publishes until the context is canceled. Messages this
// instance published are skipped; they were already delivered locally.
func (r *RedisRegistry) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, redisTopic)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("dropping malformed live envelope", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.broadcast(env.Channel, Frame{Event: env.Event, Data: env.Data})
		}
	}
}
