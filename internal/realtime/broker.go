package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// LocalBroker delivers events to the hub of this process only.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, userID string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode live event: %w", err)
	}
	b.hub.Send(userID, payload)
	return nil
}

// envelope is the Redis wire format: the addressee plus the encoded event.
type envelope struct {
	UserID string          `json:"user_id"`
	Event  json.RawMessage `json:"event"`
}

// RedisBroker publishes events on a Redis channel. Every instance runs
// Subscribe and forwards what it receives to its own hub, so a user reaches
// all of their connections whichever instance holds them.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	logger  *slog.Logger
}

func NewRedisBroker(rdb *redis.Client, channel string, hub *Hub, logger *slog.Logger) *RedisBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroker{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		logger:  logger.With("component", "redis_broker", "channel", channel),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, userID string, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode live event: %w", err)
	}
	msg, err := json.Marshal(envelope{UserID: userID, Event: raw})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe forwards channel messages to the hub until ctx is cancelled.
func (b *RedisBroker) Subscribe(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting readiness.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.logger.Info("subscribed to live channel")

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return nil
			}
			b.logger.Warn("error receiving live message", "error", err)
			continue
		}
		b.forward(msg.Payload)
	}
}

func (b *RedisBroker) forward(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("dropping malformed live envelope", "error", err)
		return
	}
	if env.UserID == "" || len(env.Event) == 0 {
		return
	}
	b.hub.Send(env.UserID, env.Event)
}
