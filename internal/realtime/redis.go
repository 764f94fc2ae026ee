package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis pub/sub channel shared by all instances
const DefaultChannel = "bizflow:realtime"

type relayFrame struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisEmitter publishes events so every instance's Relay can deliver them locally
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

// NewRedisEmitter creates an emitter publishing on channel
func NewRedisEmitter(client *redis.Client, channel string) *RedisEmitter {
	return &RedisEmitter{client: client, channel: channel}
}

// Emit publishes one event
func (e *RedisEmitter) Emit(room, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(relayFrame{Room: room, Event: event, Data: raw})
	if err != nil {
		return err
	}
	if err := e.client.Publish(context.Background(), e.channel, frame).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Relay subscribes to the shared channel and hands frames to the local hub
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     zerolog.Logger
	ready   chan struct{}
}

// NewRelay creates a relay into hub
func NewRelay(client *redis.Client, channel string, hub *Hub, log zerolog.Logger) *Relay {
	return &Relay{
		client:  client,
		channel: channel,
		hub:     hub,
		log:     log,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the subscription is confirmed
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Run blocks until ctx is cancelled or the subscription fails
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	close(r.ready)
	r.log.Info().Str("channel", r.channel).Msg("realtime relay subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var frame relayFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				r.log.Warn().Err(err).Msg("dropping malformed relay frame")
				continue
			}
			if err := r.hub.EmitRaw(frame.Room, frame.Event, frame.Data); err != nil {
				r.log.Warn().Err(err).Str("room", frame.Room).Msg("relay emit failed")
			}
		}
	}
}
