package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBrokerClosed is returned by brokers after Close.
var ErrBrokerClosed = errors.New("messaging: broker closed")

// RedisOptions configures a Redis broker connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisBroker publishes envelopes as JSON over Redis pub/sub, so messages
// and presence reach users connected to any server instance.
type RedisBroker struct {
	client *redis.Client
	buffer int
	logger *slog.Logger
}

// ConnectRedis creates a Redis client and verifies the connection with a ping.
func ConnectRedis(opts RedisOptions, logger *slog.Logger) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	b := NewRedisBroker(client, logger)
	b.logger.Info("redis broker connected", "addr", opts.Addr)
	return b, nil
}

// NewRedisBroker wraps an existing client. Close closes the client.
func NewRedisBroker(client *redis.Client, logger *slog.Logger) *RedisBroker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisBroker{client: client, buffer: DefaultBuffer, logger: logger}
}

// Publish encodes env and publishes it on channel.
func (b *RedisBroker) Publish(ctx context.Context, channel string, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return ErrBrokerClosed
		}
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe subscribes to channel and waits for Redis to confirm, so an
// envelope published after Subscribe returns is not missed.
func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan Envelope, func(), error) {
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan Envelope, b.buffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)

		in := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn("discarding malformed envelope",
						slog.String("channel", channel),
						slog.String("error", err.Error()))
					continue
				}
				select {
				case out <- env:
				default:
					b.logger.Warn("dropped envelope for slow subscriber",
						slog.String("channel", channel),
						slog.String("kind", string(env.Kind)))
				}
			}
		}
	}()

	return out, func() {
		cancel()
		_ = pubsub.Close()
		<-done
	}, nil
}

// Close closes the underlying client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
