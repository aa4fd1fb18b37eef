// Package messaging delivers direct messages and presence changes between
// marketplace users through a swappable pub/sub broker.
package messaging

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tradepost/catalog-server/internal/domain"
)

// PresenceChannel carries presence events for every user.
const PresenceChannel = "presence"

// UserChannel returns the channel a user's messages are published on.
func UserChannel(userID string) string {
	return "user:" + userID
}

// EnvelopeKind identifies the payload of an Envelope.
type EnvelopeKind string

// Envelope kinds.
const (
	KindMessage  EnvelopeKind = "message"
	KindPresence EnvelopeKind = "presence"
)

// Envelope is the unit published on a broker channel.
type Envelope struct {
	Kind     EnvelopeKind          `json:"kind"`
	Message  *domain.Message       `json:"message,omitempty"`
	Presence *domain.PresenceEvent `json:"presence,omitempty"`
}

// Broker is a publish/subscribe transport. Ordering is guaranteed per
// channel only.
type Broker interface {
	Publish(ctx context.Context, channel string, env Envelope) error
	// Subscribe returns a channel of envelopes and a cancel func that
	// unsubscribes and closes it. Canceling ctx has the same effect.
	Subscribe(ctx context.Context, channel string) (<-chan Envelope, func(), error)
	Close() error
}

// DefaultBuffer is the per-subscriber buffer of MemoryBroker.
const DefaultBuffer = 64

// MemoryBroker is an in-process Broker. A subscriber whose buffer is full
// misses the envelope; publishers never block.
type MemoryBroker struct {
	mu      sync.RWMutex
	subs    map[string]map[*memorySub]struct{}
	buffer  int
	closed  bool
	dropped atomic.Int64
	logger  *slog.Logger
}

type memorySub struct {
	ch   chan Envelope
	once sync.Once
}

// NewMemoryBroker creates an in-process broker. A buffer of zero or less
// uses DefaultBuffer.
func NewMemoryBroker(buffer int, logger *slog.Logger) *MemoryBroker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySub]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Publish fans env out to every current subscriber of channel.
func (b *MemoryBroker) Publish(ctx context.Context, channel string, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}

	for sub := range b.subs[channel] {
		select {
		case sub.ch <- env:
		default:
			b.dropped.Add(1)
			b.logger.Warn("dropped envelope for slow subscriber",
				slog.String("channel", channel),
				slog.String("kind", string(env.Kind)))
		}
	}
	return nil
}

// Subscribe registers a subscriber on channel.
func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (<-chan Envelope, func(), error) {
	sub := &memorySub{ch: make(chan Envelope, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, ErrBrokerClosed
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySub]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[channel]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subs, channel)
			}
		}
		b.mu.Unlock()
		sub.close()
	}

	stop := context.AfterFunc(ctx, cancel)
	return sub.ch, func() {
		stop()
		cancel()
	}, nil
}

func (s *memorySub) close() {
	s.once.Do(func() { close(s.ch) })
}

// Dropped returns how many envelopes were discarded for slow subscribers.
func (b *MemoryBroker) Dropped() int64 {
	return b.dropped.Load()
}

// Close unsubscribes everyone.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for sub := range set {
			sub.close()
		}
	}
	b.subs = nil
	return nil
}
