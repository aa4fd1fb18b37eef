package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/id"
	"github.com/tradepost/catalog-server/internal/validation"
)

// MessageStore persists direct messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *domain.Message) error
	ListConversation(ctx context.Context, userA, userB string, limit int) ([]*domain.Message, error)
}

// Conversation page sizes.
const (
	DefaultConversationLimit = 50
	MaxConversationLimit     = 200
)

// Handlers receive what a subscription delivers. Either may be nil.
type Handlers struct {
	OnMessage  func(*domain.Message)
	OnPresence func(domain.PresenceEvent)
}

// Hub routes direct messages to the sender and recipient channels and
// tracks which users are online.
type Hub struct {
	broker    Broker
	store     MessageStore
	logger    *slog.Logger
	validator *validation.Validator

	mu     sync.Mutex
	cancel map[int]func()
	nextID int
	wg     sync.WaitGroup

	// presence counts open connections per user.
	presenceMu sync.Mutex
	presence   map[string]int
}

// NewHub creates a hub publishing through broker and persisting to store.
func NewHub(broker Broker, store MessageStore, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		broker:    broker,
		store:     store,
		logger:    logger,
		validator: validation.New(),
		cancel:    make(map[int]func()),
		presence:  make(map[string]int),
	}
}

// Subscribe delivers userID's messages, and every presence change when
// OnPresence is set, to h. Handlers run on one goroutine per subscription,
// in channel order. The returned func unsubscribes.
func (hub *Hub) Subscribe(userID string, h Handlers) (func(), error) {
	if userID == "" {
		return nil, domainerrors.Unauthorized("user identity required")
	}

	ctx, cancelCtx := context.WithCancel(context.Background())

	messages, cancelMessages, err := hub.broker.Subscribe(ctx, UserChannel(userID))
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe messages: %w", err)
	}

	var presence <-chan Envelope
	cancelPresence := func() {}
	if h.OnPresence != nil {
		presence, cancelPresence, err = hub.broker.Subscribe(ctx, PresenceChannel)
		if err != nil {
			cancelMessages()
			cancelCtx()
			return nil, fmt.Errorf("subscribe presence: %w", err)
		}
	}

	hub.mu.Lock()
	subID := hub.nextID
	hub.nextID++
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			hub.mu.Lock()
			delete(hub.cancel, subID)
			hub.mu.Unlock()
			cancelCtx()
			cancelMessages()
			cancelPresence()
		})
	}
	hub.cancel[subID] = unsubscribe
	hub.wg.Add(1)
	hub.mu.Unlock()

	go func() {
		defer hub.wg.Done()
		hub.drain(messages, presence, h)
	}()

	return unsubscribe, nil
}

func (hub *Hub) drain(messages, presence <-chan Envelope, h Handlers) {
	for messages != nil || presence != nil {
		var env Envelope
		var ok bool
		select {
		case env, ok = <-messages:
			if !ok {
				messages = nil
				continue
			}
		case env, ok = <-presence:
			if !ok {
				presence = nil
				continue
			}
		}

		switch env.Kind {
		case KindMessage:
			if h.OnMessage != nil && env.Message != nil {
				h.OnMessage(env.Message)
			}
		case KindPresence:
			if h.OnPresence != nil && env.Presence != nil {
				h.OnPresence(*env.Presence)
			}
		}
	}
}

// SendMessageRequest is a message to deliver.
type SendMessageRequest struct {
	SenderID    string `json:"sender_id" validate:"required"`
	RecipientID string `json:"recipient_id" validate:"required,nefield=SenderID"`
	Body        string `json:"body" validate:"required,notblank,max=4000"`
	ClientRef   string `json:"client_ref,omitempty" validate:"max=128"`
}

// SendMessage stores the message and publishes it to the recipient and, as
// an echo carrying ClientRef, to the sender. A publish failure is logged
// but does not fail the send: the message is already stored and the
// recipient sees it in the conversation history.
func (hub *Hub) SendMessage(ctx context.Context, req SendMessageRequest) (*domain.Message, error) {
	if err := hub.validator.Validate(req); err != nil {
		return nil, err
	}

	msgID, err := id.Generate(id.PrefixMessage)
	if err != nil {
		return nil, err
	}
	m := &domain.Message{
		ID:          msgID,
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Body:        strings.TrimSpace(req.Body),
		ClientRef:   req.ClientRef,
		CreatedAt:   time.Now().UTC(),
	}

	if err := hub.store.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	env := Envelope{Kind: KindMessage, Message: m}
	for _, ch := range []string{UserChannel(m.RecipientID), UserChannel(m.SenderID)} {
		if err := hub.broker.Publish(ctx, ch, env); err != nil {
			hub.logger.Warn("failed to publish message",
				slog.String("message_id", m.ID),
				slog.String("channel", ch),
				slog.String("error", err.Error()))
		}
	}

	hub.logger.Debug("message sent",
		slog.String("message_id", m.ID),
		slog.String("sender_id", m.SenderID),
		slog.String("recipient_id", m.RecipientID))
	return m, nil
}

// Conversation returns up to limit of the latest messages between a and b,
// oldest first.
func (hub *Hub) Conversation(ctx context.Context, a, b string, limit int) ([]*domain.Message, error) {
	if a == "" || b == "" {
		return nil, domainerrors.Validation("both participants are required")
	}
	if limit <= 0 {
		limit = DefaultConversationLimit
	}
	limit = min(limit, MaxConversationLimit)
	return hub.store.ListConversation(ctx, a, b, limit)
}

// Join records one more open connection for userID. The first connection
// announces the user online.
func (hub *Hub) Join(ctx context.Context, userID string) {
	hub.presenceMu.Lock()
	hub.presence[userID]++
	first := hub.presence[userID] == 1
	hub.presenceMu.Unlock()

	if first {
		hub.announce(ctx, userID, true)
	}
}

// Leave records a closed connection for userID. The last one announces the
// user offline.
func (hub *Hub) Leave(ctx context.Context, userID string) {
	hub.presenceMu.Lock()
	n, ok := hub.presence[userID]
	if !ok {
		hub.presenceMu.Unlock()
		return
	}
	last := n <= 1
	if last {
		delete(hub.presence, userID)
	} else {
		hub.presence[userID] = n - 1
	}
	hub.presenceMu.Unlock()

	if last {
		hub.announce(ctx, userID, false)
	}
}

func (hub *Hub) announce(ctx context.Context, userID string, online bool) {
	event := &domain.PresenceEvent{UserID: userID, Online: online, At: time.Now().UTC()}
	err := hub.broker.Publish(ctx, PresenceChannel, Envelope{Kind: KindPresence, Presence: event})
	if err != nil && !errors.Is(err, ErrBrokerClosed) {
		hub.logger.Warn("failed to publish presence",
			slog.String("user_id", userID),
			slog.Bool("online", online),
			slog.String("error", err.Error()))
	}
}

// Online returns the users with at least one open connection, sorted.
func (hub *Hub) Online() []string {
	hub.presenceMu.Lock()
	defer hub.presenceMu.Unlock()

	out := make([]string, 0, len(hub.presence))
	for userID := range hub.presence {
		out = append(out, userID)
	}
	slices.Sort(out)
	return out
}

// IsOnline reports whether userID has an open connection.
func (hub *Hub) IsOnline(userID string) bool {
	hub.presenceMu.Lock()
	defer hub.presenceMu.Unlock()
	return hub.presence[userID] > 0
}

// Shutdown ends every subscription and waits for their handlers to return.
func (hub *Hub) Shutdown() error {
	hub.mu.Lock()
	cancels := make([]func(), 0, len(hub.cancel))
	for _, c := range hub.cancel {
		cancels = append(cancels, c)
	}
	hub.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	hub.wg.Wait()
	return nil
}
