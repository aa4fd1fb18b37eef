package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/store"
)

func newTestMessageStore(t *testing.T) MessageStore {
	t.Helper()
	s, err := store.OpenBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	broker := NewMemoryBroker(0, nil)
	hub := NewHub(broker, newTestMessageStore(t), nil)
	t.Cleanup(func() {
		_ = hub.Shutdown()
		_ = broker.Close()
	})
	return hub
}

func receiveMessage(t *testing.T, ch <-chan *domain.Message) *domain.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func receivePresence(t *testing.T, ch <-chan domain.PresenceEvent) domain.PresenceEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for presence event")
	}
	return domain.PresenceEvent{}
}

func collectMessages(t *testing.T, hub *Hub, userID string) <-chan *domain.Message {
	t.Helper()
	ch := make(chan *domain.Message, 16)
	unsubscribe, err := hub.Subscribe(userID, Handlers{OnMessage: func(m *domain.Message) { ch <- m }})
	require.NoError(t, err)
	t.Cleanup(unsubscribe)
	return ch
}

func TestHub_SendMessageDeliversAndEchoes(t *testing.T) {
	hub := newTestHub(t)
	ctx := context.Background()
	buyer := collectMessages(t, hub, "buyer")
	seller := collectMessages(t, hub, "seller")
	bystander := collectMessages(t, hub, "bystander")

	sent, err := hub.SendMessage(ctx, SendMessageRequest{
		SenderID:    "buyer",
		RecipientID: "seller",
		Body:        "  Do you ship to Rotterdam?  ",
		ClientRef:   "tmp-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "Do you ship to Rotterdam?", sent.Body)
	assert.False(t, sent.CreatedAt.IsZero())

	got := receiveMessage(t, seller)
	assert.Equal(t, sent.ID, got.ID)

	echo := receiveMessage(t, buyer)
	assert.Equal(t, sent.ID, echo.ID)
	assert.Equal(t, "tmp-42", echo.ClientRef)

	select {
	case m := <-bystander:
		t.Fatalf("bystander received %s", m.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SendMessageValidation(t *testing.T) {
	hub := newTestHub(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SendMessageRequest
	}{
		{"missing sender", SendMessageRequest{RecipientID: "b", Body: "hi"}},
		{"missing recipient", SendMessageRequest{SenderID: "a", Body: "hi"}},
		{"message to self", SendMessageRequest{SenderID: "a", RecipientID: "a", Body: "hi"}},
		{"blank body", SendMessageRequest{SenderID: "a", RecipientID: "b", Body: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hub.SendMessage(ctx, tt.req)
			require.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestHub_Conversation(t *testing.T) {
	hub := newTestHub(t)
	ctx := context.Background()

	for _, req := range []SendMessageRequest{
		{SenderID: "a", RecipientID: "b", Body: "one"},
		{SenderID: "b", RecipientID: "a", Body: "two"},
		{SenderID: "a", RecipientID: "c", Body: "elsewhere"},
		{SenderID: "a", RecipientID: "b", Body: "three"},
	} {
		_, err := hub.SendMessage(ctx, req)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	history, err := hub.Conversation(ctx, "b", "a", 0)
	require.NoError(t, err)
	bodies := make([]string, 0, len(history))
	for _, m := range history {
		bodies = append(bodies, m.Body)
	}
	assert.Equal(t, []string{"one", "two", "three"}, bodies)

	latest, err := hub.Conversation(ctx, "a", "b", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "three", latest[0].Body)

	_, err = hub.Conversation(ctx, "a", "", 10)
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestHub_PresenceRefCounting(t *testing.T) {
	hub := newTestHub(t)
	ctx := context.Background()

	events := make(chan domain.PresenceEvent, 16)
	unsubscribe, err := hub.Subscribe("watcher", Handlers{OnPresence: func(e domain.PresenceEvent) { events <- e }})
	require.NoError(t, err)
	defer unsubscribe()

	hub.Join(ctx, "alice")
	hub.Join(ctx, "alice")
	hub.Join(ctx, "bob")

	first := receivePresence(t, events)
	assert.Equal(t, domain.PresenceEvent{UserID: "alice", Online: true, At: first.At}, first)
	second := receivePresence(t, events)
	assert.Equal(t, "bob", second.UserID)
	assert.Equal(t, []string{"alice", "bob"}, hub.Online())

	// A second tab closing keeps alice online.
	hub.Leave(ctx, "alice")
	assert.True(t, hub.IsOnline("alice"))

	hub.Leave(ctx, "alice")
	offline := receivePresence(t, events)
	assert.Equal(t, "alice", offline.UserID)
	assert.False(t, offline.Online)
	assert.Equal(t, []string{"bob"}, hub.Online())

	// Leaving without joining is ignored.
	hub.Leave(ctx, "carol")
	select {
	case e := <-events:
		t.Fatalf("unexpected presence event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SubscribeRequiresUser(t *testing.T) {
	hub := newTestHub(t)

	_, err := hub.Subscribe("", Handlers{})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := newTestHub(t)
	ctx := context.Background()

	ch := make(chan *domain.Message, 4)
	unsubscribe, err := hub.Subscribe("seller", Handlers{OnMessage: func(m *domain.Message) { ch <- m }})
	require.NoError(t, err)
	unsubscribe()
	unsubscribe()

	_, err = hub.SendMessage(ctx, SendMessageRequest{SenderID: "buyer", RecipientID: "seller", Body: "hi"})
	require.NoError(t, err)

	select {
	case m := <-ch:
		t.Fatalf("received %s after unsubscribe", m.ID)
	case <-time.After(50 * time.Millisecond):
	}
}
