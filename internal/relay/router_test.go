package relay

import (
	"testing"
	"time"

	"chat_relay/internal/model"

	"github.com/stretchr/testify/require"
)

func TestMessageRouter_Route_To_Offline_Recipient(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sender := newFakeConn()
	registry.Register("u1", sender)
	router := NewMessageRouter(registry)

	delivered := router.Route(model.Message{ChatID: "c1", SenderID: "u1", RecipientID: "ghost", Text: "hi"})

	req.False(delivered)
	req.Empty(sender.received(model.EventMessage))
}

func TestMessageRouter_Route_Unicast(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := newFakeConn()
	bob := newFakeConn()
	registry.Register("alice", alice)
	registry.Register("bob", bob)
	router := NewMessageRouter(registry)
	msg := model.Message{
		ChatID:      "c1",
		SenderID:    "alice",
		RecipientID: "bob",
		Text:        "hello",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	delivered := router.Route(msg)

	// Then exactly one delivery, to bob only
	req.True(delivered)
	req.Empty(alice.received(model.EventMessage))
	events := bob.received(model.EventMessage)
	req.Len(events, 1)

	var got model.Message
	req.NoError(events[0].Decode(&got))
	req.Equal(msg, got)
}

func TestMessageRouter_Route_Follows_Newest_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	old := newFakeConn()
	fresh := newFakeConn()
	registry.Register("bob", old)
	registry.Register("bob", fresh)

	NewMessageRouter(registry).Route(model.Message{SenderID: "alice", RecipientID: "bob", Text: "x"})

	req.Empty(old.received(model.EventMessage))
	req.Len(fresh.received(model.EventMessage), 1)
}

func TestMessageRouter_Route_Delivery_Failure_Is_Swallowed(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	bob := newFakeConn()
	bob.fail = true
	registry.Register("bob", bob)

	req.NotPanics(func() {
		req.False(NewMessageRouter(registry).Route(model.Message{SenderID: "alice", RecipientID: "bob"}))
	})
}

func TestTypingRouter_Route(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := newFakeConn()
	bob := newFakeConn()
	registry.Register("alice", alice)
	registry.Register("bob", bob)
	router := NewTypingRouter(registry)

	req.True(router.Route(model.TypingSignal{UserID: "alice", RecipientID: "bob", IsTyping: true}))
	req.True(router.Route(model.TypingSignal{UserID: "alice", RecipientID: "bob", IsTyping: false}))
	req.False(router.Route(model.TypingSignal{UserID: "alice", RecipientID: "carol", IsTyping: true}))

	events := bob.received(model.EventTypingUpdate)
	req.Len(events, 2)
	var last model.TypingSignal
	req.NoError(events[1].Decode(&last))
	req.False(last.IsTyping)
	req.Empty(alice.received(model.EventTypingUpdate))
}
