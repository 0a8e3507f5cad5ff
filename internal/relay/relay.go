// Package relay tracks which users hold a live connection, publishes presence
// changes and forwards messages and typing signals to the recipient's connection.
//
// The relay is in-memory and single-process. Messages reach it after the
// history API has persisted them, so a dropped relay only costs immediacy.
package relay

import (
	"sync"

	"chat_relay/internal/model"
)

type Relay struct {
	registry    *Registry
	broadcaster *Broadcaster
	messages    *MessageRouter
	typing      *TypingRouter
	lifecycle   *Lifecycle

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

func New() *Relay {
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry)

	return &Relay{
		registry:    registry,
		broadcaster: broadcaster,
		messages:    NewMessageRouter(registry),
		typing:      NewTypingRouter(registry),
		lifecycle:   NewLifecycle(registry, broadcaster),
		sessions:    make(map[string]*Session),
	}
}

// Connect opens an unannounced session for a freshly accepted connection.
func (r *Relay) Connect(conn Connection) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRelayClosed
	}
	s := NewSession(conn)
	r.sessions[conn.ID()] = s
	return s, nil
}

func (r *Relay) Announce(s *Session, userID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRelayClosed
	}
	return r.lifecycle.Announce(s, userID)
}

// Disconnect must be called once the transport has closed; repeated calls are no-ops.
func (r *Relay) Disconnect(s *Session) {
	id := s.Conn().ID()
	r.mu.Lock()
	if cur, ok := r.sessions[id]; ok && cur == s {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	r.lifecycle.Disconnect(s)
}

func (r *Relay) SendMessage(msg model.Message) bool {
	return r.messages.Route(msg)
}

func (r *Relay) SetTyping(signal model.TypingSignal) bool {
	return r.typing.Route(signal)
}

func (r *Relay) Online() model.PresenceSet {
	return r.registry.Snapshot()
}

func (r *Relay) Lookup(userID string) (Connection, bool) {
	return r.registry.Lookup(userID)
}

// Close drops every live session without broadcasting. Sessions opened
// afterwards are refused.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		r.lifecycle.close(s, false)
	}
}
