package relay

import (
	"fmt"
	"sync"

	"chat_relay/internal/utils/log"

	"go.uber.org/zap"
)

type State int

const (
	StateUnannounced State = iota
	StateAnnounced
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnannounced:
		return "unannounced"
	case StateAnnounced:
		return "announced"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session tracks one connection through Unannounced -> Announced -> Closed.
// Closed is terminal; a reconnect is a new Session.
type Session struct {
	conn Connection

	mu     sync.Mutex
	state  State
	userID string
}

func NewSession(conn Connection) *Session {
	return &Session{conn: conn}
}

func (s *Session) Conn() Connection {
	return s.conn
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID is empty until the session is announced.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Lifecycle owns the connect/disconnect transitions and the registry
// mutations and presence broadcasts they trigger.
type Lifecycle struct {
	registry    *Registry
	broadcaster *Broadcaster
}

func NewLifecycle(registry *Registry, broadcaster *Broadcaster) *Lifecycle {
	return &Lifecycle{registry: registry, broadcaster: broadcaster}
}

// Announce binds userID to the session's connection. Announcing the same
// identity again is an idempotent upsert.
func (l *Lifecycle) Announce(s *Session, userID string) error {
	if userID == "" {
		return ErrEmptyIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateAnnounced:
		if s.userID != userID {
			return fmt.Errorf("%w: %q != %q", ErrIdentityChange, userID, s.userID)
		}
	}

	if prev := l.registry.Register(userID, s.conn); prev != nil {
		log.Info("presence entry superseded",
			zap.String("user_id", userID),
			zap.String("old_connection_id", prev.ID()),
			zap.String("connection_id", s.conn.ID()),
		)
	}
	s.state = StateAnnounced
	s.userID = userID

	l.broadcaster.Publish()
	return nil
}

// Disconnect closes the session. It reports whether this call performed the
// transition; later calls are no-ops.
func (l *Lifecycle) Disconnect(s *Session) bool {
	return l.close(s, true)
}

func (l *Lifecycle) close(s *Session, publish bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	if prev == StateClosed {
		return false
	}
	s.state = StateClosed

	if prev != StateAnnounced {
		return true
	}

	// a superseded connection owns no entry, nothing changed
	if !l.registry.Deregister(s.conn) {
		log.Debug("disconnect of superseded connection",
			zap.String("user_id", s.userID),
			zap.String("connection_id", s.conn.ID()),
		)
		return true
	}
	if publish {
		l.broadcaster.Publish()
	}
	return true
}
