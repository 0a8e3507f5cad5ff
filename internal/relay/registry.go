package relay

import (
	"slices"
	"strings"
	"sync"

	"chat_relay/internal/model"

	"github.com/samber/lo"
)

// Connection is a live transport session as seen by the relay. Send must not
// block on network I/O: implementations enqueue and return.
type Connection interface {
	ID() string
	Send(event model.Event) error
}

// Registry maps a user identity to its single live connection.
// It is safe for concurrent use and never performs I/O while locked.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Connection
	byConn map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Connection),
		byConn: make(map[string]string),
	}
}

// Register upserts the entry for userID and returns the connection it
// replaced, if any.
func (r *Registry) Register(userID string, conn Connection) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()

	// a connection carries at most one identity
	if owner, ok := r.byConn[id]; ok && owner != userID {
		delete(r.byUser, owner)
	}

	prev, ok := r.byUser[userID]
	if ok && prev.ID() != id {
		delete(r.byConn, prev.ID())
	} else {
		prev = nil
	}

	r.byUser[userID] = conn
	r.byConn[id] = userID
	return prev
}

// Deregister removes the entry held by conn. It reports false when conn owns
// no entry, which is the case after a newer connection superseded it.
func (r *Registry) Deregister(conn Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	userID, ok := r.byConn[id]
	if !ok {
		return false
	}
	delete(r.byConn, id)

	if cur, ok := r.byUser[userID]; ok && cur.ID() == id {
		delete(r.byUser, userID)
	}
	return true
}

func (r *Registry) Lookup(userID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byUser[userID]
	return conn, ok
}

func (r *Registry) Snapshot() model.PresenceSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked()
}

func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.byUser)
}

// state returns a snapshot and the matching connection list taken under the same lock.
func (r *Registry) state() (model.PresenceSet, []Connection) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked(), lo.Values(r.byUser)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}

func (r *Registry) snapshotLocked() model.PresenceSet {
	set := lo.MapToSlice(r.byUser, func(userID string, conn Connection) model.PresenceEntry {
		return model.PresenceEntry{UserID: userID, ConnectionID: conn.ID()}
	})
	slices.SortFunc(set, func(a, b model.PresenceEntry) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return set
}
