package relay

import (
	"sync"
	"testing"

	"chat_relay/internal/model"

	"github.com/stretchr/testify/require"
)

func newLifecycle() (*Registry, *Lifecycle) {
	registry := NewRegistry()
	return registry, NewLifecycle(registry, NewBroadcaster(registry))
}

func TestLifecycle_Announce_Registers_And_Broadcasts(t *testing.T) {
	req := require.New(t)
	registry, lifecycle := newLifecycle()
	conn := newFakeConn()
	session := NewSession(conn)

	// Given an unannounced session
	req.Equal(StateUnannounced, session.State())
	_, ok := registry.Lookup("u1")
	req.False(ok)

	// When it announces
	req.NoError(lifecycle.Announce(session, "u1"))

	// Then it is registered and receives the presence update it triggered
	req.Equal(StateAnnounced, session.State())
	req.Equal("u1", session.UserID())
	req.Equal([]string{"u1"}, conn.lastPresence().UserIDs())
}

func TestLifecycle_Announce_Rejects_Empty_Identity(t *testing.T) {
	_, lifecycle := newLifecycle()
	session := NewSession(newFakeConn())

	err := lifecycle.Announce(session, "")

	require.ErrorIs(t, err, ErrEmptyIdentity)
	require.Equal(t, StateUnannounced, session.State())
}

func TestLifecycle_Reannounce_Same_Identity_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry, lifecycle := newLifecycle()
	conn := newFakeConn()
	session := NewSession(conn)

	req.NoError(lifecycle.Announce(session, "u1"))
	req.NoError(lifecycle.Announce(session, "u1"))

	req.Equal(1, registry.Len())
	req.Len(conn.received(model.EventPresenceUpdate), 2)
}

func TestLifecycle_Reannounce_Different_Identity_Is_Rejected(t *testing.T) {
	req := require.New(t)
	registry, lifecycle := newLifecycle()
	session := NewSession(newFakeConn())
	req.NoError(lifecycle.Announce(session, "u1"))

	err := lifecycle.Announce(session, "u2")

	req.ErrorIs(err, ErrIdentityChange)
	req.Equal("u1", session.UserID())
	req.Equal([]string{"u1"}, registry.Snapshot().UserIDs())
}

func TestLifecycle_Disconnect_Unannounced_Is_Silent(t *testing.T) {
	req := require.New(t)
	registry, lifecycle := newLifecycle()
	watcher := newFakeConn()
	req.NoError(lifecycle.Announce(NewSession(watcher), "watcher"))
	watcher.reset()
	session := NewSession(newFakeConn())

	// When a never-announced connection disconnects
	req.True(lifecycle.Disconnect(session))

	// Then no broadcast and no registry change
	req.Equal(StateClosed, session.State())
	req.Empty(watcher.received(model.EventPresenceUpdate))
	req.Equal([]string{"watcher"}, registry.Snapshot().UserIDs())
}

func TestLifecycle_Disconnect_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry, lifecycle := newLifecycle()
	watcher := newFakeConn()
	req.NoError(lifecycle.Announce(NewSession(watcher), "watcher"))
	session := NewSession(newFakeConn())
	req.NoError(lifecycle.Announce(session, "u1"))
	watcher.reset()

	req.True(lifecycle.Disconnect(session))
	req.False(lifecycle.Disconnect(session))

	req.Len(watcher.received(model.EventPresenceUpdate), 1)
	req.Equal([]string{"watcher"}, registry.Snapshot().UserIDs())
}

func TestLifecycle_Closed_Session_Cannot_Announce(t *testing.T) {
	req := require.New(t)
	registry, lifecycle := newLifecycle()
	session := NewSession(newFakeConn())
	lifecycle.Disconnect(session)

	err := lifecycle.Announce(session, "u1")

	req.ErrorIs(err, ErrSessionClosed)
	req.Zero(registry.Len())
}

func TestLifecycle_Disconnect_Superseded_Connection_Keeps_New_Entry(t *testing.T) {
	req := require.New(t)
	registry, lifecycle := newLifecycle()
	oldConn := newFakeConn()
	newConn := newFakeConn()
	oldSession := NewSession(oldConn)
	newSession := NewSession(newConn)
	req.NoError(lifecycle.Announce(oldSession, "u1"))
	req.NoError(lifecycle.Announce(newSession, "u1"))
	newConn.reset()

	// When the stale connection finally reports its disconnect
	req.True(lifecycle.Disconnect(oldSession))

	// Then the newer entry survives and nothing is broadcast
	got, ok := registry.Lookup("u1")
	req.True(ok)
	req.Equal(newConn.ID(), got.ID())
	req.Empty(newConn.received(model.EventPresenceUpdate))
}

func TestLifecycle_Concurrent_Connect_Disconnect(t *testing.T) {
	req := require.New(t)
	registry, lifecycle := newLifecycle()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := NewSession(newFakeConn())
			if i%3 != 0 {
				_ = lifecycle.Announce(session, "shared")
			}
			lifecycle.Disconnect(session)
			lifecycle.Disconnect(session)
		}(i)
	}
	wg.Wait()

	req.Zero(registry.Len())
}
