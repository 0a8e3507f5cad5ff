package relay

import (
	"errors"
	"sync"

	"chat_relay/internal/model"

	"github.com/google/uuid"
)

var errSendFailed = errors.New("send failed")

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []model.Event
	fail   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fail {
		return errSendFailed
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) received(t model.EventType) []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) lastPresence() model.PresenceSet {
	events := c.received(model.EventPresenceUpdate)
	if len(events) == 0 {
		return nil
	}
	var set model.PresenceSet
	if err := events[len(events)-1].Decode(&set); err != nil {
		panic(err)
	}
	return set
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
