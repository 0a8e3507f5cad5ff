package relay

import (
	"sync"

	"chat_relay/internal/model"
	"chat_relay/internal/utils/log"

	"go.uber.org/zap"
)

// Broadcaster publishes the online-user set to every registered connection.
type Broadcaster struct {
	registry *Registry

	// serializes publishes so each connection sees updates in publish order
	mu sync.Mutex
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// Publish sends a fresh presence snapshot to all registered connections and
// returns how many of them accepted it. A failing connection is logged and skipped.
func (b *Broadcaster) Publish() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, conns := b.registry.state()

	event, err := model.NewEvent(model.EventPresenceUpdate, set)
	if err != nil {
		log.Error("encode presence update failed", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(event); err != nil {
			log.Warn("presence delivery failed",
				zap.String("connection_id", conn.ID()),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	log.Debug("presence published", zap.Int("online", len(set)), zap.Int("delivered", delivered))
	return delivered
}
