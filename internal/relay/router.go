package relay

import (
	"chat_relay/internal/model"
	"chat_relay/internal/utils/log"

	"go.uber.org/zap"
)

// MessageRouter forwards persisted messages to the recipient's live connection.
// An offline recipient is not an error: history is served by the storage API.
type MessageRouter struct {
	registry *Registry
}

func NewMessageRouter(registry *Registry) *MessageRouter {
	return &MessageRouter{registry: registry}
}

// Route reports whether the message was handed to a live connection.
func (r *MessageRouter) Route(msg model.Message) bool {
	return unicast(r.registry, msg.RecipientID, model.EventMessage, msg)
}

// TypingRouter forwards ephemeral typing signals. The receiver treats every
// signal as absolute state, so a late or dropped one is harmless.
type TypingRouter struct {
	registry *Registry
}

func NewTypingRouter(registry *Registry) *TypingRouter {
	return &TypingRouter{registry: registry}
}

func (r *TypingRouter) Route(signal model.TypingSignal) bool {
	return unicast(r.registry, signal.RecipientID, model.EventTypingUpdate, signal)
}

func unicast(registry *Registry, recipientID string, t model.EventType, payload any) bool {
	conn, ok := registry.Lookup(recipientID)
	if !ok {
		log.Debug("recipient offline, relay skipped",
			zap.String("recipient_id", recipientID),
			zap.String("event", string(t)),
		)
		return false
	}

	event, err := model.NewEvent(t, payload)
	if err != nil {
		log.Error("encode event failed", zap.String("event", string(t)), zap.Error(err))
		return false
	}

	if err := conn.Send(event); err != nil {
		log.Warn("relay delivery failed",
			zap.String("recipient_id", recipientID),
			zap.String("connection_id", conn.ID()),
			zap.String("event", string(t)),
			zap.Error(err),
		)
		return false
	}
	return true
}
