package model

import "encoding/json"

type EventType string

const (
	// client -> relay
	EventAnnounce    EventType = "announce"
	EventSendMessage EventType = "sendMessage"
	EventSetTyping   EventType = "setTyping"

	// relay -> client
	EventPresenceUpdate EventType = "presenceUpdate"
	EventMessage        EventType = "message"
	EventTypingUpdate   EventType = "typingUpdate"
	EventError          EventType = "error"
)

type (
	// Event is the envelope of every websocket frame in both directions.
	Event struct {
		Type    EventType       `json:"type" validate:"required"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	Announce struct {
		UserID string `json:"userId" validate:"required"`
	}

	ErrorPayload struct {
		Message string `json:"message"`
	}
)

// NewEvent encodes payload into an envelope of the given type.
func NewEvent(t EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Payload: data}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
