package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chat_relay/internal/model"
	"chat_relay/internal/relay"
	"chat_relay/internal/utils/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func (s *HttpServer) HandleInitWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response
			log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		conn := newWSConn(ws, s.opts.Socket)
		session, err := s.relay.Connect(conn)
		if err != nil {
			log.Warn("connection refused", zap.Error(err))
			ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
				time.Now().Add(time.Second),
			)
			ws.Close()
			return
		}

		s.track(conn)
		log.Debug("websocket connected", zap.String("connection_id", conn.id))

		go conn.writePump(s.opts.Socket)
		go s.processWSMessage(conn, session)

		// a client may announce in the handshake instead of sending an announce frame
		if userID := r.URL.Query().Get("userID"); userID != "" {
			s.announce(conn, session, userID)
		}
	}
}

func (s *HttpServer) processWSMessage(conn *wsConn, session *relay.Session) {
	defer func() {
		s.relay.Disconnect(session)
		s.untrack(conn)
		conn.Close()
		log.Debug("websocket closed",
			zap.String("connection_id", conn.id),
			zap.String("user_id", session.UserID()),
		)
	}()

	opts := s.opts.Socket
	conn.ws.SetReadLimit(opts.MaxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("worker web socket closed", zap.String("connection_id", conn.id), zap.Error(err))
			}
			return
		}

		var event model.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Debug("unmarshal event failed", zap.String("connection_id", conn.id), zap.Error(err))
			conn.sendError("malformed event")
			continue
		}

		s.handleEvent(conn, session, event)
	}
}

func (s *HttpServer) handleEvent(conn *wsConn, session *relay.Session, event model.Event) {
	switch event.Type {
	case model.EventAnnounce:
		var payload model.Announce
		if err := decodePayload(event, &payload); err != nil {
			conn.sendError(err.Error())
			return
		}
		s.announce(conn, session, payload.UserID)

	case model.EventSendMessage:
		var message model.Message
		if err := decodePayload(event, &message); err != nil {
			conn.sendError(err.Error())
			return
		}
		if err := checkSender(session, message.SenderID); err != nil {
			conn.sendError(err.Error())
			return
		}
		s.relay.SendMessage(message)

	case model.EventSetTyping:
		var signal model.TypingSignal
		if err := decodePayload(event, &signal); err != nil {
			conn.sendError(err.Error())
			return
		}
		if err := checkSender(session, signal.UserID); err != nil {
			conn.sendError(err.Error())
			return
		}
		// a stop signal is never throttled so the indicator cannot get stuck
		if signal.IsTyping && !conn.typing.Allow() {
			log.Debug("typing signal throttled", zap.String("user_id", signal.UserID))
			return
		}
		s.relay.SetTyping(signal)

	default:
		conn.sendError("unknown event type " + string(event.Type))
	}
}

func (s *HttpServer) announce(conn *wsConn, session *relay.Session, userID string) {
	if err := s.relay.Announce(session, userID); err != nil {
		log.Debug("announce rejected",
			zap.String("connection_id", conn.id),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		conn.sendError(err.Error())
		return
	}
	log.Info("user online", zap.String("user_id", userID), zap.String("connection_id", conn.id))
}

var errNotAnnounced = errors.New("announce before sending")

func checkSender(session *relay.Session, senderID string) error {
	if session.State() != relay.StateAnnounced {
		return errNotAnnounced
	}
	if session.UserID() != senderID {
		return errors.New("sender does not match announced identity")
	}
	return nil
}

func decodePayload(event model.Event, v any) error {
	if len(event.Payload) == 0 {
		return errors.New("missing payload")
	}
	if err := event.Decode(v); err != nil {
		return errors.New("malformed payload")
	}
	if err := validate.Struct(v); err != nil {
		return err
	}
	return nil
}
