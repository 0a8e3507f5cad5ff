package server

import (
	"errors"
	"sync"
	"time"

	"chat_relay/internal/config"
	"chat_relay/internal/model"
	"chat_relay/internal/utils/log"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrConnClosed    = errors.New("connection closed")
	ErrSendQueueFull = errors.New("send queue full")
)

// wsConn is one websocket session. Outbound events go through a bounded queue
// drained by writePump, the only goroutine writing to the socket.
type wsConn struct {
	id     string
	ws     *websocket.Conn
	send   chan model.Event
	done   chan struct{}
	typing *rate.Limiter

	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, opts config.SocketConfig) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		ws:     ws,
		send:   make(chan model.Event, opts.SendQueueSize),
		done:   make(chan struct{}),
		typing: rate.NewLimiter(rate.Limit(opts.TypingRate), opts.TypingBurst),
	}
}

func (c *wsConn) ID() string {
	return c.id
}

// Send enqueues event without blocking. A consumer whose queue is full is
// disconnected rather than allowed to stall the sender.
func (c *wsConn) Send(event model.Event) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		log.Warn("slow consumer, closing connection", zap.String("connection_id", c.id))
		c.Close()
		return ErrSendQueueFull
	}
}

// Close asks writePump to send a close frame and tear the socket down.
func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *wsConn) sendError(msg string) {
	event, err := model.NewEvent(model.EventError, model.ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	_ = c.Send(event)
}

func (c *wsConn) writePump(opts config.SocketConfig) {
	ticker := time.NewTicker(opts.PingPeriod())
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case event := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := c.ws.WriteJSON(event); err != nil {
				log.Debug("websocket write failed", zap.String("connection_id", c.id), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("websocket ping failed", zap.String("connection_id", c.id), zap.Error(err))
				c.Close()
				return
			}
		case <-c.done:
			c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return
		}
	}
}
