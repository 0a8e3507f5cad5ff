package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"chat_relay/internal/model"
	"chat_relay/internal/utils/log"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// typingIdle is how long after the last keystroke a stop signal is sent.
const typingIdle = 2 * time.Second

type (
	App struct {
		app     *tview.Application
		status  *tview.TextView
		chatbox *tview.TextView
		input   *tview.InputField

		api *apiClient

		userID      string
		recipientID string
		chat        *model.Chat

		conn    *websocket.Conn
		writeMu sync.Mutex

		mu          sync.Mutex
		peer        peerState
		typing      bool
		typingTimer *time.Timer
	}
)

func NewApp(host string) *App {
	return &App{
		app: tview.NewApplication(),
		api: newAPIClient(host),
	}
}

func (c *App) Run(userID, recipientID string) error {
	if userID == recipientID {
		return errors.New("cannot chat with yourself")
	}
	c.userID = userID
	c.recipientID = recipientID

	chat, err := c.api.openChat(userID, recipientID)
	if err != nil {
		return fmt.Errorf("open chat: %w", err)
	}
	c.chat = chat

	history, err := c.api.history(chat.ID.Hex())
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	c.conn, err = c.api.dialRelay(userID)
	if err != nil {
		return fmt.Errorf("connect relay: %w", err)
	}

	c.buildUI()
	for _, m := range history {
		c.printMessage(m)
	}

	go c.listenOnWebsocket()
	return c.app.Run()
}

func (c *App) Stop() {
	c.sendTyping(false)
	if c.conn != nil {
		c.writeMu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		c.conn.Close()
	}
	c.app.Stop()
}

func (c *App) buildUI() {
	c.status = tview.NewTextView().SetDynamicColors(true)
	c.status.SetText(c.peer.line(c.recipientID))

	c.chatbox = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	c.chatbox.SetBorder(true).SetTitle(fmt.Sprintf(" Chat with %s ", c.recipientID))

	c.input = tview.NewInputField().
		SetLabel("Message: ").
		SetFieldWidth(0)
	c.input.SetBorder(true).SetTitle(" New Message ")

	c.input.SetChangedFunc(func(text string) {
		if text != "" {
			c.keystroke()
		}
	})

	c.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}

		text := c.input.GetText()
		if text == "" {
			return
		}
		c.input.SetText("")

		go func(msg string) {
			if err := c.SendMessage(msg); err != nil {
				log.Debug("send message failed", zap.Error(err))
				c.app.QueueUpdateDraw(func() {
					fmt.Fprintf(c.chatbox, "[red]send failed:[-] %s\n", tview.Escape(err.Error()))
				})
			}
		}(text)
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.status, 1, 0, false).
		AddItem(c.chatbox, 0, 1, false).
		AddItem(c.input, 3, 0, true)

	c.app.SetRoot(layout, true).SetFocus(c.input)
}

func (c *App) listenOnWebsocket() {
	for {
		var event model.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			log.Debug("relay connection closed", zap.Error(err))
			c.app.QueueUpdateDraw(func() {
				c.status.SetText("[red]disconnected from relay[-]")
			})
			return
		}

		if err := c.handleEvent(event); err != nil {
			log.Debug("handle event failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}
}

func (c *App) handleEvent(event model.Event) error {
	switch event.Type {
	case model.EventPresenceUpdate:
		var set model.PresenceSet
		if err := event.Decode(&set); err != nil {
			return err
		}
		c.updatePeer(func(p *peerState) { p.applyPresence(set, c.recipientID) })

	case model.EventTypingUpdate:
		var signal model.TypingSignal
		if err := event.Decode(&signal); err != nil {
			return err
		}
		if signal.UserID != c.recipientID {
			return nil
		}
		c.updatePeer(func(p *peerState) { p.typing = signal.IsTyping })

	case model.EventMessage:
		var message model.Message
		if err := event.Decode(&message); err != nil {
			return err
		}
		if message.ChatID != c.chat.ID.Hex() {
			return nil
		}
		// a delivered message ends the sender's typing
		c.updatePeer(func(p *peerState) { p.typing = false })
		c.app.QueueUpdateDraw(func() {
			c.printMessage(&message)
		})

	case model.EventError:
		var payload model.ErrorPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		c.app.QueueUpdateDraw(func() {
			fmt.Fprintf(c.chatbox, "[red]relay:[-] %s\n", tview.Escape(payload.Message))
		})
	}
	return nil
}

// SendMessage persists the message through the history API, then relays it.
func (c *App) SendMessage(text string) error {
	message, err := c.api.postMessage(c.chat.ID.Hex(), c.userID, text)
	if err != nil {
		return err
	}

	c.app.QueueUpdateDraw(func() {
		c.printMessage(message)
	})

	c.stopTyping()
	return c.emit(model.EventSendMessage, message)
}

func (c *App) printMessage(m *model.Message) {
	at := m.CreatedAt.Local().Format("15:04")
	if m.SenderID == c.userID {
		fmt.Fprintf(c.chatbox, "[gray]%s[-] [yellow]You:[-] %s\n", at, tview.Escape(m.Text))
	} else {
		fmt.Fprintf(c.chatbox, "[gray]%s[-] [green]%s:[-] %s\n", at, m.SenderID, tview.Escape(m.Text))
	}
	c.chatbox.ScrollToEnd()
}

func (c *App) updatePeer(fn func(p *peerState)) {
	c.mu.Lock()
	fn(&c.peer)
	line := c.peer.line(c.recipientID)
	c.mu.Unlock()

	c.app.QueueUpdateDraw(func() {
		c.status.SetText(line)
	})
}

// keystroke sends a start signal once per burst and re-arms the idle timer.
func (c *App) keystroke() {
	c.mu.Lock()
	start := !c.typing
	c.typing = true
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(typingIdle, c.stopTyping)
	c.mu.Unlock()

	if start {
		go c.sendTyping(true)
	}
}

func (c *App) stopTyping() {
	c.mu.Lock()
	wasTyping := c.typing
	c.typing = false
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	c.mu.Unlock()

	if wasTyping {
		c.sendTyping(false)
	}
}

func (c *App) sendTyping(isTyping bool) {
	if c.conn == nil {
		return
	}
	err := c.emit(model.EventSetTyping, model.TypingSignal{
		UserID:      c.userID,
		RecipientID: c.recipientID,
		IsTyping:    isTyping,
	})
	if err != nil {
		log.Debug("send typing failed", zap.Error(err))
	}
}

func (c *App) emit(t model.EventType, payload any) error {
	event, err := model.NewEvent(t, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(event)
}
