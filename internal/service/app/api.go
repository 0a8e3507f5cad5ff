package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chat_relay/internal/model"

	"github.com/gorilla/websocket"
)

type apiClient struct {
	host string
	http *http.Client
}

func newAPIClient(host string) *apiClient {
	return &apiClient{
		host: host,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) url(path string) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.host,
		Path:   path,
	}
	return u.String()
}

func (c *apiClient) do(method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, c.url(path), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) openChat(userID, recipientID string) (*model.Chat, error) {
	var chat model.Chat
	err := c.do(http.MethodPost, "/api/chats", map[string]string{
		"firstId":  userID,
		"secondId": recipientID,
	}, &chat)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *apiClient) history(chatID string) ([]*model.Message, error) {
	var messages []*model.Message
	if err := c.do(http.MethodGet, "/api/messages/"+chatID, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *apiClient) postMessage(chatID, senderID, text string) (*model.Message, error) {
	var message model.Message
	err := c.do(http.MethodPost, "/api/messages", map[string]string{
		"chatId":   chatID,
		"senderId": senderID,
		"text":     text,
	}, &message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// dialRelay opens the websocket and announces userID on it.
func (c *apiClient) dialRelay(userID string) (*websocket.Conn, error) {
	u := url.URL{
		Scheme: "ws",
		Host:   c.host,
		Path:   "/ws",
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	event, err := model.NewEvent(model.EventAnnounce, model.Announce{UserID: userID})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteJSON(event); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
