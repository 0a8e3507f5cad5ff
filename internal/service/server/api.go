package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chat_relay/internal/model"
	userRepo "chat_relay/internal/repository/user"
	"chat_relay/internal/utils/log"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type (
	createUserRequest struct {
		Name  string `json:"name" validate:"required,min=3,max=30"`
		Email string `json:"email" validate:"required,email,max=200"`
	}

	createChatRequest struct {
		FirstID  string `json:"firstId" validate:"required"`
		SecondID string `json:"secondId" validate:"required,nefield=FirstID"`
	}

	createMessageRequest struct {
		ChatID   string `json:"chatId" validate:"required"`
		SenderID string `json:"senderId" validate:"required"`
		Text     string `json:"text" validate:"required"`
	}
)

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("malformed body")
	}
	return validate.Struct(v)
}

func (s *HttpServer) CreateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		user := &model.User{Name: req.Name, Email: req.Email}
		_, err := s.users.Create(r.Context(), user)
		if errors.Is(err, userRepo.ErrEmailTaken) {
			http.Error(w, "Email already exists", http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Error("create user failed", zap.Error(err))
			http.Error(w, "create user failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func (s *HttpServer) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := s.users.List(r.Context())
		if err != nil {
			log.Error("list users failed", zap.Error(err))
			http.Error(w, "list users failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, users)
	}
}

func (s *HttpServer) FindUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]

		user, err := s.users.GetByID(r.Context(), userID)
		if err != nil {
			log.Error("find user failed", zap.String("user_id", userID), zap.Error(err))
			http.Error(w, "find user failed", http.StatusInternalServerError)
			return
		}

		if user == nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func (s *HttpServer) CreateChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createChatRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		chat, created, err := s.chats.FindOrCreate(r.Context(), req.FirstID, req.SecondID)
		if err != nil {
			log.Error("create chat failed", zap.Error(err))
			http.Error(w, "create chat failed", http.StatusInternalServerError)
			return
		}

		if created {
			log.Info("chat created", zap.String("chat_id", chat.ID.Hex()))
		}
		writeJSON(w, http.StatusOK, chat)
	}
}

func (s *HttpServer) FindUserChats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]

		chats, err := s.chats.ListForUser(r.Context(), userID)
		if err != nil {
			log.Error("find user chats failed", zap.String("user_id", userID), zap.Error(err))
			http.Error(w, "find user chats failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, chats)
	}
}

func (s *HttpServer) FindChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		chat, err := s.chats.FindBetween(r.Context(), vars["firstId"], vars["secondId"])
		if err != nil {
			log.Error("find chat failed", zap.Error(err))
			http.Error(w, "find chat failed", http.StatusInternalServerError)
			return
		}

		// null when the two users never talked
		writeJSON(w, http.StatusOK, chat)
	}
}

// CreateMessage persists a message. Clients relay the returned message over
// the websocket with a sendMessage event.
func (s *HttpServer) CreateMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createMessageRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		chat, err := s.chats.GetByID(ctx, req.ChatID)
		if err != nil {
			log.Error("create message failed", zap.Error(err))
			http.Error(w, "create message failed", http.StatusInternalServerError)
			return
		}

		if chat == nil {
			http.Error(w, "chat does not exist", http.StatusBadRequest)
			return
		}

		recipientID, ok := chat.Peer(req.SenderID)
		if !ok || !chat.HasMember(req.SenderID) {
			http.Error(w, "sender is not a member of the chat", http.StatusBadRequest)
			return
		}

		message := &model.Message{
			ChatID:      req.ChatID,
			SenderID:    req.SenderID,
			RecipientID: recipientID,
			Text:        req.Text,
			CreatedAt:   time.Now().UTC(),
		}

		if _, err := s.messages.Create(ctx, message); err != nil {
			log.Error("create message failed", zap.Error(err))
			http.Error(w, "create message failed", http.StatusInternalServerError)
			return
		}

		s.invalidateHistory(ctx, req.ChatID)
		if err := s.chats.Touch(ctx, req.ChatID, message.CreatedAt); err != nil {
			log.Warn("touch chat failed", zap.String("chat_id", req.ChatID), zap.Error(err))
		}

		writeJSON(w, http.StatusOK, message)
	}
}

func (s *HttpServer) GetMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		chatID := mux.Vars(r)["chatId"]

		// the version is read before the store so a concurrent write
		// moves readers past whatever this request caches
		cached := s.cache != nil
		var version int64
		if cached {
			var err error
			version, err = s.historyVersion(ctx, chatID)
			if err != nil {
				log.Warn("read history version failed", zap.String("chat_id", chatID), zap.Error(err))
				cached = false
			}
		}

		var messages []*model.Message
		if cached {
			var err error
			messages, err = s.GetMessagesFromCache(ctx, chatID, version)
			if err != nil {
				log.Warn("GetMessagesFromCache failed", zap.String("chat_id", chatID), zap.Error(err))
			}
		}

		if len(messages) == 0 {
			var err error
			messages, err = s.messages.ListByChat(ctx, chatID)
			if err != nil {
				log.Error("get messages failed", zap.String("chat_id", chatID), zap.Error(err))
				http.Error(w, "get messages failed", http.StatusInternalServerError)
				return
			}

			if cached {
				if err := s.PutMessagesToCache(ctx, chatID, version, messages); err != nil {
					log.Warn("PutMessagesToCache failed", zap.String("chat_id", chatID), zap.Error(err))
				}
			}
		}

		writeJSON(w, http.StatusOK, messages)
	}
}
