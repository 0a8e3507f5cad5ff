package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"chat_relay/internal/config"
	"chat_relay/internal/model"
	"chat_relay/internal/relay"
	"chat_relay/internal/utils/log"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type (
	UserStore interface {
		GetByID(ctx context.Context, id string) (*model.User, error)
		List(ctx context.Context) ([]*model.User, error)
		Create(ctx context.Context, user *model.User) (primitive.ObjectID, error)
	}

	ChatStore interface {
		GetByID(ctx context.Context, chatID string) (*model.Chat, error)
		FindBetween(ctx context.Context, firstID, secondID string) (*model.Chat, error)
		FindOrCreate(ctx context.Context, firstID, secondID string) (*model.Chat, bool, error)
		ListForUser(ctx context.Context, userID string) ([]*model.Chat, error)
		Touch(ctx context.Context, chatID string, at time.Time) error
	}

	MessageStore interface {
		Create(ctx context.Context, message *model.Message) (primitive.ObjectID, error)
		ListByChat(ctx context.Context, chatID string) ([]*model.Message, error)
	}

	// ListCache is the subset of the redis service used for chat history.
	ListCache interface {
		ReplaceList(ctx context.Context, key string, ttl time.Duration, values ...any) error
		LRange(ctx context.Context, key string) ([]string, error)
		Incr(ctx context.Context, key string) (int64, error)
		Counter(ctx context.Context, key string) (int64, error)
	}

	Options struct {
		Addr       string
		Socket     config.SocketConfig
		HistoryTTL time.Duration
	}

	HttpServer struct {
		relay    *relay.Relay
		users    UserStore
		chats    ChatStore
		messages MessageStore
		cache    ListCache
		opts     Options

		upgrader websocket.Upgrader
		srv      *http.Server

		mu    sync.Mutex
		conns map[string]*wsConn
	}
)

// NewHttpServer wires the relay and the history stores behind one router.
// A nil cache disables history caching.
func NewHttpServer(r *relay.Relay, users UserStore, chats ChatStore, messages MessageStore, cache ListCache, opts Options) *HttpServer {
	s := &HttpServer{
		relay:    r,
		users:    users,
		chats:    chats,
		messages: messages,
		cache:    cache,
		opts:     opts,
		conns:    make(map[string]*wsConn),
	}

	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	return s
}

func (s *HttpServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.HandleInitWS()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.Health()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/online", s.GetOnlineUsers()).Methods(http.MethodGet)

	api.HandleFunc("/users", s.CreateUser()).Methods(http.MethodPost)
	api.HandleFunc("/users", s.ListUsers()).Methods(http.MethodGet)
	api.HandleFunc("/users/find/{userId}", s.FindUser()).Methods(http.MethodGet)

	api.HandleFunc("/chats", s.CreateChat()).Methods(http.MethodPost)
	api.HandleFunc("/chats/{userId}", s.FindUserChats()).Methods(http.MethodGet)
	api.HandleFunc("/chats/find/{firstId}/{secondId}", s.FindChat()).Methods(http.MethodGet)

	api.HandleFunc("/messages", s.CreateMessage()).Methods(http.MethodPost)
	api.HandleFunc("/messages/{chatId}", s.GetMessages()).Methods(http.MethodGet)

	return r
}

// Run blocks until the listener fails or Shutdown is called.
func (s *HttpServer) Run() error {
	s.srv = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("relay listening", zap.String("addr", s.opts.Addr))
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drops all presence state, closes live sockets and stops the listener.
func (s *HttpServer) Shutdown(ctx context.Context) error {
	s.relay.Close()

	s.mu.Lock()
	conns := make([]*wsConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *HttpServer) checkOrigin(r *http.Request) bool {
	allowed := s.opts.Socket.AllowedOrigin
	if allowed == "" || allowed == "*" {
		return true
	}
	return r.Header.Get("Origin") == allowed
}

func (s *HttpServer) track(c *wsConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c.id] = c
}

func (s *HttpServer) untrack(c *wsConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c.id)
}

func (s *HttpServer) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"online": len(s.relay.Online()),
		})
	}
}

func (s *HttpServer) GetOnlineUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.relay.Online())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("encode response failed", zap.Error(err))
		http.Error(w, "encode response failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
