package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_relay/internal/config"
	"chat_relay/internal/relay"
	chatRepo "chat_relay/internal/repository/chat"
	messageRepo "chat_relay/internal/repository/message"
	"chat_relay/internal/repository/user"
	redisSvc "chat_relay/internal/service/redis"
	"chat_relay/internal/service/server"
	"chat_relay/internal/utils/log"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := log.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoDBClient, err := initMongo(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoDBClient.Disconnect(ctx)
	}()

	db := mongoDBClient.Database(cfg.MongoDatabase)

	users := user.NewUserRepo(db)
	chats := chatRepo.NewChatRepo(db)
	messages := messageRepo.NewMessageRepo(db)
	for _, repo := range []interface{ EnsureIndexes(context.Context) error }{users, chats, messages} {
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
	}

	var cache server.ListCache
	redis, err := redisSvc.Dial(ctx, redisSvc.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		// history still works straight from mongo
		log.Warn("redis unavailable, history cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		defer redis.Close()
		cache = redis
	}

	r := relay.New()
	s := server.NewHttpServer(r, users, chats, messages, cache, server.Options{
		Addr:       cfg.Addr,
		Socket:     cfg.Socket(),
		HistoryTTL: cfg.HistoryTTL,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return client, client.Ping(ctx, nil)
}
