package server

import (
	"context"
	"encoding/json"
	"fmt"

	"chat_relay/internal/model"
	"chat_relay/internal/utils/log"

	"go.uber.org/zap"
)

// Cached history lives under a key that embeds the chat's version. Writing a
// message bumps the version, so a list filled from an older read can never be
// served again; it just expires.

func historyVersionKey(chatID string) string {
	return fmt.Sprintf("history_version: %s", chatID)
}

func historyKey(chatID string, version int64) string {
	return fmt.Sprintf("history: %s: %d", chatID, version)
}

func (s *HttpServer) historyVersion(ctx context.Context, chatID string) (int64, error) {
	return s.cache.Counter(ctx, historyVersionKey(chatID))
}

// GetMessagesFromCache returns nil on a miss.
func (s *HttpServer) GetMessagesFromCache(ctx context.Context, chatID string, version int64) ([]*model.Message, error) {
	vals, err := s.cache.LRange(ctx, historyKey(chatID, version))
	if err != nil {
		return nil, err
	}

	var res []*model.Message
	for _, v := range vals {
		var m model.Message
		err := json.Unmarshal([]byte(v), &m)
		if err != nil {
			return nil, err
		}

		res = append(res, &m)
	}

	return res, nil
}

func (s *HttpServer) PutMessagesToCache(ctx context.Context, chatID string, version int64, messages []*model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	vals := make([]any, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		vals = append(vals, data)
	}

	return s.cache.ReplaceList(ctx, historyKey(chatID, version), s.opts.HistoryTTL, vals...)
}

func (s *HttpServer) invalidateHistory(ctx context.Context, chatID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, historyVersionKey(chatID)); err != nil {
		log.Warn("invalidate history failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}
