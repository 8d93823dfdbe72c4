package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func (s *Store) Append(ctx context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal chat message: %w", err)
	}
	if err := s.rdb.RPush(ctx, chatKey(msg.GameID), data).Err(); err != nil {
		return nil, fmt.Errorf("append chat message: %w", err)
	}
	return &msg, nil
}

func (s *Store) List(ctx context.Context, gameID string) ([]domain.ChatMessage, error) {
	raw, err := s.rdb.LRange(ctx, chatKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// DeleteSession reads the length and drops the list inside one MULTI/EXEC.
func (s *Store) DeleteSession(ctx context.Context, gameID string) (int64, error) {
	key := chatKey(gameID)
	var length *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		length = pipe.LLen(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete chat session: %w", err)
	}
	return length.Val(), nil
}
