package repository

import (
	"context"
	"fmt"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type chatRepo struct {
	pool *pgxpool.Pool
}

// NewChatRepository returns a pgx-backed ChatRepository.
// Append order is the bigserial seq column.
func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepo{pool: pool}
}

func (r *chatRepo) Append(ctx context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, game_id, uid, username, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.GameID, msg.UID, msg.Username, msg.Message, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	return &msg, nil
}

func (r *chatRepo) List(ctx context.Context, gameID string) ([]domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, game_id, uid, username, message, created_at
		FROM chat_messages
		WHERE game_id = $1
		ORDER BY seq ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.GameID, &m.UID, &m.Username, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *chatRepo) DeleteSession(ctx context.Context, gameID string) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE game_id = $1`, gameID)
	if err != nil {
		return 0, fmt.Errorf("delete chat session: %w", err)
	}
	return result.RowsAffected(), nil
}
