package repository

import (
	"context"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultMaxBatchSize is the largest number of records reset in one atomic unit
// when a backend does not impose its own ceiling.
const DefaultMaxBatchSize = 500

// DBTX abstracts pgx.Tx and pgxpool.Pool so the Postgres repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// ScoreRepository stores one UserScore per uid.
// Lookups return (nil, nil) when the record does not exist.
type ScoreRepository interface {
	// Get returns the score record for uid.
	Get(ctx context.Context, uid string) (*domain.UserScore, error)

	// Create inserts score if no record exists for its uid and returns the stored record.
	Create(ctx context.Context, score domain.UserScore) (*domain.UserScore, error)

	// IncrementWins adds delta to all three window counters and sets updated_at,
	// as a single atomic store operation. Returns the post-update record.
	IncrementWins(ctx context.Context, uid string, delta int64, at time.Time) (*domain.UserScore, error)

	// TopByWindow returns at most limit records ordered by the window counter
	// descending, ties broken by uid ascending.
	TopByWindow(ctx context.Context, window domain.Window, limit int) ([]domain.UserScore, error)

	// ListUIDs returns every stored uid in ascending order.
	ListUIDs(ctx context.Context) ([]string, error)

	// ResetWindowBatch zeroes the window counter for the given uids as one atomic unit.
	// len(uids) must not exceed MaxBatchSize.
	ResetWindowBatch(ctx context.Context, window domain.Window, uids []string) error

	// MaxBatchSize is the store's ceiling on writes per atomic batch.
	MaxBatchSize() int
}

// ChatRepository stores per-session append-only message lists.
type ChatRepository interface {
	// Append stores msg at the end of its session's list and returns it with the assigned ID.
	Append(ctx context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error)

	// List returns a session's messages in append order.
	List(ctx context.Context, gameID string) ([]domain.ChatMessage, error)

	// DeleteSession drops every message of the session and returns how many were removed.
	DeleteSession(ctx context.Context, gameID string) (int64, error)
}
