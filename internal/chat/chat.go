// Package chat is the per-game append-only chat log.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/guard"
	"github.com/attaboy/gamesocial/internal/repository"
)

// DefaultMaxMessageLen is the rune limit applied when none is configured.
const DefaultMaxMessageLen = 1000

// Options tunes a Service. Zero values select defaults.
type Options struct {
	MaxMessageLen int
	// Limiter throttles appends per author; nil disables throttling.
	Limiter *guard.RateLimiter
	Now     func() time.Time
}

// Service appends to and tears down game session chat logs.
type Service struct {
	repo    repository.ChatRepository
	events  domain.EventPublisher
	logger  *slog.Logger
	limiter *guard.RateLimiter
	maxLen  int
	now     func() time.Time
}

// NewService creates a chat service. events may be nil.
func NewService(repo repository.ChatRepository, events domain.EventPublisher, logger *slog.Logger, opts Options) *Service {
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = DefaultMaxMessageLen
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:    repo,
		events:  events,
		logger:  logger,
		limiter: opts.Limiter,
		maxLen:  opts.MaxMessageLen,
		now:     opts.Now,
	}
}

// AppendMessage stores a message at the end of gameID's log, creating the log
// on first use. Empty uid and username fall back to the unknown/anonymous sentinels.
func (s *Service) AppendMessage(ctx context.Context, gameID, uid, username, message string) (*domain.ChatMessage, error) {
	if err := domain.ValidateGameID(gameID); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateChatMessage(message, s.maxLen); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	uid = strings.TrimSpace(uid)
	if uid == "" {
		uid = domain.UnknownUID
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = domain.AnonymousUsername
	}

	if result := s.limiter.Check(ctx, gameID+"|"+uid); !result.Allowed {
		return nil, domain.ErrRateLimited(result.Reason, result.RetryAfter)
	}

	stored, err := s.repo.Append(ctx, domain.ChatMessage{
		GameID:    gameID,
		UID:       uid,
		Username:  username,
		Message:   message,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, domain.ErrStoreUnavailable("append chat message", err)
	}

	draft, err := domain.NewChatAppendedEvent(*stored)
	s.publish(ctx, draft, err)
	return stored, nil
}

// ListMessages returns gameID's log in append order. Unknown sessions yield an empty log.
func (s *Service) ListMessages(ctx context.Context, gameID string) ([]domain.ChatMessage, error) {
	if err := domain.ValidateGameID(gameID); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	messages, err := s.repo.List(ctx, gameID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("list chat messages", err)
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return messages, nil
}

// DeleteLog drops gameID's whole log in one store operation.
// A session with no messages reports NOT_FOUND, including on a repeated delete.
func (s *Service) DeleteLog(ctx context.Context, gameID string) error {
	if err := domain.ValidateGameID(gameID); err != nil {
		return domain.ErrValidation(err.Error())
	}

	removed, err := s.repo.DeleteSession(ctx, gameID)
	if err != nil {
		return domain.ErrStoreUnavailable("delete chat log", err)
	}
	if removed == 0 {
		return domain.ErrNotFound("chat session", gameID)
	}

	s.logger.Info("chat log deleted", "game_id", gameID, "messages", removed)
	draft, err := domain.NewChatDeletedEvent(gameID)
	s.publish(ctx, draft, err)
	return nil
}

func (s *Service) publish(ctx context.Context, draft domain.OutboxDraft, buildErr error) {
	if s.events == nil {
		return
	}
	if buildErr != nil {
		s.logger.Error("event build failed", "error", buildErr)
		return
	}
	if err := s.events.Publish(ctx, draft); err != nil {
		s.logger.Warn("event publish failed",
			"event_type", draft.EventType,
			"aggregate_id", draft.AggregateID,
			"error", err,
		)
	}
}
