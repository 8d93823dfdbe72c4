package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/repository"
)

// DefaultMaxK caps leaderboard reads when no limit is configured.
const DefaultMaxK = 100

// Options tunes an Engine. Zero values select defaults.
type Options struct {
	// MaxK clamps TopK requests. Larger k values are served as MaxK.
	MaxK int
	// BatchSize is the preferred reset chunk size; the store's MaxBatchSize still wins if smaller.
	BatchSize int
	// Now overrides the clock for tests.
	Now func() time.Time
}

// Engine is the score ledger. It owns win counters across the lifetime, day
// and week windows and relies only on atomic store primitives for
// correctness under concurrent callers.
type Engine struct {
	scores    repository.ScoreRepository
	events    domain.EventPublisher
	logger    *slog.Logger
	maxK      int
	batchSize int
	now       func() time.Time
}

// NewEngine creates a ledger engine. events may be nil.
func NewEngine(scores repository.ScoreRepository, events domain.EventPublisher, logger *slog.Logger, opts Options) *Engine {
	if opts.MaxK <= 0 {
		opts.MaxK = DefaultMaxK
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = repository.DefaultMaxBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		scores:    scores,
		events:    events,
		logger:    logger,
		maxK:      opts.MaxK,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
}

// RegisterUser creates the zeroed score record for uid. Calling it for an
// existing user returns the stored record untouched.
func (e *Engine) RegisterUser(ctx context.Context, uid string) (*domain.UserScore, error) {
	if err := domain.ValidateUID(uid); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	score, err := e.scores.Create(ctx, domain.NewUserScore(uid, e.now().UTC()))
	if err != nil {
		return nil, domain.ErrStoreUnavailable("register user", err)
	}
	if score == nil {
		return nil, domain.ErrInternal("register user", fmt.Errorf("record for %s missing after create", uid))
	}
	return score, nil
}

// IncrementScore records one win for uid in all three windows as a single
// atomic store update.
func (e *Engine) IncrementScore(ctx context.Context, uid string) (*domain.UserScore, error) {
	if err := domain.ValidateUID(uid); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	score, err := e.scores.IncrementWins(ctx, uid, 1, e.now().UTC())
	if err != nil {
		return nil, domain.ErrStoreUnavailable("increment score", err)
	}
	if score == nil {
		return nil, domain.ErrNotFound("user", uid)
	}

	draft, err := domain.NewScoreIncrementedEvent(*score)
	e.publish(ctx, draft, err)
	return score, nil
}

// GetScore returns the stored record for uid.
func (e *Engine) GetScore(ctx context.Context, uid string) (*domain.UserScore, error) {
	if err := domain.ValidateUID(uid); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	score, err := e.scores.Get(ctx, uid)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("get score", err)
	}
	if score == nil {
		return nil, domain.ErrNotFound("user", uid)
	}
	return score, nil
}

// TopK returns at most k records ranked by the window counter, highest first.
// Ties are broken by ascending uid in every backend.
func (e *Engine) TopK(ctx context.Context, window domain.Window, k int) ([]domain.UserScore, error) {
	if !window.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unsupported window: %q", window))
	}
	if err := domain.ValidateTopK(k); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if k > e.maxK {
		k = e.maxK
	}

	scores, err := e.scores.TopByWindow(ctx, window, k)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("query leaderboard", err)
	}
	if scores == nil {
		scores = []domain.UserScore{}
	}
	return scores, nil
}

// publish hands a draft to the event feed. The store write has already
// committed, so a failed build (buildErr) or publish is logged and not returned.
func (e *Engine) publish(ctx context.Context, draft domain.OutboxDraft, buildErr error) {
	if e.events == nil {
		return
	}
	if buildErr != nil {
		e.logger.Error("event build failed", "error", buildErr)
		return
	}
	if err := e.events.Publish(ctx, draft); err != nil {
		e.logger.Warn("event publish failed",
			"event_type", draft.EventType,
			"aggregate_id", draft.AggregateID,
			"error", err,
		)
	}
}
