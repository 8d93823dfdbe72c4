package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/repository"
	"github.com/attaboy/gamesocial/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	drafts []domain.OutboxDraft
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, draft domain.OutboxDraft) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drafts = append(p.drafts, draft)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.drafts))
	for i, d := range p.drafts {
		out[i] = d.EventType
	}
	return out
}

// brokenScores fails every call.
type brokenScores struct {
	repository.ScoreRepository
}

var errStoreDown = errors.New("connection refused")

func (brokenScores) Get(context.Context, string) (*domain.UserScore, error) {
	return nil, errStoreDown
}

func (brokenScores) Create(context.Context, domain.UserScore) (*domain.UserScore, error) {
	return nil, errStoreDown
}

func (brokenScores) IncrementWins(context.Context, string, int64, time.Time) (*domain.UserScore, error) {
	return nil, errStoreDown
}

func (brokenScores) TopByWindow(context.Context, domain.Window, int) ([]domain.UserScore, error) {
	return nil, errStoreDown
}

func (brokenScores) ListUIDs(context.Context) ([]string, error) {
	return nil, errStoreDown
}

func newTestEngine(t *testing.T, store repository.ScoreRepository, events domain.EventPublisher, opts Options) *Engine {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return NewEngine(store, events, testLogger(), opts)
}

func seed(store *memstore.Store, uid string, total, day, week int64) {
	s := domain.NewUserScore(uid, fixedNow.Add(-24*time.Hour))
	s.TotalGamesWon, s.GamesWonDay, s.GamesWonWeek = total, day, week
	store.Put(s)
}

// --- RegisterUser ---

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates zeroed record", func(t *testing.T) {
		e := newTestEngine(t, memstore.New(0), nil, Options{})
		score, err := e.RegisterUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", score.UID)
		assert.Zero(t, score.TotalGamesWon)
		assert.Equal(t, fixedNow, score.CreatedAt)
		assert.Equal(t, domain.ScoreSchemaVersion, score.SchemaVersion)
	})

	t.Run("existing record untouched", func(t *testing.T) {
		store := memstore.New(0)
		seed(store, "u1", 4, 1, 2)
		e := newTestEngine(t, store, nil, Options{})

		score, err := e.RegisterUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), score.TotalGamesWon)
	})

	t.Run("empty uid", func(t *testing.T) {
		e := newTestEngine(t, memstore.New(0), nil, Options{})
		_, err := e.RegisterUser(ctx, "  ")
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})

	t.Run("store down", func(t *testing.T) {
		e := newTestEngine(t, brokenScores{}, nil, Options{})
		_, err := e.RegisterUser(ctx, "u1")
		assert.True(t, domain.IsCode(err, domain.CodeStoreUnavailable))
		assert.ErrorIs(t, err, errStoreDown)
	})
}

// --- IncrementScore ---

func TestIncrementScore(t *testing.T) {
	ctx := context.Background()

	t.Run("advances every window", func(t *testing.T) {
		store := memstore.New(0)
		seed(store, "u1", 10, 2, 5)
		e := newTestEngine(t, store, nil, Options{})

		score, err := e.IncrementScore(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(11), score.TotalGamesWon)
		assert.Equal(t, int64(3), score.GamesWonDay)
		assert.Equal(t, int64(6), score.GamesWonWeek)
		assert.Equal(t, fixedNow, score.UpdatedAt)
	})

	t.Run("unknown user", func(t *testing.T) {
		e := newTestEngine(t, memstore.New(0), nil, Options{})
		_, err := e.IncrementScore(ctx, "ghost")
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("empty uid", func(t *testing.T) {
		e := newTestEngine(t, memstore.New(0), nil, Options{})
		_, err := e.IncrementScore(ctx, "")
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})

	t.Run("store down", func(t *testing.T) {
		e := newTestEngine(t, brokenScores{}, nil, Options{})
		_, err := e.IncrementScore(ctx, "u1")
		assert.True(t, domain.IsCode(err, domain.CodeStoreUnavailable))
	})

	t.Run("publishes event", func(t *testing.T) {
		store := memstore.New(0)
		seed(store, "u1", 0, 0, 0)
		pub := &recordingPublisher{}
		e := newTestEngine(t, store, pub, Options{})

		_, err := e.IncrementScore(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, pub.drafts, 1)
		assert.Equal(t, domain.EventScoreIncremented, pub.drafts[0].EventType)
		assert.Equal(t, "u1", pub.drafts[0].AggregateID)
	})

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		store := memstore.New(0)
		seed(store, "u1", 0, 0, 0)
		e := newTestEngine(t, store, &recordingPublisher{err: errors.New("broker down")}, Options{})

		score, err := e.IncrementScore(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), score.TotalGamesWon)
	})
}

func TestIncrementScore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	seed(store, "u1", 0, 0, 0)
	e := newTestEngine(t, store, nil, Options{Now: time.Now})

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.IncrementScore(ctx, "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := e.GetScore(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(n), score.TotalGamesWon)
	assert.Equal(t, int64(n), score.GamesWonDay)
	assert.Equal(t, int64(n), score.GamesWonWeek)
}

// --- GetScore ---

func TestGetScore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	seed(store, "u1", 3, 1, 2)
	e := newTestEngine(t, store, nil, Options{})

	t.Run("found", func(t *testing.T) {
		score, err := e.GetScore(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), score.TotalGamesWon)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := e.GetScore(ctx, "ghost")
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("empty uid", func(t *testing.T) {
		_, err := e.GetScore(ctx, "")
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})

	t.Run("store down", func(t *testing.T) {
		_, err := newTestEngine(t, brokenScores{}, nil, Options{}).GetScore(ctx, "u1")
		assert.True(t, domain.IsCode(err, domain.CodeStoreUnavailable))
	})
}

// --- TopK ---

func uids(scores []domain.UserScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.UID
	}
	return out
}

func TestTopK(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	seed(store, "u1", 3, 0, 1)
	seed(store, "u2", 5, 2, 1)
	seed(store, "u3", 3, 1, 1)
	e := newTestEngine(t, store, nil, Options{MaxK: 2})

	t.Run("lifetime with uid tie-break", func(t *testing.T) {
		top, err := e.TopK(ctx, domain.WindowLifetime, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"u2", "u1"}, uids(top))
	})

	t.Run("day window", func(t *testing.T) {
		top, err := e.TopK(ctx, domain.WindowDay, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"u2"}, uids(top))
	})

	t.Run("k above max is clamped", func(t *testing.T) {
		top, err := e.TopK(ctx, domain.WindowWeek, 50)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, uids(top))
	})

	t.Run("non-positive k", func(t *testing.T) {
		_, err := e.TopK(ctx, domain.WindowLifetime, 0)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})

	t.Run("unknown window", func(t *testing.T) {
		_, err := e.TopK(ctx, domain.Window("month"), 3)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})

	t.Run("empty store", func(t *testing.T) {
		top, err := newTestEngine(t, memstore.New(0), nil, Options{}).TopK(ctx, domain.WindowLifetime, 5)
		require.NoError(t, err)
		assert.NotNil(t, top)
		assert.Empty(t, top)
	})

	t.Run("store down", func(t *testing.T) {
		_, err := newTestEngine(t, brokenScores{}, nil, Options{}).TopK(ctx, domain.WindowLifetime, 5)
		assert.True(t, domain.IsCode(err, domain.CodeStoreUnavailable))
	})
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(memstore.New(0), nil, testLogger(), Options{})
	assert.Equal(t, DefaultMaxK, e.maxK)
	assert.Equal(t, repository.DefaultMaxBatchSize, e.batchSize)
	assert.NotNil(t, e.now)
}

func TestIncrementScore_EventPayload(t *testing.T) {
	store := memstore.New(0)
	seed(store, "u7", 1, 1, 1)
	pub := &recordingPublisher{}
	e := newTestEngine(t, store, pub, Options{})

	_, err := e.IncrementScore(context.Background(), "u7")
	require.NoError(t, err)
	require.Len(t, pub.drafts, 1)
	assert.Contains(t, string(pub.drafts[0].Payload), fmt.Sprintf(`"totalGamesWon":%d`, 2))
}

func TestPublish_BuildErrorSkipsFeed(t *testing.T) {
	pub := &recordingPublisher{}
	e := newTestEngine(t, memstore.New(0), pub, Options{})

	e.publish(context.Background(), domain.OutboxDraft{}, errors.New("marshal score.incremented payload"))
	assert.Empty(t, pub.types())

	draft, err := domain.NewScoreIncrementedEvent(domain.UserScore{UID: "u1"})
	require.NoError(t, err)
	e.publish(context.Background(), draft, nil)
	assert.Equal(t, []domain.EventType{domain.EventScoreIncremented}, pub.types())
}
