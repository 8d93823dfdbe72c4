// Package repotest holds the behaviour every store backend must share.
// Backend test files call RunScoreContract and RunChatContract with a factory.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ScoreFactory returns an empty score store for one subtest.
type ScoreFactory func(t *testing.T) repository.ScoreRepository

// ChatFactory returns an empty chat store for one subtest.
type ChatFactory func(t *testing.T) repository.ChatRepository

// Now is a store-neutral timestamp; Redis keeps millisecond precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Seed creates a record with the given counters.
func Seed(t *testing.T, repo repository.ScoreRepository, uid string, total, day, week int64) {
	t.Helper()
	s := domain.NewUserScore(uid, Now())
	s.TotalGamesWon, s.GamesWonDay, s.GamesWonWeek = total, day, week
	_, err := repo.Create(context.Background(), s)
	require.NoError(t, err)
}

func uidsOf(scores []domain.UserScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.UID
	}
	return out
}

// RunScoreContract exercises a ScoreRepository implementation.
func RunScoreContract(t *testing.T, newRepo ScoreFactory) {
	ctx := context.Background()

	t.Run("get missing returns nil", func(t *testing.T) {
		repo := newRepo(t)
		s, err := repo.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("create then get", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, domain.NewUserScore("u1", Now()))
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "u1", created.UID)
		assert.Equal(t, domain.ScoreSchemaVersion, created.SchemaVersion)

		got, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Zero(t, got.TotalGamesWon)
		assert.Zero(t, got.GamesWonDay)
		assert.Zero(t, got.GamesWonWeek)
	})

	t.Run("create keeps existing record", func(t *testing.T) {
		repo := newRepo(t)
		Seed(t, repo, "u1", 3, 1, 2)

		again, err := repo.Create(ctx, domain.NewUserScore("u1", Now()))
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, int64(3), again.TotalGamesWon)
		assert.Equal(t, int64(1), again.GamesWonDay)
	})

	t.Run("increment missing returns nil", func(t *testing.T) {
		repo := newRepo(t)
		s, err := repo.IncrementWins(ctx, "nobody", 1, Now())
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("increment advances all windows", func(t *testing.T) {
		repo := newRepo(t)
		Seed(t, repo, "u1", 3, 1, 2)

		at := Now().Add(time.Minute)
		s, err := repo.IncrementWins(ctx, "u1", 1, at)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, int64(4), s.TotalGamesWon)
		assert.Equal(t, int64(2), s.GamesWonDay)
		assert.Equal(t, int64(3), s.GamesWonWeek)
		assert.WithinDuration(t, at, s.UpdatedAt, time.Millisecond)
	})

	t.Run("updated_at never moves backwards", func(t *testing.T) {
		repo := newRepo(t)
		Seed(t, repo, "u1", 0, 0, 0)

		later := Now().Add(time.Hour)
		_, err := repo.IncrementWins(ctx, "u1", 1, later)
		require.NoError(t, err)
		s, err := repo.IncrementWins(ctx, "u1", 1, later.Add(-30*time.Minute))
		require.NoError(t, err)
		assert.WithinDuration(t, later, s.UpdatedAt, time.Millisecond)
		assert.Equal(t, int64(2), s.TotalGamesWon)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		repo := newRepo(t)
		Seed(t, repo, "u1", 0, 0, 0)

		const n = 40
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.IncrementWins(ctx, "u1", 1, Now()); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		s, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(n), s.TotalGamesWon)
		assert.Equal(t, int64(n), s.GamesWonDay)
		assert.Equal(t, int64(n), s.GamesWonWeek)
	})

	t.Run("top by window orders with uid tie-break", func(t *testing.T) {
		repo := newRepo(t)
		Seed(t, repo, "c", 3, 0, 0)
		Seed(t, repo, "b", 5, 0, 0)
		Seed(t, repo, "a", 3, 0, 0)
		Seed(t, repo, "d", 1, 0, 0)

		top, err := repo.TopByWindow(ctx, domain.WindowLifetime, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c", "d"}, uidsOf(top))

		top, err = repo.TopByWindow(ctx, domain.WindowLifetime, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, uidsOf(top))

		// every uid ties at zero for the day window
		top, err = repo.TopByWindow(ctx, domain.WindowDay, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, uidsOf(top))
	})

	t.Run("top by window selects the window field", func(t *testing.T) {
		repo := newRepo(t)
		Seed(t, repo, "u1", 10, 1, 9)
		Seed(t, repo, "u2", 2, 2, 2)

		top, err := repo.TopByWindow(ctx, domain.WindowDay, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"u2"}, uidsOf(top))

		top, err = repo.TopByWindow(ctx, domain.WindowWeek, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, uidsOf(top))
	})

	t.Run("top by window on empty store", func(t *testing.T) {
		repo := newRepo(t)
		top, err := repo.TopByWindow(ctx, domain.WindowWeek, 5)
		require.NoError(t, err)
		assert.Empty(t, top)
	})

	t.Run("list uids sorted", func(t *testing.T) {
		repo := newRepo(t)
		for _, uid := range []string{"u3", "u1", "u2"} {
			Seed(t, repo, uid, 0, 0, 0)
		}
		uids, err := repo.ListUIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2", "u3"}, uids)
	})

	t.Run("reset batch zeroes only the window", func(t *testing.T) {
		repo := newRepo(t)
		Seed(t, repo, "u1", 4, 2, 3)
		Seed(t, repo, "u2", 5, 1, 1)
		before, err := repo.Get(ctx, "u1")
		require.NoError(t, err)

		require.NoError(t, repo.ResetWindowBatch(ctx, domain.WindowDay, []string{"u1", "u2"}))

		s, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), s.TotalGamesWon)
		assert.Zero(t, s.GamesWonDay)
		assert.Equal(t, int64(3), s.GamesWonWeek)
		assert.WithinDuration(t, before.UpdatedAt, s.UpdatedAt, time.Millisecond)

		top, err := repo.TopByWindow(ctx, domain.WindowDay, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Zero(t, top[0].GamesWonDay)
		assert.Zero(t, top[1].GamesWonDay)
	})

	t.Run("reset batch rejects oversize and lifetime", func(t *testing.T) {
		repo := newRepo(t)
		oversize := make([]string, repo.MaxBatchSize()+1)
		for i := range oversize {
			oversize[i] = fmt.Sprintf("u%d", i)
		}
		require.Error(t, repo.ResetWindowBatch(ctx, domain.WindowWeek, oversize))
		require.Error(t, repo.ResetWindowBatch(ctx, domain.WindowLifetime, []string{"u1"}))
	})
}

// RunChatContract exercises a ChatRepository implementation.
func RunChatContract(t *testing.T, newRepo ChatFactory) {
	ctx := context.Background()

	msg := func(gameID, text string) domain.ChatMessage {
		return domain.ChatMessage{
			GameID:    gameID,
			UID:       "u1",
			Username:  "alice",
			Message:   text,
			CreatedAt: Now(),
		}
	}

	t.Run("append assigns id and keeps fields", func(t *testing.T) {
		repo := newRepo(t)
		stored, err := repo.Append(ctx, msg("g1", "hello"))
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.NotEmpty(t, stored.ID)
		assert.Equal(t, "hello", stored.Message)
		assert.Equal(t, "alice", stored.Username)

		list, err := repo.List(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, stored.ID, list[0].ID)
		assert.WithinDuration(t, stored.CreatedAt, list[0].CreatedAt, time.Millisecond)
	})

	t.Run("list preserves append order", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 20; i++ {
			_, err := repo.Append(ctx, msg("g1", fmt.Sprintf("m%02d", i)))
			require.NoError(t, err)
		}
		list, err := repo.List(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, list, 20)
		for i, m := range list {
			assert.Equal(t, fmt.Sprintf("m%02d", i), m.Message)
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Append(ctx, msg("g1", "one"))
		require.NoError(t, err)
		_, err = repo.Append(ctx, msg("g2", "two"))
		require.NoError(t, err)

		list, err := repo.List(ctx, "g2")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "two", list[0].Message)
	})

	t.Run("list unknown session is empty", func(t *testing.T) {
		repo := newRepo(t)
		list, err := repo.List(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("delete session reports removed count", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 3; i++ {
			_, err := repo.Append(ctx, msg("g1", "x"))
			require.NoError(t, err)
		}

		n, err := repo.DeleteSession(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = repo.DeleteSession(ctx, "g1")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("append after delete starts fresh", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Append(ctx, msg("g1", "old"))
		require.NoError(t, err)
		_, err = repo.DeleteSession(ctx, "g1")
		require.NoError(t, err)
		_, err = repo.Append(ctx, msg("g1", "new"))
		require.NoError(t, err)

		list, err := repo.List(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "new", list[0].Message)
	})
}
