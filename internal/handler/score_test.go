package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/attaboy/gamesocial/internal/auth"
	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	scores   map[string]*domain.UserScore
	lastK    int
	lastWin  domain.Window
	resetRes domain.ResetResult
	resetErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{scores: map[string]*domain.UserScore{}}
}

func (f *fakeLedger) RegisterUser(_ context.Context, uid string) (*domain.UserScore, error) {
	if s, ok := f.scores[uid]; ok {
		return s, nil
	}
	s := &domain.UserScore{UID: uid, SchemaVersion: domain.ScoreSchemaVersion}
	f.scores[uid] = s
	return s, nil
}

func (f *fakeLedger) IncrementScore(_ context.Context, uid string) (*domain.UserScore, error) {
	s, ok := f.scores[uid]
	if !ok {
		return nil, domain.ErrNotFound("user", uid)
	}
	s.TotalGamesWon++
	s.GamesWonDay++
	s.GamesWonWeek++
	return s, nil
}

func (f *fakeLedger) GetScore(_ context.Context, uid string) (*domain.UserScore, error) {
	s, ok := f.scores[uid]
	if !ok {
		return nil, domain.ErrNotFound("user", uid)
	}
	return s, nil
}

func (f *fakeLedger) TopK(_ context.Context, w domain.Window, k int) ([]domain.UserScore, error) {
	if k <= 0 {
		return nil, domain.ErrValidation("k must be positive")
	}
	f.lastK, f.lastWin = k, w
	return []domain.UserScore{}, nil
}

func (f *fakeLedger) ResetWindow(_ context.Context, w domain.Window) (domain.ResetResult, error) {
	if !w.Resettable() {
		return domain.ResetResult{Window: w}, domain.ErrValidation("cannot reset")
	}
	return f.resetRes, f.resetErr
}

func scoreRouter(l ScoreLedger) http.Handler {
	h := NewScoreHandler(l)
	r := chi.NewRouter()
	r.Post("/scores", h.Register)
	r.Get("/scores/{uid}", h.Get)
	r.Post("/scores/{uid}/wins", h.RecordWin)
	r.Get("/leaderboard", h.Leaderboard)
	r.Post("/admin/windows/{window}/reset", h.ResetWindow)
	return r
}

func do(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestScoreHandler_Register(t *testing.T) {
	l := newFakeLedger()
	h := scoreRouter(l)

	t.Run("uses token subject", func(t *testing.T) {
		claims := &auth.Claims{Realm: auth.RealmPlayer}
		claims.Subject = "u1"
		r := httptest.NewRequest(http.MethodPost, "/scores", nil)
		r = r.WithContext(auth.WithClaims(r.Context(), claims))

		w := do(h, r)
		assert.Equal(t, http.StatusCreated, w.Code)
		var score domain.UserScore
		require.NoError(t, json.NewDecoder(w.Body).Decode(&score))
		assert.Equal(t, "u1", score.UID)
		assert.Contains(t, l.scores, "u1")
	})

	t.Run("no claims", func(t *testing.T) {
		w := do(h, httptest.NewRequest(http.MethodPost, "/scores", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestScoreHandler_GetAndRecordWin(t *testing.T) {
	l := newFakeLedger()
	l.scores["u1"] = &domain.UserScore{UID: "u1", TotalGamesWon: 10, GamesWonDay: 2}
	h := scoreRouter(l)

	w := do(h, httptest.NewRequest(http.MethodPost, "/scores/u1/wins", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(h, httptest.NewRequest(http.MethodGet, "/scores/u1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var score domain.UserScore
	require.NoError(t, json.NewDecoder(w.Body).Decode(&score))
	assert.Equal(t, int64(11), score.TotalGamesWon)
	assert.Equal(t, int64(3), score.GamesWonDay)

	t.Run("unknown user", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, do(h, httptest.NewRequest(http.MethodGet, "/scores/ghost", nil)).Code)
		assert.Equal(t, http.StatusNotFound, do(h, httptest.NewRequest(http.MethodPost, "/scores/ghost/wins", nil)).Code)
	})
}

func TestScoreHandler_Leaderboard(t *testing.T) {
	l := newFakeLedger()
	h := scoreRouter(l)

	t.Run("defaults", func(t *testing.T) {
		w := do(h, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.WindowLifetime, l.lastWin)
		assert.Equal(t, defaultTopK, l.lastK)

		var body struct {
			Window string             `json:"window"`
			Scores []domain.UserScore `json:"scores"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "lifetime", body.Window)
		assert.NotNil(t, body.Scores)
	})

	t.Run("explicit window and k", func(t *testing.T) {
		w := do(h, httptest.NewRequest(http.MethodGet, "/leaderboard?window=week&k=3", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.WindowWeek, l.lastWin)
		assert.Equal(t, 3, l.lastK)
	})

	for _, q := range []string{"window=month", "k=ten", "k=-1"} {
		t.Run("rejects "+q, func(t *testing.T) {
			w := do(h, httptest.NewRequest(http.MethodGet, "/leaderboard?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestScoreHandler_ResetWindow(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		l := newFakeLedger()
		l.resetRes = domain.ResetResult{Window: domain.WindowDay, Total: 3, Succeeded: 3, Chunks: 1}
		w := do(scoreRouter(l), httptest.NewRequest(http.MethodPost, "/admin/windows/day/reset", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var result domain.ResetResult
		require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
		assert.Equal(t, 3, result.Succeeded)
	})

	t.Run("partial failure", func(t *testing.T) {
		l := newFakeLedger()
		l.resetRes = domain.ResetResult{Window: domain.WindowWeek, Total: 1200, Succeeded: 700, Chunks: 3, FailedChunks: 1}
		l.resetErr = domain.ErrPartialFailure("reset week window", 700, 1200, errors.New("conflict"))
		w := do(scoreRouter(l), httptest.NewRequest(http.MethodPost, "/admin/windows/week/reset", nil))

		assert.Equal(t, http.StatusMultiStatus, w.Code)
		var body struct {
			Code    string             `json:"code"`
			Message string             `json:"message"`
			Result  domain.ResetResult `json:"result"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, domain.CodePartialFailure, body.Code)
		assert.Contains(t, body.Message, "700 of 1200")
		assert.Equal(t, 1, body.Result.FailedChunks)
	})

	t.Run("unknown window", func(t *testing.T) {
		w := do(scoreRouter(newFakeLedger()), httptest.NewRequest(http.MethodPost, "/admin/windows/month/reset", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store down", func(t *testing.T) {
		l := newFakeLedger()
		l.resetErr = domain.ErrStoreUnavailable("list users for reset", errors.New("down"))
		w := do(scoreRouter(l), httptest.NewRequest(http.MethodPost, "/admin/windows/day/reset", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
