package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/attaboy/gamesocial/internal/auth"
	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/go-chi/chi/v5"
)

// defaultTopK is served when the leaderboard request has no k.
const defaultTopK = 10

// ScoreLedger is the ledger surface the score endpoints need.
type ScoreLedger interface {
	RegisterUser(ctx context.Context, uid string) (*domain.UserScore, error)
	IncrementScore(ctx context.Context, uid string) (*domain.UserScore, error)
	GetScore(ctx context.Context, uid string) (*domain.UserScore, error)
	TopK(ctx context.Context, window domain.Window, k int) ([]domain.UserScore, error)
	ResetWindow(ctx context.Context, window domain.Window) (domain.ResetResult, error)
}

// ScoreHandler handles score, leaderboard and window reset endpoints.
type ScoreHandler struct {
	ledger ScoreLedger
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(ledger ScoreLedger) *ScoreHandler {
	return &ScoreHandler{ledger: ledger}
}

// Register handles POST /scores for the authenticated player.
func (h *ScoreHandler) Register(w http.ResponseWriter, r *http.Request) {
	uid := auth.SubjectFromContext(r.Context())
	if uid == "" {
		RespondError(w, domain.ErrUnauthorized("no authenticated player"))
		return
	}

	score, err := h.ledger.RegisterUser(r.Context(), uid)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, score)
}

// Get handles GET /scores/{uid}.
func (h *ScoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	score, err := h.ledger.GetScore(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, score)
}

// RecordWin handles POST /scores/{uid}/wins.
func (h *ScoreHandler) RecordWin(w http.ResponseWriter, r *http.Request) {
	score, err := h.ledger.IncrementScore(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, score)
}

// Leaderboard handles GET /leaderboard?window=lifetime|day|week&k=N.
func (h *ScoreHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	window := domain.WindowLifetime
	if raw := q.Get("window"); raw != "" {
		parsed, err := domain.ParseWindow(raw)
		if err != nil {
			RespondError(w, domain.ErrValidation(err.Error()))
			return
		}
		window = parsed
	}

	k := defaultTopK
	if raw := q.Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(w, domain.ErrValidation("k must be an integer"))
			return
		}
		k = parsed
	}

	scores, err := h.ledger.TopK(r.Context(), window, k)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"window": window,
		"scores": scores,
	})
}

// ResetWindow handles POST /admin/windows/{window}/reset.
// A partial failure answers 207 with the counts so operators can re-run.
func (h *ScoreHandler) ResetWindow(w http.ResponseWriter, r *http.Request) {
	window, err := domain.ParseWindow(chi.URLParam(r, "window"))
	if err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}

	result, err := h.ledger.ResetWindow(r.Context(), window)
	if appErr, ok := domain.AsAppError(err); ok && appErr.Code == domain.CodePartialFailure {
		RespondJSON(w, appErr.Status, map[string]interface{}{
			"code":    appErr.Code,
			"message": appErr.Message,
			"result":  result,
		})
		return
	}
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}
