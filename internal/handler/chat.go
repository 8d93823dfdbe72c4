package handler

import (
	"context"
	"net/http"

	"github.com/attaboy/gamesocial/internal/auth"
	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ChatLog is the chat service surface the chat endpoints need.
type ChatLog interface {
	AppendMessage(ctx context.Context, gameID, uid, username, message string) (*domain.ChatMessage, error)
	ListMessages(ctx context.Context, gameID string) ([]domain.ChatMessage, error)
	DeleteLog(ctx context.Context, gameID string) error
}

// ChatHandler handles per-game chat endpoints.
type ChatHandler struct {
	chat ChatLog
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat ChatLog) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Append handles POST /games/{gameID}/chat. The author comes from the bearer
// token when one is sent; otherwise the body's username is used with an unknown uid.
func (h *ChatHandler) Append(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Message  string `json:"message"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	var uid string
	username := input.Username
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		uid = claims.Subject
		if claims.Username != "" {
			username = claims.Username
		}
	}

	msg, err := h.chat.AppendMessage(r.Context(), chi.URLParam(r, "gameID"), uid, username, input.Message)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, msg)
}

// List handles GET /games/{gameID}/chat.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.ListMessages(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, messages)
}

// Delete handles DELETE /games/{gameID}/chat.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.DeleteLog(r.Context(), chi.URLParam(r, "gameID")); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
