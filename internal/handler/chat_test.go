package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/attaboy/gamesocial/internal/auth"
	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appendCall struct {
	gameID, uid, username, message string
}

type fakeChat struct {
	calls []appendCall
	logs  map[string][]domain.ChatMessage
}

func newFakeChat() *fakeChat {
	return &fakeChat{logs: map[string][]domain.ChatMessage{}}
}

func (f *fakeChat) AppendMessage(_ context.Context, gameID, uid, username, message string) (*domain.ChatMessage, error) {
	f.calls = append(f.calls, appendCall{gameID, uid, username, message})
	if message == "" {
		return nil, domain.ErrValidation("message is required")
	}
	msg := domain.ChatMessage{ID: "m1", GameID: gameID, UID: uid, Username: username, Message: message}
	f.logs[gameID] = append(f.logs[gameID], msg)
	return &msg, nil
}

func (f *fakeChat) ListMessages(_ context.Context, gameID string) ([]domain.ChatMessage, error) {
	if msgs, ok := f.logs[gameID]; ok {
		return msgs, nil
	}
	return []domain.ChatMessage{}, nil
}

func (f *fakeChat) DeleteLog(_ context.Context, gameID string) error {
	if _, ok := f.logs[gameID]; !ok {
		return domain.ErrNotFound("chat session", gameID)
	}
	delete(f.logs, gameID)
	return nil
}

func chatRouter(c ChatLog) http.Handler {
	h := NewChatHandler(c)
	r := chi.NewRouter()
	r.Get("/games/{gameID}/chat", h.List)
	r.Post("/games/{gameID}/chat", h.Append)
	r.Delete("/games/{gameID}/chat", h.Delete)
	return r
}

func postChat(body string, claims *auth.Claims) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/games/g1/chat", bytes.NewBufferString(body))
	if claims != nil {
		r = r.WithContext(auth.WithClaims(r.Context(), claims))
	}
	return r
}

func TestChatHandler_Append(t *testing.T) {
	t.Run("anonymous uses body username", func(t *testing.T) {
		c := newFakeChat()
		w := do(chatRouter(c), postChat(`{"username":"guest","message":"hi"}`, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, c.calls, 1)
		assert.Equal(t, appendCall{"g1", "", "guest", "hi"}, c.calls[0])
	})

	t.Run("token identity wins", func(t *testing.T) {
		c := newFakeChat()
		claims := &auth.Claims{Realm: auth.RealmPlayer, Username: "alice"}
		claims.Subject = "u1"
		w := do(chatRouter(c), postChat(`{"username":"mallory","message":"hi"}`, claims))

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, c.calls, 1)
		assert.Equal(t, appendCall{"g1", "u1", "alice", "hi"}, c.calls[0])
	})

	t.Run("token without username keeps body username", func(t *testing.T) {
		c := newFakeChat()
		claims := &auth.Claims{Realm: auth.RealmPlayer}
		claims.Subject = "u1"
		do(chatRouter(c), postChat(`{"username":"bob","message":"hi"}`, claims))

		require.Len(t, c.calls, 1)
		assert.Equal(t, "bob", c.calls[0].username)
	})

	t.Run("invalid body", func(t *testing.T) {
		c := newFakeChat()
		w := do(chatRouter(c), postChat(`{`, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, c.calls)
	})

	t.Run("validation error from service", func(t *testing.T) {
		w := do(chatRouter(newFakeChat()), postChat(`{"message":""}`, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChatHandler_ListAndDelete(t *testing.T) {
	c := newFakeChat()
	h := chatRouter(c)
	do(h, postChat(`{"message":"one"}`, nil))
	do(h, postChat(`{"message":"two"}`, nil))

	w := do(h, httptest.NewRequest(http.MethodGet, "/games/g1/chat", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []domain.ChatMessage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Message)

	w = do(h, httptest.NewRequest(http.MethodGet, "/games/none/chat", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(h, httptest.NewRequest(http.MethodDelete, "/games/g1/chat", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(h, httptest.NewRequest(http.MethodDelete, "/games/g1/chat", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
