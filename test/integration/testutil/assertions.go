//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
)

// DecodeJSON decodes and closes the response body.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus fails with the response body attached, which usually names the AppError.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode == expected {
		return
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	t.Errorf("status: expected %d, got %d: %s", expected, resp.StatusCode, body)
}

// AssertErrorCode decodes an AppError body and compares its code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var appErr domain.AppError
	DecodeJSON(t, resp, &appErr)
	if appErr.Code != expectedCode {
		t.Errorf("error code: expected %q, got %q (%s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertCounters queries user_scores and asserts the three window counters.
func AssertCounters(t *testing.T, env *TestEnv, uid string, total, day, week int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var tot, d, w int64
	err := env.Pool.QueryRow(ctx,
		"SELECT total_games_won, games_won_day, games_won_week FROM user_scores WHERE uid = $1",
		uid).Scan(&tot, &d, &w)
	if err != nil {
		t.Fatalf("AssertCounters: query: %v", err)
	}
	if tot != total {
		t.Errorf("total_games_won: expected %d, got %d", total, tot)
	}
	if d != day {
		t.Errorf("games_won_day: expected %d, got %d", day, d)
	}
	if w != week {
		t.Errorf("games_won_week: expected %d, got %d", week, w)
	}
}

// CountMessages returns the stored chat messages for a game.
func CountMessages(t *testing.T, env *TestEnv, gameID string) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM chat_messages WHERE game_id = $1", gameID).Scan(&count)
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	return count
}
