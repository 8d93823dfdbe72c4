//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll empties the score and chat tables and restarts the chat sequence,
// so every test sees a fresh ledger and empty sessions.
func (env *TestEnv) CleanAll() {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := env.Pool.Exec(ctx, "TRUNCATE TABLE chat_messages, user_scores RESTART IDENTITY"); err != nil {
		env.t.Fatalf("truncate tables: %v", err)
	}
}
