package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateUID checks that a user identifier is present.
func ValidateUID(uid string) error {
	if strings.TrimSpace(uid) == "" {
		return fmt.Errorf("uid is required")
	}
	return nil
}

// ValidateGameID checks that a game session identifier is present.
func ValidateGameID(gameID string) error {
	if strings.TrimSpace(gameID) == "" {
		return fmt.Errorf("gameId is required")
	}
	return nil
}

// ValidateTopK checks the requested leaderboard size.
func ValidateTopK(k int) error {
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d", k)
	}
	return nil
}

// ValidateChatMessage checks a chat payload against the configured rune limit.
// maxLen <= 0 disables the length check.
func ValidateChatMessage(msg string, maxLen int) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("message is required")
	}
	if maxLen > 0 && utf8.RuneCountInString(msg) > maxLen {
		return fmt.Errorf("message exceeds %d characters", maxLen)
	}
	return nil
}
