package domain

import "time"

// Sentinels substituted when the author is not known.
const (
	UnknownUID        = "unknown"
	AnonymousUsername = "anonymous"
)

// ChatMessage is one entry in a game session's append-only chat log.
type ChatMessage struct {
	ID        string    `json:"id"`
	GameID    string    `json:"gameId"`
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
