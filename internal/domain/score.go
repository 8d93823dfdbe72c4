package domain

import (
	"fmt"
	"time"
)

// ScoreSchemaVersion is the current UserScore layout.
// v1 carried a single gamesWon counter; v2 splits it into lifetime/day/week windows.
const ScoreSchemaVersion = 2

// Window selects one of the counting horizons.
type Window string

const (
	WindowLifetime Window = "lifetime"
	WindowDay      Window = "day"
	WindowWeek     Window = "week"
)

// ParseWindow validates a window name coming from a caller.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case WindowLifetime, WindowDay, WindowWeek:
		return w, nil
	default:
		return "", fmt.Errorf("unsupported window: %q", s)
	}
}

// Valid reports whether w is one of the known windows.
func (w Window) Valid() bool {
	return w == WindowLifetime || w == WindowDay || w == WindowWeek
}

// Resettable reports whether the scheduler may zero this window.
func (w Window) Resettable() bool {
	return w == WindowDay || w == WindowWeek
}

// Column returns the SQL column backing the window counter.
func (w Window) Column() string {
	switch w {
	case WindowDay:
		return "games_won_day"
	case WindowWeek:
		return "games_won_week"
	default:
		return "total_games_won"
	}
}

// Field returns the document field name backing the window counter.
func (w Window) Field() string {
	switch w {
	case WindowDay:
		return "gamesWonDay"
	case WindowWeek:
		return "gamesWonWeek"
	default:
		return "totalGamesWon"
	}
}

// UserScore is the per-user win tally. Windows are independent counters,
// so a reset may leave GamesWonDay or GamesWonWeek below TotalGamesWon.
type UserScore struct {
	UID           string    `json:"uid"`
	TotalGamesWon int64     `json:"totalGamesWon"`
	GamesWonDay   int64     `json:"gamesWonDay"`
	GamesWonWeek  int64     `json:"gamesWonWeek"`
	SchemaVersion int       `json:"schemaVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// LegacyGamesWon is the v1 counter, read only for migration.
	LegacyGamesWon int64 `json:"gamesWon,omitempty"`
}

// NewUserScore returns a zeroed record for a freshly registered user.
func NewUserScore(uid string, now time.Time) UserScore {
	return UserScore{
		UID:           uid,
		SchemaVersion: ScoreSchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Normalize fills defaults for records written under an older schema.
// Missing counters read as zero and a v1 gamesWon value becomes the lifetime total.
func (s *UserScore) Normalize() {
	if s.SchemaVersion < 2 {
		if s.TotalGamesWon == 0 {
			s.TotalGamesWon = s.LegacyGamesWon
		}
		s.SchemaVersion = ScoreSchemaVersion
	}
	s.LegacyGamesWon = 0
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
}

// Count returns the counter selected by w.
func (s UserScore) Count(w Window) int64 {
	switch w {
	case WindowDay:
		return s.GamesWonDay
	case WindowWeek:
		return s.GamesWonWeek
	default:
		return s.TotalGamesWon
	}
}

// RanksBefore orders scores by the window counter descending, then uid ascending.
func RanksBefore(a, b UserScore, w Window) bool {
	ca, cb := a.Count(w), b.Count(w)
	if ca != cb {
		return ca > cb
	}
	return a.UID < b.UID
}

// ResetResult summarizes a chunked window reset.
type ResetResult struct {
	Window       Window `json:"window"`
	Total        int    `json:"total"`
	Succeeded    int    `json:"succeeded"`
	Chunks       int    `json:"chunks"`
	FailedChunks int    `json:"failedChunks"`
}

// Complete reports whether every record was reset.
func (r ResetResult) Complete() bool {
	return r.FailedChunks == 0 && r.Succeeded == r.Total
}
