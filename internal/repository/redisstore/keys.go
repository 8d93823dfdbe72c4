package redisstore

import "github.com/attaboy/gamesocial/internal/domain"

// Key layout.
const (
	keyScorePrefix       = "score:"       // Hash: score:{uid} -> counters
	keyLeaderboardPrefix = "leaderboard:" // ZSet: leaderboard:{window} -> uid by counter
	keyChatPrefix        = "chat:"        // List: chat:{gameId} -> JSON messages
)

// Hash fields of score:{uid}.
const (
	fieldUID           = "uid"
	fieldTotal         = "totalGamesWon"
	fieldDay           = "gamesWonDay"
	fieldWeek          = "gamesWonWeek"
	fieldLegacyWon     = "gamesWon"
	fieldSchemaVersion = "schemaVersion"
	fieldCreatedAtMs   = "createdAtMs"
	fieldUpdatedAtMs   = "updatedAtMs"
)

func scoreKey(uid string) string { return keyScorePrefix + uid }

func leaderboardKey(w domain.Window) string { return keyLeaderboardPrefix + string(w) }

// userKeys is the KEYS list of the per-user scripts: hash, then lifetime, day and week sets.
func userKeys(uid string) []string {
	return []string{
		scoreKey(uid),
		leaderboardKey(domain.WindowLifetime),
		leaderboardKey(domain.WindowDay),
		leaderboardKey(domain.WindowWeek),
	}
}

func chatKey(gameID string) string { return keyChatPrefix + gameID }
