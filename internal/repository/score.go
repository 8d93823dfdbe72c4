package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scoreColumns = `uid, total_games_won, games_won_day, games_won_week, schema_version, created_at, updated_at`

type scoreRepo struct {
	pool     *pgxpool.Pool
	maxBatch int
}

// NewScoreRepository returns a pgx-backed ScoreRepository.
// maxBatch <= 0 selects DefaultMaxBatchSize.
func NewScoreRepository(pool *pgxpool.Pool, maxBatch int) ScoreRepository {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	return &scoreRepo{pool: pool, maxBatch: maxBatch}
}

func (r *scoreRepo) Get(ctx context.Context, uid string) (*domain.UserScore, error) {
	return findScore(ctx, r.pool, uid)
}

func (r *scoreRepo) Create(ctx context.Context, score domain.UserScore) (*domain.UserScore, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_scores (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (uid) DO NOTHING`,
		score.UID,
		score.TotalGamesWon,
		score.GamesWonDay,
		score.GamesWonWeek,
		score.SchemaVersion,
		score.CreatedAt,
		score.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user score: %w", err)
	}
	return findScore(ctx, r.pool, score.UID)
}

// IncrementWins uses server-side arithmetic so concurrent callers never lose an update.
func (r *scoreRepo) IncrementWins(ctx context.Context, uid string, delta int64, at time.Time) (*domain.UserScore, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE user_scores SET
			total_games_won = total_games_won + $1,
			games_won_day   = games_won_day + $1,
			games_won_week  = games_won_week + $1,
			updated_at      = GREATEST(updated_at, $2)
		WHERE uid = $3
		RETURNING `+scoreColumns, delta, at, uid)
	return scanScore(row)
}

func (r *scoreRepo) TopByWindow(ctx context.Context, window domain.Window, limit int) ([]domain.UserScore, error) {
	// Column comes from a closed set, never from caller input.
	query := fmt.Sprintf(`
		SELECT %s FROM user_scores
		ORDER BY %s DESC, uid ASC
		LIMIT $1`, scoreColumns, window.Column())

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top scores: %w", err)
	}
	defer rows.Close()

	scores := []domain.UserScore{}
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *s)
	}
	return scores, rows.Err()
}

func (r *scoreRepo) ListUIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT uid FROM user_scores ORDER BY uid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list uids: %w", err)
	}
	defer rows.Close()

	uids := []string{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan uid: %w", err)
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// ResetWindowBatch runs the chunk in its own transaction so it commits or rolls back as a unit.
func (r *scoreRepo) ResetWindowBatch(ctx context.Context, window domain.Window, uids []string) error {
	if len(uids) > r.maxBatch {
		return fmt.Errorf("batch of %d exceeds max batch size %d", len(uids), r.maxBatch)
	}
	if !window.Resettable() {
		return fmt.Errorf("window %s cannot be reset", window)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`UPDATE user_scores SET %s = 0 WHERE uid = ANY($1)`, window.Column())
		if _, err := tx.Exec(ctx, query, uids); err != nil {
			return fmt.Errorf("reset %s batch: %w", window, err)
		}
		return nil
	})
}

func (r *scoreRepo) MaxBatchSize() int { return r.maxBatch }

func findScore(ctx context.Context, db DBTX, uid string) (*domain.UserScore, error) {
	row := db.QueryRow(ctx, `SELECT `+scoreColumns+` FROM user_scores WHERE uid = $1`, uid)
	return scanScore(row)
}

func scanScore(row pgx.Row) (*domain.UserScore, error) {
	var s domain.UserScore
	err := row.Scan(&s.UID, &s.TotalGamesWon, &s.GamesWonDay, &s.GamesWonWeek,
		&s.SchemaVersion, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user score: %w", err)
	}
	return &s, nil
}
