// Package redisstore is the Redis store backend: a hash per user, a sorted
// set per window for ranking, and a list per chat session.
//
// Scripts touch a user hash and the shared window sets together, so the store
// needs a single Redis node (or a primary with replicas), not Redis Cluster.
package redisstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/repository"
	"github.com/redis/go-redis/v9"
)

// Store implements the score and chat repositories on Redis.
type Store struct {
	rdb      *redis.Client
	maxBatch int
}

var (
	_ repository.ScoreRepository = (*Store)(nil)
	_ repository.ChatRepository  = (*Store)(nil)
)

// New wraps a connected client. maxBatch <= 0 selects repository.DefaultMaxBatchSize.
func New(rdb *redis.Client, maxBatch int) *Store {
	if maxBatch <= 0 {
		maxBatch = repository.DefaultMaxBatchSize
	}
	return &Store{rdb: rdb, maxBatch: maxBatch}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Get(ctx context.Context, uid string) (*domain.UserScore, error) {
	fields, err := s.rdb.HGetAll(ctx, scoreKey(uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("get user score: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseScore(uid, fields)
}

func (s *Store) Create(ctx context.Context, score domain.UserScore) (*domain.UserScore, error) {
	err := createScript.Run(ctx, s.rdb, userKeys(score.UID),
		score.UID, score.SchemaVersion, score.CreatedAt.UnixMilli(), score.UpdatedAt.UnixMilli(),
		score.TotalGamesWon, score.GamesWonDay, score.GamesWonWeek).Err()
	if err != nil {
		return nil, fmt.Errorf("create user score: %w", err)
	}
	return s.Get(ctx, score.UID)
}

func (s *Store) IncrementWins(ctx context.Context, uid string, delta int64, at time.Time) (*domain.UserScore, error) {
	applied, err := incrementScript.Run(ctx, s.rdb, userKeys(uid),
		delta, at.UnixMilli(), uid, domain.ScoreSchemaVersion).Int()
	if err != nil {
		return nil, fmt.Errorf("increment user score: %w", err)
	}
	if applied == 0 {
		return nil, nil
	}
	return s.Get(ctx, uid)
}

// TopByWindow ranks the members strictly above the k-th score in Go and takes the
// rest from the k-th score's tie group, which Redis already returns in member
// (uid) order. Only O(k) members are read however large the tie group is.
func (s *Store) TopByWindow(ctx context.Context, window domain.Window, limit int) ([]domain.UserScore, error) {
	ranked, err := s.rankWindow(ctx, leaderboardKey(window), limit)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return []domain.UserScore{}, nil
	}

	cmds, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, z := range ranked {
			pipe.HGetAll(ctx, scoreKey(z.Member.(string)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load ranked scores: %w", err)
	}

	scores := make([]domain.UserScore, 0, len(cmds))
	for i, cmd := range cmds {
		fields, err := cmd.(*redis.MapStringStringCmd).Result()
		if err != nil {
			return nil, fmt.Errorf("load ranked score: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		score, err := parseScore(ranked[i].Member.(string), fields)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)
	}
	return scores, nil
}

// rankWindow returns at most limit members of key, counter desc then uid asc.
func (s *Store) rankWindow(ctx context.Context, key string, limit int) ([]redis.Z, error) {
	top, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("query top scores: %w", err)
	}
	if len(top) == 0 {
		return nil, nil
	}

	// Every member above the floor is inside top; ZREVRANGE orders their ties by
	// member descending, so they are re-sorted here.
	floor := top[len(top)-1].Score
	above := make([]redis.Z, 0, len(top))
	for _, z := range top {
		if z.Score > floor {
			above = append(above, z)
		}
	}
	sort.Slice(above, func(i, j int) bool {
		if above[i].Score != above[j].Score {
			return above[i].Score > above[j].Score
		}
		return above[i].Member.(string) < above[j].Member.(string)
	})

	bound := strconv.FormatFloat(floor, 'f', -1, 64)
	tied, err := s.rdb.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min:   bound,
		Max:   bound,
		Count: int64(limit - len(above)),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("query tied scores: %w", err)
	}
	return append(above, tied...), nil
}

func (s *Store) ListUIDs(ctx context.Context) ([]string, error) {
	uids, err := s.rdb.ZRange(ctx, leaderboardKey(domain.WindowLifetime), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list uids: %w", err)
	}
	sort.Strings(uids)
	return uids, nil
}

func (s *Store) ResetWindowBatch(ctx context.Context, window domain.Window, uids []string) error {
	if len(uids) > s.maxBatch {
		return fmt.Errorf("batch of %d exceeds max batch size %d", len(uids), s.maxBatch)
	}
	if !window.Resettable() {
		return fmt.Errorf("window %s cannot be reset", window)
	}
	if len(uids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(uids)+1)
	args := make([]interface{}, 0, len(uids)+1)
	keys = append(keys, leaderboardKey(window))
	args = append(args, window.Field())
	for _, uid := range uids {
		keys = append(keys, scoreKey(uid))
		args = append(args, uid)
	}
	if err := resetScript.Run(ctx, s.rdb, keys, args...).Err(); err != nil {
		return fmt.Errorf("reset %s batch: %w", window, err)
	}
	return nil
}

func (s *Store) MaxBatchSize() int { return s.maxBatch }

// UpgradeLegacy scans every score hash and upgrades v1 records that were
// written before the window counters existed, so ranking and resets see them.
// It returns how many hashes were upgraded and is safe to run repeatedly.
func (s *Store) UpgradeLegacy(ctx context.Context) (int, error) {
	upgraded := 0
	iter := s.rdb.Scan(ctx, 0, keyScorePrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		uid := strings.TrimPrefix(iter.Val(), keyScorePrefix)
		n, err := upgradeScript.Run(ctx, s.rdb, userKeys(uid), uid, domain.ScoreSchemaVersion).Int()
		if err != nil {
			return upgraded, fmt.Errorf("upgrade %s: %w", uid, err)
		}
		upgraded += n
	}
	if err := iter.Err(); err != nil {
		return upgraded, fmt.Errorf("scan score hashes: %w", err)
	}
	return upgraded, nil
}

func parseScore(uid string, fields map[string]string) (*domain.UserScore, error) {
	score := domain.UserScore{UID: uid}
	ints := []struct {
		field string
		dst   *int64
	}{
		{fieldTotal, &score.TotalGamesWon},
		{fieldDay, &score.GamesWonDay},
		{fieldWeek, &score.GamesWonWeek},
		{fieldLegacyWon, &score.LegacyGamesWon},
	}
	for _, f := range ints {
		v, ok := fields[f.field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s for %s: %w", f.field, uid, err)
		}
		*f.dst = n
	}

	if v, ok := fields[fieldSchemaVersion]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s for %s: %w", fieldSchemaVersion, uid, err)
		}
		score.SchemaVersion = n
	} else if _, ok := fields[fieldTotal]; !ok {
		score.SchemaVersion = 1
	}

	var err error
	if score.CreatedAt, err = parseMillis(fields[fieldCreatedAtMs]); err != nil {
		return nil, fmt.Errorf("parse %s for %s: %w", fieldCreatedAtMs, uid, err)
	}
	if score.UpdatedAt, err = parseMillis(fields[fieldUpdatedAtMs]); err != nil {
		return nil, fmt.Errorf("parse %s for %s: %w", fieldUpdatedAtMs, uid, err)
	}

	score.Normalize()
	return &score, nil
}

func parseMillis(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
