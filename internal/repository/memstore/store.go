// Package memstore is an in-process store backend for tests and local runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/repository"
	"github.com/google/uuid"
)

// Store keeps scores and chat logs in maps behind a single mutex, so every
// method is one atomic unit.
type Store struct {
	mu       sync.Mutex
	scores   map[string]domain.UserScore
	chats    map[string][]domain.ChatMessage
	maxBatch int
}

var (
	_ repository.ScoreRepository = (*Store)(nil)
	_ repository.ChatRepository  = (*Store)(nil)
)

// New creates an empty store. maxBatch <= 0 selects repository.DefaultMaxBatchSize.
func New(maxBatch int) *Store {
	if maxBatch <= 0 {
		maxBatch = repository.DefaultMaxBatchSize
	}
	return &Store{
		scores:   make(map[string]domain.UserScore),
		chats:    make(map[string][]domain.ChatMessage),
		maxBatch: maxBatch,
	}
}

// Put stores a record verbatim, bypassing defaults. Used to seed fixtures and legacy records.
func (s *Store) Put(score domain.UserScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.UID] = score
}

func (s *Store) Get(_ context.Context, uid string) (*domain.UserScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.scores[uid]
	if !ok {
		return nil, nil
	}
	score.Normalize()
	return &score, nil
}

func (s *Store) Create(_ context.Context, score domain.UserScore) (*domain.UserScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.scores[score.UID]; ok {
		existing.Normalize()
		return &existing, nil
	}
	s.scores[score.UID] = score
	return &score, nil
}

func (s *Store) IncrementWins(_ context.Context, uid string, delta int64, at time.Time) (*domain.UserScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.scores[uid]
	if !ok {
		return nil, nil
	}
	score.Normalize()
	score.TotalGamesWon += delta
	score.GamesWonDay += delta
	score.GamesWonWeek += delta
	if at.After(score.UpdatedAt) {
		score.UpdatedAt = at
	}
	s.scores[uid] = score
	return &score, nil
}

func (s *Store) TopByWindow(_ context.Context, window domain.Window, limit int) ([]domain.UserScore, error) {
	s.mu.Lock()
	all := make([]domain.UserScore, 0, len(s.scores))
	for _, score := range s.scores {
		score.Normalize()
		all = append(all, score)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return domain.RanksBefore(all[i], all[j], window)
	})
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) ListUIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	uids := make([]string, 0, len(s.scores))
	for uid := range s.scores {
		uids = append(uids, uid)
	}
	s.mu.Unlock()

	sort.Strings(uids)
	return uids, nil
}

func (s *Store) ResetWindowBatch(_ context.Context, window domain.Window, uids []string) error {
	if len(uids) > s.maxBatch {
		return fmt.Errorf("batch of %d exceeds max batch size %d", len(uids), s.maxBatch)
	}
	if !window.Resettable() {
		return fmt.Errorf("window %s cannot be reset", window)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		score, ok := s.scores[uid]
		if !ok {
			continue
		}
		score.Normalize()
		switch window {
		case domain.WindowDay:
			score.GamesWonDay = 0
		case domain.WindowWeek:
			score.GamesWonWeek = 0
		}
		s.scores[uid] = score
	}
	return nil
}

func (s *Store) MaxBatchSize() int { return s.maxBatch }

func (s *Store) Append(_ context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[msg.GameID] = append(s.chats[msg.GameID], msg)
	return &msg, nil
}

func (s *Store) List(_ context.Context, gameID string) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ChatMessage, len(s.chats[gameID]))
	copy(out, s.chats[gameID])
	return out, nil
}

func (s *Store) DeleteSession(_ context.Context, gameID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.chats[gameID]))
	delete(s.chats, gameID)
	return n, nil
}

func (s *Store) Ping(context.Context) error { return nil }
