package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/gamesocial/internal/auth"
	"github.com/attaboy/gamesocial/internal/chat"
	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/guard"
	"github.com/attaboy/gamesocial/internal/handler"
	"github.com/attaboy/gamesocial/internal/infra"
	"github.com/attaboy/gamesocial/internal/ledger"
	"github.com/attaboy/gamesocial/internal/repository"
	"github.com/attaboy/gamesocial/internal/repository/memstore"
	"github.com/attaboy/gamesocial/internal/repository/redisstore"
	"github.com/go-chi/chi/v5"
)

// Stores bundles the repositories of the selected backend.
type Stores struct {
	Backend string
	Scores  repository.ScoreRepository
	Chat    repository.ChatRepository
	Health  infra.Pinger
	close   func()
}

// Close releases the backend's connections.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores connects the backend named by cfg.StoreBackend.
func OpenStores(ctx context.Context, cfg *infra.Config, logger *slog.Logger) (*Stores, error) {
	switch cfg.StoreBackend {
	case infra.BackendPostgres:
		if cfg.RunMigrations {
			if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool, err := infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("connected to postgres")
		return &Stores{
			Backend: cfg.StoreBackend,
			Scores:  repository.NewScoreRepository(pool, cfg.ResetBatchSize),
			Chat:    repository.NewChatRepository(pool),
			Health:  pool,
			close:   pool.Close,
		}, nil

	case infra.BackendRedis:
		rdb, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("connected to redis")
		store := redisstore.New(rdb, cfg.ResetBatchSize)
		upgraded, err := store.UpgradeLegacy(ctx)
		if err != nil {
			rdb.Close()
			return nil, fmt.Errorf("upgrade legacy scores: %w", err)
		}
		if upgraded > 0 {
			logger.Info("upgraded legacy score records", "count", upgraded)
		}
		return &Stores{
			Backend: cfg.StoreBackend,
			Scores:  store,
			Chat:    store,
			Health:  store,
			close:   func() { rdb.Close() },
		}, nil

	case infra.BackendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		store := memstore.New(cfg.ResetBatchSize)
		return &Stores{
			Backend: cfg.StoreBackend,
			Scores:  store,
			Chat:    store,
			Health:  store,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Services holds the core components built on top of the stores.
type Services struct {
	Ledger  *ledger.Engine
	Chat    *chat.Service
	Limiter *guard.RateLimiter
}

// NewServices wires the ledger and chat log. events may be nil.
func NewServices(stores *Stores, cfg *infra.Config, events domain.EventPublisher, logger *slog.Logger) *Services {
	limiter := guard.NewRateLimiter(cfg.ChatRateLimit, time.Minute)
	return &Services{
		Ledger: ledger.NewEngine(stores.Scores, events, logger, ledger.Options{
			MaxK:      cfg.LeaderboardMaxK,
			BatchSize: cfg.ResetBatchSize,
		}),
		Chat: chat.NewService(stores.Chat, events, logger, chat.Options{
			MaxMessageLen: cfg.ChatMaxMessageLen,
			Limiter:       limiter,
		}),
		Limiter: limiter,
	}
}

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Stores   *Stores
	Services *Services
	JWTMgr   *auth.JWTManager
	Logger   *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	jwtMgr := deps.JWTMgr

	scoreHandler := handler.NewScoreHandler(deps.Services.Ledger)
	chatHandler := handler.NewChatHandler(deps.Services.Chat)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(deps.Logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(deps.Logger))
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(deps.Stores.Health, deps.Stores.Backend))

	// Public reads
	r.Get("/scores/{uid}", scoreHandler.Get)
	r.Get("/leaderboard", scoreHandler.Leaderboard)
	r.Get("/games/{gameID}/chat", chatHandler.List)

	// Chat posting works with or without a player token
	r.With(auth.OptionalPlayer(jwtMgr)).Post("/games/{gameID}/chat", chatHandler.Append)

	// Player-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticatePlayer(jwtMgr))
		r.Post("/scores", scoreHandler.Register)
	})

	// Admin-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateAdmin(jwtMgr))

		r.With(auth.RequireRole(auth.ScoreWriteRoles()...)).Post("/scores/{uid}/wins", scoreHandler.RecordWin)
		r.With(auth.RequireRole(auth.ScoreWriteRoles()...)).Post("/admin/windows/{window}/reset", scoreHandler.ResetWindow)
		r.With(auth.RequireRole(auth.ModerationRoles()...)).Delete("/games/{gameID}/chat", chatHandler.Delete)
	})

	return r
}
