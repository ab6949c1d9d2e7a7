package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/auth"
	"github.com/example/comment-platform/internal/platform/config"
	"github.com/example/comment-platform/internal/platform/db"
	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/internal/platform/httpserver"
	"github.com/example/comment-platform/internal/platform/logging"
	"github.com/example/comment-platform/internal/platform/natsconn"
	"github.com/example/comment-platform/internal/platform/run"
	"github.com/example/comment-platform/services/comments/internal/handlers"
	"github.com/example/comment-platform/services/comments/internal/service"
	"github.com/example/comment-platform/services/comments/internal/store"
	"github.com/example/comment-platform/services/comments/internal/target"
	"github.com/example/comment-platform/services/comments/internal/visibility"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	pool := initPool(log)
	if pool != nil {
		defer pool.Close()
	}

	svc, registry := buildService(cfg, pool, log)

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	verifier := auth.JWTVerifier{Secret: []byte(jwtSecret)}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	// Read routes (anonymous allowed; a valid token refines visibility)
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))
		r.Get("/v1/comments/{target_type}/{target_id}", handlers.ShowComments(svc, registry))
		r.Get("/v1/comments/{target_type}/{target_id}/count", handlers.CountComments(svc, registry))
		r.Get("/v1/comments/{target_type}/{target_id}/since", handlers.CommentsSince(svc, registry))
	})

	// Mutating routes require an authenticated user
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/comments/{target_type}/{target_id}", handlers.PostComment(svc, registry))
		r.Put("/v1/comments/{comment_id}", handlers.EditComment(svc))
		r.Delete("/v1/comments/{target_type}/{target_id}/{comment_id}", handlers.DeleteComment(svc, registry))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		// Event publishing is optional; the service works without NATS.
		nc, err := natsconn.Connect(natsconn.Options{})
		if err != nil {
			log.Warn("nats unavailable, comment events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			js, err := nc.JetStream()
			if err != nil {
				log.Warn("jetstream unavailable, comment events disabled", zap.Error(err))
			} else {
				svc.Events = events.New(js, log)
			}
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

func isProd() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production")
}

// initPool opens the shared Postgres pool. In production
// (APP_ENV=production) a working connection is mandatory and the
// process terminates otherwise; in development a nil pool selects the
// in-memory backends.
func initPool(log *zap.Logger) *pgxpool.Pool {
	if strings.TrimSpace(os.Getenv("DATABASE_URL")) == "" {
		if isProd() {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory stores (development only)")
		return nil
	}

	pool, err := db.Open(context.Background())
	if err != nil {
		if isProd() {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory stores", zap.Error(err))
		return nil
	}

	log.Info("stores: postgres")
	return pool
}

// buildService assembles the comment service and the registry of
// commentable content types. Each registered type maps to its own
// content table; clients never supply table names.
func buildService(cfg config.AppConfig, pool *pgxpool.Pool, log *zap.Logger) (*service.Service, *target.Registry) {
	registry := target.NewRegistry()

	var svc *service.Service
	if pool != nil {
		svc = service.New(store.NewPostgresCommentStore(pool), initCache(cfg, log), log)
		spaces := store.NewPostgresSpaceStore(pool)
		svc.Spaces = spaces
		svc.Policy = spaces
		svc.Files = store.NewPostgresFileStore(pool)

		registry.Register("Post", store.NewPostgresContentSource(pool, "Post", "posts"))
		registry.Register("Event", store.NewPostgresContentSource(pool, "Event", "events"))
		return svc, registry
	}

	svc = service.New(store.NewInMemoryCommentStore(), initCache(cfg, log), log)
	spaces := store.NewInMemorySpaceStore()
	svc.Spaces = spaces
	svc.Policy = spaces
	svc.Files = store.NewInMemoryFileStore()

	registry.Register("Post", store.NewInMemoryContentSource("Post"))
	registry.Register("Event", store.NewInMemoryContentSource("Event"))
	return svc, registry
}

// initCache selects the visibility cache backend. Redis is required in
// production; development falls back to the in-process cache.
func initCache(cfg config.AppConfig, log *zap.Logger) visibility.Cache {
	dsn := strings.TrimSpace(os.Getenv("REDIS_DSN"))
	if dsn == "" {
		if isProd() {
			log.Error("REDIS_DSN is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("REDIS_DSN not set, using in-memory visibility cache (development only)")
		return visibility.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.DefaultShownCount)
	}

	cache := visibility.NewRedisCache(dsn, cfg.Cache.TTL, cfg.Cache.DefaultShownCount, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		if isProd() {
			log.Error("redis ping failed in production", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("redis ping failed, falling back to in-memory visibility cache", zap.Error(err))
		return visibility.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.DefaultShownCount)
	}

	log.Info("visibility cache: redis")
	return cache
}
