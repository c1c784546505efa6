// Package commands holds the lmsctl subcommands.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/lmsplatform/lms/backend/go-services/internal/config"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/service"
	"github.com/lmsplatform/lms/backend/go-services/internal/database"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/internal/progress"
	"github.com/lmsplatform/lms/backend/go-services/internal/sessions"
	"github.com/redis/go-redis/v9"
)

// Stores are the collections a command works on.
type Stores struct {
	Profiles profiles.Repository
	Catalog  service.Service
	Events   progress.EventStore
	Sessions *sessions.Service
	Close    func()
}

// Opener connects to the stores; commands take one so tests can pass in-memory stores.
type Opener func(ctx context.Context) (*Stores, error)

// OpenFromConfig connects to the MongoDB database named by the service configuration.
// Sessions live in Redis when REDIS_HOST is set, as they do for the API server.
func OpenFromConfig(ctx context.Context) (*Stores, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.MongoDB.URI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	client, db, err := database.Connect(ctx, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	var (
		repo sessions.Repository = sessions.NewMongoRepository(ctx, db.Collection(database.SessionsCollection))
		rdb  *redis.Client
	)
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		repo = sessions.NewRedisRepository(rdb, "session:")
	}
	return &Stores{
		Profiles: profiles.NewMongoStore(db.Collection(database.ProfilesCollection)),
		Catalog:  service.NewMongoService(ctx, db.Collection(database.CoursesCollection)),
		Events:   progress.NewMongoEvents(ctx, db.Collection(database.EnrollmentsCollection)),
		Sessions: sessions.NewService(repo),
		Close: func() {
			if rdb != nil {
				_ = rdb.Close()
			}
			if err := client.Disconnect(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		},
	}, nil
}

func withStores(ctx context.Context, open Opener, fn func(s *Stores) error) error {
	s, err := open(ctx)
	if err != nil {
		return err
	}
	if s.Close != nil {
		defer s.Close()
	}
	return fn(s)
}
