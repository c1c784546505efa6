package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/config"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used by the services.
const (
	ProfilesCollection    = "users"
	SessionsCollection    = "sessions"
	CoursesCollection     = "courses"
	EnrollmentsCollection = "enrollments"
)

// Connect opens a client for cfg, pings the primary and returns the configured database.
// Caller should call client.Disconnect(ctx).
func Connect(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(cfg.Database), nil
}

// Ping checks the connection within timeout; used by readiness probes.
func Ping(ctx context.Context, client *mongo.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

// ConnectWithRetry retries Connect with exponential backoff to tolerate startup races
// (e.g. compose bringing Mongo up after the service).
func ConnectWithRetry(ctx context.Context, cfg config.MongoDBConfig, maxAttempts int) (*mongo.Client, *mongo.Database, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, db, err := Connect(ctx, cfg)
		if err == nil {
			return client, db, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, lastErr)
}
