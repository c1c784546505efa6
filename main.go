package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/handlers"
	"github.com/lmsplatform/lms/backend/go-services/internal/bridge"
	"github.com/lmsplatform/lms/backend/go-services/internal/config"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/service"
	"github.com/lmsplatform/lms/backend/go-services/internal/database"
	"github.com/lmsplatform/lms/backend/go-services/internal/identity"
	"github.com/lmsplatform/lms/backend/go-services/internal/oidc"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/internal/progress"
	"github.com/lmsplatform/lms/backend/go-services/internal/session"
	"github.com/lmsplatform/lms/backend/go-services/internal/sessions"
	"github.com/lmsplatform/lms/backend/go-services/internal/storage"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"github.com/lmsplatform/lms/backend/go-services/pkg/metrics"
	"github.com/lmsplatform/lms/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v",
		cfg.Keycloak.Configured(), cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.MinIO.Endpoint != "")

	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = randomSecret()
		logger.Warn("JWT_SECRET not set: using a random secret, sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]func(ctx context.Context) error{}

	// Redis backs sessions, the revocation blacklist and the shared rate limiter when present.
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		c := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = c.Close()
		} else {
			logger.Infof("connected to Redis: %s", addr)
			rdb = c
			defer func() { _ = rdb.Close() }()
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	var db *mongo.Database
	if cfg.MongoDB.URI != "" {
		client, d, err := database.ConnectWithRetry(ctx, cfg.MongoDB, 5)
		if err != nil {
			if !cfg.MongoDB.MemoryStore {
				logger.Fatalf("%v", err)
			}
			logger.Warnf("%v: falling back to in-memory stores", err)
		} else {
			db = d
			defer func() { _ = client.Disconnect(context.Background()) }()
			checks["mongodb"] = func(ctx context.Context) error { return database.Ping(ctx, client, cfg.MongoDB.Timeout) }
		}
	}

	var (
		sessionRepo sessions.Repository
		profileRepo profiles.Repository
		catalog     service.Service
		events      progress.EventStore
	)
	switch {
	case rdb != nil:
		sessionRepo = sessions.NewRedisRepository(rdb, "session:")
		logger.Info("using Redis for session storage")
	case db != nil:
		sessionRepo = sessions.NewMongoRepository(ctx, db.Collection(database.SessionsCollection))
		logger.Info("using MongoDB for session storage")
	default:
		sessionRepo = sessions.NewMemoryRepository()
		logger.Warn("using in-memory session storage")
	}
	if db != nil {
		profileRepo = profiles.NewMongoStore(db.Collection(database.ProfilesCollection))
		catalog = service.NewMongoService(ctx, db.Collection(database.CoursesCollection))
		events = progress.NewMongoEvents(ctx, db.Collection(database.EnrollmentsCollection))
	} else {
		logger.Warn("profiles, courses and enrollments are kept in memory")
		profileRepo = profiles.NewMemoryStore()
		catalog = service.NewMemoryService()
		events = progress.NewMemoryEvents()
	}

	var avatars *storage.Avatars
	if cfg.MinIO.Endpoint != "" {
		s, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("avatar storage disabled: %v", err)
		} else {
			avatars = storage.NewAvatars(s)
		}
	}

	backend, err := identityBackend(ctx, cfg)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	if cfg.Server.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	var limiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		l := middleware.Limit{
			Name:   "api",
			RPS:    cfg.RateLimit.RPS,
			Burst:  cfg.RateLimit.Burst,
			Window: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		}
		if cfg.RateLimit.UseRedis && rdb != nil {
			limiter = middleware.RedisRateLimitMiddleware(rdb, l)
		} else {
			limiter = middleware.RateLimitMiddleware(l)
		}
	}

	r := handlers.NewRouter(handlers.Deps{
		Config: cfg,
		Scope: session.ScopeDeps{
			Backend: backend,
			Store:   profileRepo,
			Bridge: bridge.Deps{
				Sessions:   sessions.NewService(sessionRepo),
				Blacklist:  sessions.NewBlacklist(rdb),
				Secret:     cfg.JWT.Secret,
				CookieName: cfg.Session.CookieName,
				TTL:        cfg.Session.TTL,
				Secure:     cfg.Server.Production(),
			},
		},
		Profiles:  profileRepo,
		Catalog:   catalog,
		Progress:  progress.NewService(profileRepo, catalog, events),
		Analytics: progress.NewAnalytics(events),
		Avatars:   avatars,
		Limiter:   limiter,
		Checks:    checks,
		Global:    []gin.HandlerFunc{cors},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("lms-api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// identityBackend picks Keycloak when configured (with an unverified token parser when
// ALLOW_INSECURE_TOKEN=true and discovery fails), otherwise the in-process provider.
func identityBackend(ctx context.Context, cfg *config.Config) (identity.Backend, error) {
	if !cfg.Keycloak.Configured() {
		if cfg.Server.Production() {
			return nil, errKeycloakRequired
		}
		logger.Warn("Keycloak not configured: using the in-memory identity provider")
		return identity.NewMemoryBackend(), nil
	}
	var verifier oidc.TokenVerifier
	ver, err := oidc.NewVerifier(ctx, cfg.Keycloak.Issuer(), cfg.Keycloak.ClientID)
	if err == nil {
		verifier = ver
	} else {
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
		if strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN"))) != "true" {
			return nil, err
		}
		logger.Warn("enabling insecure OIDC verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier(cfg.Keycloak.ClientID)
	}
	return identity.NewKeycloak(cfg.Keycloak, verifier), nil
}

var errKeycloakRequired = errors.New("KEYCLOAK_URL, KEYCLOAK_REALM and KEYCLOAK_CLIENT_ID are required in production")

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.Fatalf("generate secret: %v", err)
	}
	return hex.EncodeToString(b)
}

// Lightweight CORS for the dev frontend. Credentials are allowed so the session cookie flows.
func cors(c *gin.Context) {
	if origin := c.GetHeader("Origin"); origin != "" {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Vary", "Origin")
	}
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
	c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusOK)
		return
	}
	c.Next()
}
