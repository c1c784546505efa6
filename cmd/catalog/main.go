// Command catalog runs the course catalog on its own, for deployments that split it from the
// main API. Writes are accepted only with the CATALOG_ADMIN_TOKEN bearer token.
package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/config"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/handler"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/service"
	"github.com/lmsplatform/lms/backend/go-services/internal/database"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer func() { _ = logger.Sync() }()

	port := os.Getenv("CATALOG_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	// Prefer the Mongo-backed catalog; fall back to memory when the database is unreachable.
	var svc service.Service
	ctx := context.Background()
	if cfg.MongoDB.URI != "" {
		client, db, err := database.ConnectWithRetry(ctx, cfg.MongoDB, 3)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v): using memory-backed catalog", err)
			svc = service.NewMemoryService()
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			svc = service.NewMongoService(ctx, db.Collection(database.CoursesCollection))
		}
	} else {
		svc = service.NewMemoryService()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })
	handler.RegisterCourseRoutes(r, svc, adminToken(os.Getenv("CATALOG_ADMIN_TOKEN")))

	logger.Infof("catalog service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("%v", err)
	}
}

// adminToken rejects writes without the bearer token; with no token configured all writes are refused.
func adminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}
