package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"github.com/lmsplatform/lms/backend/go-services/internal/session"
)

// CurrentUser returns the signed-in profile of the request scope.
func CurrentUser(c *gin.Context) (*models.UserProfile, bool) {
	s := session.FromContext(c)
	if s == nil {
		return nil, false
	}
	return s.Session.User()
}

// RequireSession rejects requests whose scope is signed out. When the scope fell back to
// signed out because the profile store failed, the response is 503 instead of 401.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.FromContext(c)
		if s == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session scope missing"})
			return
		}
		if _, ok := s.Session.User(); ok {
			c.Next()
			return
		}
		if err := s.Session.Err(); err != nil && session.IsStoreFailure(err) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
	}
}

// RequireRole allows only signed-in users holding one of roles. Use after RequireSession.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// limiterKey prefers the signed-in subject and falls back to the client IP.
func limiterKey(c *gin.Context) string {
	if u, ok := CurrentUser(c); ok && u.ID != "" {
		return "sub:" + u.ID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
