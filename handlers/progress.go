package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/progress"
	"github.com/lmsplatform/lms/backend/go-services/internal/session"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"github.com/lmsplatform/lms/backend/go-services/pkg/middleware"
)

// ProgressHandler serves enrollment and lesson completion for the signed-in user.
type ProgressHandler struct {
	svc *progress.Service
}

func NewProgressHandler(svc *progress.Service) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// Register mounts routes under /courses/:id of rg (expected to require a session).
func (h *ProgressHandler) Register(rg gin.IRouter) {
	g := rg.Group("/courses/:id")
	g.POST("/enroll", h.Enroll)
	g.POST("/lessons/:lessonId/complete", h.CompleteLesson)
	g.GET("/progress", h.Get)
}

func (h *ProgressHandler) Enroll(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	created, err := h.svc.Enroll(c.Request.Context(), u.ID, c.Param("id"))
	if err != nil {
		progressErr(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"courseId": c.Param("id"), "enrolled": true})
}

func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	cp, err := h.svc.CompleteLesson(c.Request.Context(), u.ID, c.Param("id"), c.Param("lessonId"))
	if err != nil {
		progressErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func (h *ProgressHandler) Get(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	cp, err := h.svc.Get(c.Request.Context(), u.ID, c.Param("id"))
	if err != nil {
		progressErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func progressErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, progress.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, progress.ErrUnknownLesson):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, progress.ErrNotEnrolled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, progress.ErrNoProfile):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case session.IsStoreFailure(err):
		logger.Errorf("progress: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
	default:
		logger.Errorf("progress: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
