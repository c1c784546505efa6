package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/service"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
)

// RegisterCourseRoutes mounts the catalog under /api/courses. Reads are public; writes run
// behind writeGuards (typically RequireSession + RequireRole(admin)).
func RegisterCourseRoutes(r gin.IRouter, svc service.Service, writeGuards ...gin.HandlerFunc) {
	g := r.Group("/api/courses")

	g.GET("", func(c *gin.Context) {
		f := courses.Filter{
			Category: c.Query("category"),
			Level:    courses.Level(c.Query("level")),
			Featured: c.Query("featured") == "true",
		}
		list, err := svc.List(c.Request.Context(), f)
		if err != nil {
			logger.Errorf("courses: list failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list courses"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.GET("/:id", func(c *gin.Context) {
		course, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, course)
	})

	w := g.Group("", writeGuards...)

	w.POST("", func(c *gin.Context) {
		var req courses.Course
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.ID = ""
		req.Students = 0
		id, err := svc.Create(c.Request.Context(), &req)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id, "title": req.Title})
	})

	w.PATCH("/:id", func(c *gin.Context) {
		var p courses.Patch
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		course, err := svc.Update(c.Request.Context(), c.Param("id"), p)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, course)
	})

	w.DELETE("/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func writeErr(c *gin.Context, err error) {
	var ie *service.InvalidError
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &ie):
		c.JSON(http.StatusBadRequest, gin.H{"error": ie.Error()})
	default:
		logger.Errorf("courses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
