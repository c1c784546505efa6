package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/storage"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"github.com/lmsplatform/lms/backend/go-services/pkg/middleware"
)

// AvatarHandler uploads and links profile pictures of the signed-in user.
type AvatarHandler struct {
	avatars *storage.Avatars
}

func NewAvatarHandler(a *storage.Avatars) *AvatarHandler { return &AvatarHandler{avatars: a} }

func (h *AvatarHandler) Register(rg gin.IRouter) {
	rg.PUT("/me/avatar", h.Upload)
	rg.GET("/me/avatar", h.URL)
	rg.DELETE("/me/avatar", h.Remove)
}

// Upload expects a multipart form with an "avatar" file.
func (h *AvatarHandler) Upload(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	err = h.avatars.Upload(c.Request.Context(), u.ID, fh.Header.Get("Content-Type"), f, fh.Size)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case err != nil:
		logger.Errorf("avatar upload for %s: %v", u.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store avatar"})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *AvatarHandler) URL(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	url, err := h.avatars.URL(c.Request.Context(), u.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNoAvatar) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("avatar url for %s: %v", u.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to link avatar"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *AvatarHandler) Remove(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	if err := h.avatars.Delete(c.Request.Context(), u.ID); err != nil {
		logger.Errorf("avatar delete for %s: %v", u.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to remove avatar"})
		return
	}
	c.Status(http.StatusNoContent)
}
