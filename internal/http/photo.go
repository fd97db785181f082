package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxPhotoBytes caps profile photo uploads; exactly this size is accepted.
const MaxPhotoBytes = 512 * 1024

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage service not configured"})
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}

	// Both checks happen before any storage call.
	if fileHeader.Size > MaxPhotoBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo must be at most 512KB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read photo"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxPhotoBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read photo"})
		return
	}
	if int64(len(data)) > MaxPhotoBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo must be at most 512KB"})
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := photoExtensions[contentType]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo must be JPG, PNG or WebP"})
		return
	}

	user := currentUser(c)

	// Best effort: a stale object must not block the new upload.
	if user.PhotoURL != nil {
		if key := h.objectKeyFromURL(*user.PhotoURL); key != "" {
			if err := h.storage.Remove(c.Request.Context(), h.bucket, []string{key}); err != nil {
				h.logger.Warnf("remove old photo for %s: %v", user.NIS, err)
			}
		}
	}

	key := h.photoKey(user.NIS, ext)
	if err := h.storage.Put(c.Request.Context(), h.bucket, key, bytes.NewReader(data), contentType); err != nil {
		h.logger.Errorf("upload photo for %s: %v", user.NIS, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not upload photo"})
		return
	}

	publicURL := h.storage.PublicURL(h.bucket, key)
	updated, err := h.users.SetPhotoURL(c.Request.Context(), user.NIS, &publicURL)
	if err != nil {
		h.logger.Errorf("persist photo url for %s: %v", user.NIS, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save photo"})
		return
	}
	c.JSON(http.StatusOK, userToResponse(updated))
}

func (h *Handler) deletePhoto(c *gin.Context) {
	user := currentUser(c)

	if user.PhotoURL != nil && h.storage != nil && h.bucket != "" {
		if key := h.objectKeyFromURL(*user.PhotoURL); key != "" {
			if err := h.storage.Remove(c.Request.Context(), h.bucket, []string{key}); err != nil {
				h.logger.Warnf("remove photo for %s: %v", user.NIS, err)
			}
		}
	}

	updated, err := h.users.SetPhotoURL(c.Request.Context(), user.NIS, nil)
	if err != nil {
		h.logger.Errorf("clear photo url for %s: %v", user.NIS, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete photo"})
		return
	}
	c.JSON(http.StatusOK, userToResponse(updated))
}

func (h *Handler) photoKey(nis, ext string) string {
	name := fmt.Sprintf("%s-%d-%s%s", nis, time.Now().Unix(), uuid.NewString()[:8], ext)
	prefix := strings.Trim(h.keyPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// objectKeyFromURL recovers the storage key from a stored public URL; the
// key is the prefix plus the URL's last path segment.
func (h *Handler) objectKeyFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	prefix := strings.Trim(h.keyPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
