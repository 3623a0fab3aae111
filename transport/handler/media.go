package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"chat-broker/contract"
	"chat-broker/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Media kinds the broker accepts as attachments. Detection is sniffed from
// content, never trusted from the request.
var allowedMediaPrefixes = []string{"image/", "audio/", "video/"}

type MediaHandler struct {
	log     *slog.Logger
	media   contract.IMediaRepository
	maxSize int64
}

func NewMediaHandler(log *slog.Logger, media contract.IMediaRepository, maxSize int64) *MediaHandler {
	return &MediaHandler{log: log, media: media, maxSize: maxSize}
}

// Upload serves POST /media with the raw file as body. It returns the media
// reference to attach to a message.
func (h *MediaHandler) Upload(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if int64(len(data)) > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "media too large"})
		return
	}

	mime := mimetype.Detect(data)
	if !mediaAllowed(mime.String()) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error":    errors.Kind(errors.ErrUnsupportedMedia),
			"detected": mime.String(),
		})
		return
	}

	id := uuid.NewString()
	if err := h.media.StoreMedia(id, mime.String(), data); err != nil {
		h.log.Error("Failed to store media", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"media_ref": id, "mime": mime.String()})
}

// Download serves GET /media/:id.
func (h *MediaHandler) Download(c *gin.Context) {
	mime, data, err := h.media.GetMedia(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	c.Data(http.StatusOK, mime, data)
}

func mediaAllowed(mime string) bool {
	for _, prefix := range allowedMediaPrefixes {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}
