package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/errors"
	"chat-broker/services"

	"github.com/gin-gonic/gin"
)

// HistoryHandler answers message history pages and room-scoped search.
type HistoryHandler struct {
	log    *slog.Logger
	chat   services.IChatService
	search contract.ISearch
}

func NewHistoryHandler(log *slog.Logger, chat services.IChatService, search contract.ISearch) *HistoryHandler {
	return &HistoryHandler{log: log, chat: chat, search: search}
}

// Messages serves GET /rooms/:id/messages?cursor=..., newest first. The
// returned cursor resumes the next page.
func (h *HistoryHandler) Messages(c *gin.Context) {
	room := domain.RoomID(c.Param("id"))
	var cursor *string
	if raw := c.Query("cursor"); raw != "" {
		cursor = &raw
	}
	messages, next, err := h.chat.History(room, cursor)
	if err != nil {
		c.JSON(errors.MapToStatus(err), gin.H{"error": errors.Kind(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "cursor": next})
}

// Search serves GET /rooms/:id/search?q=...&limit=...
func (h *HistoryHandler) Search(c *gin.Context) {
	room := domain.RoomID(c.Param("id"))
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	results, err := h.search.Search(c.Request.Context(), room, query, limit)
	if err != nil {
		h.log.Warn("Search failed", "room", room, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
