package handler

import (
	"net/http"

	"chat-broker/observability"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	monitoring *observability.Monitoring
}

func NewHealthHandler(monitoring *observability.Monitoring) *HealthHandler {
	return &HealthHandler{monitoring: monitoring}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitoring.Snapshot())
}
