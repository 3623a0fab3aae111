package router

import (
	"net/http"

	"chat-broker/transport/handler"

	"github.com/gin-gonic/gin"
)

// New builds the HTTP router.
func New(
	authHandler *handler.AuthHandler,
	historyHandler *handler.HistoryHandler,
	mediaHandler *handler.MediaHandler,
	wsHandler *handler.WebsocketHandler,
	healthHandler *handler.HealthHandler,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	rooms := r.Group("/rooms")
	{
		rooms.GET("/:id/messages", historyHandler.Messages)
		rooms.GET("/:id/search", historyHandler.Search)
	}

	r.POST("/media", mediaHandler.Upload)
	r.GET("/media/:id", mediaHandler.Download)

	// WebSocket: the real-time session surface
	r.GET("/ws", wsHandler.ServeWS)

	return r
}
