package handler

import (
	"log/slog"
	"net/http"

	"chat-broker/domain"
	"chat-broker/errors"
	"chat-broker/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	log  *slog.Logger
	auth services.IAuthService
}

func NewAuthHandler(log *slog.Logger, auth services.IAuthService) *AuthHandler {
	return &AuthHandler{log: log, auth: auth}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	token, err := h.auth.Register(req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		h.log.Debug("Registration refused", "email", req.Email, "error", err)
		c.JSON(errors.MapToStatus(err), gin.H{"error": errors.Kind(err)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		c.JSON(errors.MapToStatus(err), gin.H{"error": errors.Kind(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
