package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-bot/internal/services"
)

// AuthHandler exchanges the dispatcher API key for a player token. The
// dispatcher has already authenticated the player on its own platform.
type AuthHandler struct {
	jwtService *services.JWTService
	apiKey     string
}

func NewAuthHandler(jwtService *services.JWTService, apiKey string) *AuthHandler {
	return &AuthHandler{jwtService: jwtService, apiKey: apiKey}
}

type TokenRequest struct {
	PlayerID string `json:"player_id" binding:"required,max=64"`
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	if h.apiKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Token exchange is disabled"})
		return
	}

	key := c.GetHeader("X-API-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	token, claims, err := h.jwtService.GenerateToken(req.PlayerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"player_id":  claims.PlayerID,
		"session_id": claims.SessionID,
		"expires_at": claims.ExpiresAt.Unix(),
	})
}
