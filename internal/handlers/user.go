package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-bot/internal/services"
)

type UserHandler struct {
	gameEngine *services.GameEngine
}

func NewUserHandler(gameEngine *services.GameEngine) *UserHandler {
	return &UserHandler{gameEngine: gameEngine}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	playerID := c.GetString("player_id")
	if playerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	result, err := h.gameEngine.Stats(c.Request.Context(), playerID)
	if err != nil {
		c.JSON(StatusFor(err), gin.H{"error": "Failed to get account"})
		return
	}

	account := result.Account
	c.JSON(http.StatusOK, gin.H{
		"player_id":  playerID,
		"session_id": c.GetString("session_id"),
		"account": gin.H{
			"coins":            account.Coins,
			"total_wins":       account.TotalWins,
			"total_losses":     account.TotalLosses,
			"total_plays":      account.TotalPlays(),
			"win_rate":         result.WinRate,
			"biggest_win":      account.BiggestWin,
			"bankruptcy_count": account.BankruptcyCount,
			"last_played":      account.LastPlayed,
		},
	})
}
