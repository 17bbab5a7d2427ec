package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"casino-bot/internal/models"
	"casino-bot/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
	logger     *zap.Logger
}

func NewGameHandler(gameEngine *services.GameEngine, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		gameEngine: gameEngine,
		logger:     logger,
	}
}

// BetRequest carries an optional bet; models.DefaultBet applies when absent.
type BetRequest struct {
	Bet *int64 `json:"bet"`
}

// StatusFor maps game errors onto HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidBet),
		errors.Is(err, services.ErrUnknownAction),
		errors.Is(err, services.ErrMissingPlayer):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrAlreadyInProgress),
		errors.Is(err, services.ErrFundsRemaining):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoActiveRound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSettlementFailed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *GameHandler) dispatch(c *gin.Context, req models.Request) {
	req.PlayerID = c.GetString("player_id")

	result, err := h.gameEngine.Dispatch(c.Request.Context(), req)
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("action failed",
				zap.String("player_id", req.PlayerID),
				zap.String("action", string(req.Action)),
				zap.Error(err),
			)
			c.JSON(status, gin.H{"error": "Action could not be completed, please retry"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *GameHandler) bet(c *gin.Context, action models.Action) {
	var req BetRequest
	// An empty body means the default bet.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"details": err.Error(),
			})
			return
		}
	}
	h.dispatch(c, models.Request{Action: action, Bet: req.Bet})
}

func limitParam(c *gin.Context) int64 {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func (h *GameHandler) StartRound(c *gin.Context) {
	h.bet(c, models.ActionStartCardRound)
}

func (h *GameHandler) Hit(c *gin.Context) {
	h.dispatch(c, models.Request{Action: models.ActionHit})
}

func (h *GameHandler) Stand(c *gin.Context) {
	h.dispatch(c, models.Request{Action: models.ActionStand})
}

func (h *GameHandler) GetActiveRound(c *gin.Context) {
	h.dispatch(c, models.Request{Action: models.ActionQueryRound})
}

func (h *GameHandler) Spin(c *gin.Context) {
	h.bet(c, models.ActionSpinSlot)
}

func (h *GameHandler) ClaimBonus(c *gin.Context) {
	h.dispatch(c, models.Request{Action: models.ActionClaimBonus})
}

func (h *GameHandler) GetJackpot(c *gin.Context) {
	h.dispatch(c, models.Request{Action: models.ActionQueryJackpot})
}

func (h *GameHandler) GetRankings(c *gin.Context) {
	h.dispatch(c, models.Request{Action: models.ActionQueryRanking, Limit: limitParam(c)})
}

func (h *GameHandler) GetBankruptcyRankings(c *gin.Context) {
	h.dispatch(c, models.Request{Action: models.ActionQueryBankruptcyRanking, Limit: limitParam(c)})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	h.dispatch(c, models.Request{Action: models.ActionQueryHistory, Limit: limitParam(c)})
}
