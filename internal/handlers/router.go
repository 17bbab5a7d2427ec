package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"casino-bot/internal/middleware"
	"casino-bot/internal/services"
)

type RouterDeps struct {
	GameEngine *services.GameEngine
	JWTService *services.JWTService
	Limiter    middleware.RateLimiter
	Readiness  Pinger
	Hub        *WebSocketHub
	Logger     *zap.Logger
	APIKey     string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	authHandler := NewAuthHandler(deps.JWTService, deps.APIKey)
	userHandler := NewUserHandler(deps.GameEngine)
	gameHandler := NewGameHandler(deps.GameEngine, deps.Logger)
	wsHandler := NewWebSocketHandler(deps.GameEngine, deps.Hub, deps.Logger)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.Logger), middleware.CORS())

	router.GET("/healthz", Healthz)
	router.GET("/readyz", Readyz(deps.Readiness, deps.Logger))
	router.POST("/auth/token", authHandler.IssueToken)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(deps.JWTService))
	protected.Use(middleware.RateLimitMiddleware(deps.Limiter, deps.Logger))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/ws", wsHandler.HandleWebSocket)

		blackjack := protected.Group("/blackjack")
		{
			blackjack.POST("/start", gameHandler.StartRound)
			blackjack.POST("/hit", gameHandler.Hit)
			blackjack.POST("/stand", gameHandler.Stand)
			blackjack.GET("/active", gameHandler.GetActiveRound)
		}

		slots := protected.Group("/slots")
		{
			slots.POST("/spin", gameHandler.Spin)
		}

		protected.POST("/bonus", gameHandler.ClaimBonus)
		protected.GET("/jackpot", gameHandler.GetJackpot)
		protected.GET("/history", gameHandler.GetHistory)

		rankings := protected.Group("/rankings")
		{
			rankings.GET("/coins", gameHandler.GetRankings)
			rankings.GET("/bankruptcy", gameHandler.GetBankruptcyRankings)
		}
	}

	return router
}
